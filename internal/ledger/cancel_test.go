package ledger

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cardspring/rewardsledger/internal/models"
)

func TestCancelRedemptionWithoutFeeRestoresExactBalance(t *testing.T) {
	svc := newTestService(t)
	lot := earnGrant(t, svc, 1, 500, testBase, nil)

	if _, errRedeem := svc.RedeemFromLot(context.Background(), lot.ID, 200); errRedeem != nil {
		t.Fatalf("redeem: %v", errRedeem)
	}

	result, errCancel := svc.CancelRedemption(context.Background(), lot.ID, 200, 0, "order cancelled")
	if errCancel != nil {
		t.Fatalf("cancel: %v", errCancel)
	}
	if result.FeePoints != 0 || result.NetRestored != 200 {
		t.Fatalf("result: fee %d net %d, want 0 and 200", result.FeePoints, result.NetRestored)
	}

	summary, errBalance := svc.Balance(context.Background(), 1)
	if errBalance != nil {
		t.Fatalf("balance: %v", errBalance)
	}
	if summary.Available != 500 {
		t.Fatalf("available: got %d want 500 (full round trip)", summary.Available)
	}
}

func TestCancelRedemptionChargesFeeOnRedeemedLot(t *testing.T) {
	svc := newTestService(t)
	lot := earnGrant(t, svc, 1, 1000, testBase, nil)

	if _, errRedeem := svc.RedeemFromLot(context.Background(), lot.ID, 1000); errRedeem != nil {
		t.Fatalf("redeem: %v", errRedeem)
	}

	result, errCancel := svc.CancelRedemption(context.Background(), lot.ID, 0, 5, "changed mind")
	if errCancel != nil {
		t.Fatalf("cancel: %v", errCancel)
	}
	if result.PointsRestored != 1000 {
		t.Fatalf("points restored: got %d want 1000", result.PointsRestored)
	}
	if result.FeePoints != 50 {
		t.Fatalf("fee: got %d want 50", result.FeePoints)
	}
	if result.NetRestored != 950 {
		t.Fatalf("net restored: got %d want 950", result.NetRestored)
	}
	if !strings.HasPrefix(result.Reference, "RC"+testBase.Format("20060102")) {
		t.Fatalf("reference: %q", result.Reference)
	}

	got := reloadLot(t, svc, lot.ID)
	if got.Status != models.LotStatusEarned {
		t.Fatalf("status: got %s want EARNED (lot reopens)", got.Status)
	}
	if got.PointsRedeemed != 50 {
		t.Fatalf("points_redeemed: got %d want 50 (fee stays consumed)", got.PointsRedeemed)
	}

	var record models.RedemptionCancellation
	if errFind := svc.db.Where("cancellation_reference = ?", result.Reference).First(&record).Error; errFind != nil {
		t.Fatalf("load cancellation record: %v", errFind)
	}
	if record.OriginalLotID != lot.ID || record.NetPointsRestored != 950 || record.CancellationFeePoints != 50 {
		t.Fatalf("record: %+v", record)
	}
	if record.Status != models.CancellationStatusCompleted {
		t.Fatalf("record status: got %s want COMPLETED", record.Status)
	}
}

func TestCancelRedemptionNoFeeFromEarnedState(t *testing.T) {
	svc := newTestService(t)
	lot := earnGrant(t, svc, 1, 1000, testBase, nil)

	// Partial redemption keeps the lot in EARNED state; no fee applies.
	if _, errRedeem := svc.RedeemFromLot(context.Background(), lot.ID, 400); errRedeem != nil {
		t.Fatalf("redeem: %v", errRedeem)
	}

	result, errCancel := svc.CancelRedemption(context.Background(), lot.ID, 400, 5, "partial reversal")
	if errCancel != nil {
		t.Fatalf("cancel: %v", errCancel)
	}
	if result.FeePoints != 0 || result.NetRestored != 400 {
		t.Fatalf("result: fee %d net %d, want 0 and 400", result.FeePoints, result.NetRestored)
	}
}

func TestCancelRedemptionValidation(t *testing.T) {
	svc := newTestService(t)
	lot := earnGrant(t, svc, 1, 100, testBase, nil)

	if _, err := svc.CancelRedemption(context.Background(), lot.ID, 10, 5, ""); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("missing reason: got %v want ErrInvalidArgument", err)
	}
	if _, err := svc.CancelRedemption(context.Background(), lot.ID, -1, 5, "reason"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("negative points: got %v want ErrInvalidArgument", err)
	}
	if _, err := svc.CancelRedemption(context.Background(), lot.ID, 10, 101, "reason"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("fee over 100: got %v want ErrInvalidArgument", err)
	}
	if _, err := svc.CancelRedemption(context.Background(), lot.ID, 10, 5, "reason"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("nothing redeemed: got %v want ErrInvalidArgument", err)
	}
	if _, err := svc.CancelRedemption(context.Background(), 9999, 10, 5, "reason"); !errors.Is(err, ErrLotNotFound) {
		t.Fatalf("unknown lot: got %v want ErrLotNotFound", err)
	}

	if _, errRedeem := svc.RedeemFromLot(context.Background(), lot.ID, 50); errRedeem != nil {
		t.Fatalf("redeem: %v", errRedeem)
	}
	if _, err := svc.CancelRedemption(context.Background(), lot.ID, 51, 5, "reason"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("over-restore: got %v want ErrInvalidArgument", err)
	}
}

func TestCancelRedemptionRefusedOnExpiredLot(t *testing.T) {
	svc := newTestService(t)
	lot := earnGrant(t, svc, 1, 100, testBase.Add(-72*time.Hour), timePtr(testBase.Add(time.Hour)))

	if _, errRedeem := svc.RedeemFromLot(context.Background(), lot.ID, 50); errRedeem != nil {
		t.Fatalf("redeem: %v", errRedeem)
	}
	if _, errSweep := svc.SweepExpiredAt(context.Background(), testBase.Add(2*time.Hour)); errSweep != nil {
		t.Fatalf("sweep: %v", errSweep)
	}

	if _, errCancel := svc.CancelRedemption(context.Background(), lot.ID, 50, 5, "too late"); !errors.Is(errCancel, ErrInvalidLotState) {
		t.Fatalf("got %v want ErrInvalidLotState", errCancel)
	}
}

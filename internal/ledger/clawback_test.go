package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cardspring/rewardsledger/internal/models"
)

func TestReverseForRefundProportional(t *testing.T) {
	svc := newTestService(t)
	lot := earnPayment(t, svc, 1, 7001, 1000)

	result, errReverse := svc.ReverseForRefund(context.Background(), 7001, 50.00, 100.00)
	if errReverse != nil {
		t.Fatalf("clawback: %v", errReverse)
	}
	if result.PointsClawedBack != 500 {
		t.Fatalf("clawed back: got %d want 500", result.PointsClawedBack)
	}
	if result.DeficitPoints != 0 {
		t.Fatalf("deficit: got %d want 0", result.DeficitPoints)
	}
	if !strings.HasPrefix(result.Reference, "RF"+testBase.Format("20060102")) {
		t.Fatalf("reference: %q", result.Reference)
	}

	if got := reloadLot(t, svc, lot.ID); got.PointsRedeemed != 500 || got.Status != models.LotStatusEarned {
		t.Fatalf("lot after clawback: redeemed %d status %s", got.PointsRedeemed, got.Status)
	}

	summary, errBalance := svc.Balance(context.Background(), 1)
	if errBalance != nil {
		t.Fatalf("balance: %v", errBalance)
	}
	if summary.Available != 500 {
		t.Fatalf("available: got %d want 500", summary.Available)
	}
}

func TestReverseForRefundReportsDeficit(t *testing.T) {
	svc := newTestService(t)
	lot := earnPayment(t, svc, 1, 7002, 1000)

	if _, errRedeem := svc.Redeem(context.Background(), 1, 800); errRedeem != nil {
		t.Fatalf("redeem: %v", errRedeem)
	}

	result, errReverse := svc.ReverseForRefund(context.Background(), 7002, 100.00, 100.00)
	if errReverse != nil {
		t.Fatalf("clawback: %v", errReverse)
	}
	if result.PointsClawedBack != 200 {
		t.Fatalf("clawed back: got %d want 200 (only the unspent remainder)", result.PointsClawedBack)
	}
	if result.DeficitPoints != 800 {
		t.Fatalf("deficit: got %d want 800", result.DeficitPoints)
	}

	// The clawback never drives points_redeemed past points_earned.
	got := reloadLot(t, svc, lot.ID)
	if got.PointsRedeemed != got.PointsEarned {
		t.Fatalf("points_redeemed: got %d want %d", got.PointsRedeemed, got.PointsEarned)
	}
	if got.Status != models.LotStatusRedeemed {
		t.Fatalf("status: got %s want REDEEMED", got.Status)
	}
}

func TestReverseForRefundPersistsAuditRecord(t *testing.T) {
	svc := newTestService(t)
	lot := earnPayment(t, svc, 1, 7003, 400)

	result, errReverse := svc.ReverseForRefund(context.Background(), 7003, 25.00, 100.00)
	if errReverse != nil {
		t.Fatalf("clawback: %v", errReverse)
	}

	var record models.RefundClawback
	if errFind := svc.db.Where("clawback_reference = ?", result.Reference).First(&record).Error; errFind != nil {
		t.Fatalf("load clawback record: %v", errFind)
	}
	if record.PaymentID != 7003 || record.PointsClawedBack != 100 || record.DeficitPoints != 0 {
		t.Fatalf("record: %+v", record)
	}

	var detail []ClawbackLotDetail
	if errDecode := json.Unmarshal(record.LotDetail, &detail); errDecode != nil {
		t.Fatalf("decode lot detail: %v", errDecode)
	}
	if len(detail) != 1 || detail[0].LotID != lot.ID || detail[0].ClawedBack != 100 {
		t.Fatalf("detail: %+v", detail)
	}
}

func TestReverseForRefundSkipsExpiredLots(t *testing.T) {
	svc := newTestService(t)
	lot := earnPayment(t, svc, 1, 7004, 600)

	// Force the lot past expiry and sweep it before the refund arrives.
	expired := testBase.Add(-time.Hour)
	if errUpdate := svc.db.Model(&models.RewardLot{}).
		Where("id = ?", lot.ID).
		Update("expiry_date", expired).Error; errUpdate != nil {
		t.Fatalf("backdate expiry: %v", errUpdate)
	}
	if _, errSweep := svc.SweepExpired(context.Background()); errSweep != nil {
		t.Fatalf("sweep: %v", errSweep)
	}

	result, errReverse := svc.ReverseForRefund(context.Background(), 7004, 100.00, 100.00)
	if errReverse != nil {
		t.Fatalf("clawback: %v", errReverse)
	}
	if result.PointsClawedBack != 0 || result.DeficitPoints != 0 {
		t.Fatalf("expired lot must be skipped entirely: %+v", result)
	}
	if len(result.Lots) != 0 {
		t.Fatalf("lot detail: %+v", result.Lots)
	}
}

func TestReverseForRefundValidation(t *testing.T) {
	svc := newTestService(t)
	earnPayment(t, svc, 1, 7005, 100)

	if _, err := svc.ReverseForRefund(context.Background(), 0, 10, 100); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("missing payment: got %v want ErrInvalidArgument", err)
	}
	if _, err := svc.ReverseForRefund(context.Background(), 7005, 0, 100); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("zero refund: got %v want ErrInvalidArgument", err)
	}
	if _, err := svc.ReverseForRefund(context.Background(), 7005, 150, 100); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("refund over original: got %v want ErrInvalidArgument", err)
	}
	if _, err := svc.ReverseForRefund(context.Background(), 9999, 50, 100); !errors.Is(err, ErrLotNotFound) {
		t.Fatalf("unknown payment: got %v want ErrLotNotFound", err)
	}
}

package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/cardspring/rewardsledger/internal/models"
)

// CancellationResult reports a completed redemption cancellation.
type CancellationResult struct {
	Reference      string `json:"cancellation_reference"`
	LotID          uint64 `json:"lot_id"`
	CustomerID     uint64 `json:"customer_id"`
	PointsRestored int64  `json:"points_restored"` // Redeemed points targeted by the cancellation.
	FeePoints      int64  `json:"fee_points"`      // Withheld fee; stays consumed on the lot.
	NetRestored    int64  `json:"net_restored"`    // Points actually returned to the lot.
}

// CancelRedemption reverses previously redeemed points on a lot. points
// of 0 means everything currently redeemed on the lot. The fee applies
// only when cancelling from REDEEMED state: points on an EARNED lot were
// never fully converted to a realized benefit, so nothing is withheld.
// Expired lots cannot be un-expired.
//
// A durable cancellation record referencing the original lot is written
// in the same transaction; history is never overwritten.
func (s *Service) CancelRedemption(ctx context.Context, lotID uint64, points int64, feeRatePercent float64, reason string) (*CancellationResult, error) {
	if points < 0 {
		return nil, fmt.Errorf("%w: points cannot be negative", ErrInvalidArgument)
	}
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: missing cancellation reason", ErrInvalidArgument)
	}
	if feeRatePercent < 0 || feeRatePercent > 100 {
		return nil, fmt.Errorf("%w: fee rate must be within [0,100]", ErrInvalidArgument)
	}

	customerID, errOwner := s.lotCustomer(ctx, lotID)
	if errOwner != nil {
		return nil, errOwner
	}

	unlock := s.locks.acquire(customerID)
	defer unlock()

	now := s.now()
	result := &CancellationResult{
		Reference:  cancellationReference(now),
		LotID:      lotID,
		CustomerID: customerID,
	}

	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lot models.RewardLot
		if errFind := lockedCandidates(tx).
			Where("id = ?", lotID).
			First(&lot).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: lot %d", ErrLotNotFound, lotID)
			}
			return fmt.Errorf("ledger: load lot: %w", errFind)
		}

		if lot.Status != models.LotStatusEarned && lot.Status != models.LotStatusRedeemed {
			return fmt.Errorf("%w: cannot cancel redemption on %s lot %d", ErrInvalidLotState, lot.Status, lot.ID)
		}

		toRestore := points
		if toRestore == 0 {
			toRestore = lot.PointsRedeemed
		}
		if toRestore == 0 {
			return fmt.Errorf("%w: lot %d has no redeemed points", ErrInvalidArgument, lot.ID)
		}
		if toRestore > lot.PointsRedeemed {
			return fmt.Errorf("%w: lot %d has only %d redeemed points", ErrInvalidArgument, lot.ID, lot.PointsRedeemed)
		}

		fee := int64(0)
		if lot.Status == models.LotStatusRedeemed {
			fee = FeePoints(toRestore, feeRatePercent)
		}
		net := toRestore - fee

		if errApply := applyReversal(tx, &lot, net); errApply != nil {
			return errApply
		}

		record := models.RedemptionCancellation{
			CancellationReference: result.Reference,
			OriginalLotID:         lot.ID,
			CustomerID:            customerID,
			PointsToRestore:       toRestore,
			CancellationFeePoints: fee,
			NetPointsRestored:     net,
			CancellationReason:    reason,
			Status:                models.CancellationStatusCompleted,
			RequestedDate:         now,
			ProcessedDate:         &now,
		}
		if errCreate := tx.Create(&record).Error; errCreate != nil {
			return fmt.Errorf("ledger: create cancellation record: %w", errCreate)
		}

		result.PointsRestored = toRestore
		result.FeePoints = fee
		result.NetRestored = net
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}

	s.invalidateBalance(ctx, customerID)

	log.WithFields(log.Fields{
		"lot_id":      lotID,
		"customer_id": customerID,
		"restored":    result.NetRestored,
		"fee_points":  result.FeePoints,
	}).Info("ledger: redemption cancelled")
	return result, nil
}

// applyReversal decrements a lot's points_redeemed by restore with a
// compare-and-swap guard and recomputes the status: a fully redeemed lot
// reopens to EARNED once it has unspent points again.
func applyReversal(tx *gorm.DB, lot *models.RewardLot, restore int64) error {
	newRedeemed := lot.PointsRedeemed - restore
	if newRedeemed < 0 {
		return fmt.Errorf("%w: reversal would make points_redeemed negative on lot %d", ErrInvalidArgument, lot.ID)
	}

	updates := map[string]interface{}{
		"points_redeemed": newRedeemed,
	}
	if newRedeemed < lot.PointsEarned {
		updates["status"] = models.LotStatusEarned
	}

	res := tx.Model(&models.RewardLot{}).
		Where("id = ? AND points_redeemed = ? AND status = ?", lot.ID, lot.PointsRedeemed, lot.Status).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("ledger: update lot %d: %w", lot.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: lot %d changed underneath", ErrConcurrencyConflict, lot.ID)
	}

	lot.PointsRedeemed = newRedeemed
	if newRedeemed < lot.PointsEarned {
		lot.Status = models.LotStatusEarned
	}
	return nil
}

// cancellationReference builds a unique human-scannable reference, e.g.
// RC20260823A1B2C3D4.
func cancellationReference(now time.Time) string {
	return "RC" + now.Format("20060102") + strings.ToUpper(uuid.NewString()[:8])
}

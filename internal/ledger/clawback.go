package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/cardspring/rewardsledger/internal/models"
)

// ClawbackLotDetail is the per-lot breakdown of one refund reversal.
type ClawbackLotDetail struct {
	LotID        uint64 `json:"lot_id"`
	TargetPoints int64  `json:"target_points"`  // round_half_up(fraction * points_earned).
	ClawedBack   int64  `json:"clawed_back"`    // Capped at the lot's unspent remainder.
	Deficit      int64  `json:"deficit_points"` // Target minus clawed back.
}

// ClawbackResult reports a completed refund reversal. DeficitPoints is
// the share the customer had already spent; it is surfaced here and on
// the persisted audit row, never silently absorbed, and never drives
// points_redeemed past points_earned.
type ClawbackResult struct {
	Reference        string              `json:"clawback_reference"`
	PaymentID        uint64              `json:"payment_id"`
	CustomerID       uint64              `json:"customer_id"`
	PointsClawedBack int64               `json:"points_clawed_back"`
	DeficitPoints    int64               `json:"deficit_points"`
	Lots             []ClawbackLotDetail `json:"lots"`
}

// ReverseForRefund claws back the refunded share of the points a payment
// earned. Each lot loses round_half_up(refund/original * points_earned)
// points, taken from its unspent remainder only. Expired lots are
// skipped: their unspent points already left the balance when they were
// swept.
func (s *Service) ReverseForRefund(ctx context.Context, paymentID uint64, refundAmount, originalAmount float64) (*ClawbackResult, error) {
	if paymentID == 0 {
		return nil, fmt.Errorf("%w: missing payment id", ErrInvalidArgument)
	}
	if originalAmount <= 0 || refundAmount <= 0 {
		return nil, fmt.Errorf("%w: amounts must be positive", ErrInvalidArgument)
	}
	if refundAmount > originalAmount {
		return nil, fmt.Errorf("%w: refund %.2f exceeds original %.2f", ErrInvalidArgument, refundAmount, originalAmount)
	}

	customerID, errOwner := s.paymentCustomer(ctx, paymentID)
	if errOwner != nil {
		return nil, errOwner
	}

	unlock := s.locks.acquire(customerID)
	defer unlock()

	now := s.now()
	result := &ClawbackResult{
		Reference:  clawbackReference(now),
		PaymentID:  paymentID,
		CustomerID: customerID,
	}

	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lots []models.RewardLot
		if errFind := lockedCandidates(tx).
			Where("payment_id = ? AND source_type = ?", paymentID, models.LotSourcePayment).
			Order("id ASC").
			Find(&lots).Error; errFind != nil {
			return fmt.Errorf("ledger: load payment lots: %w", errFind)
		}
		if len(lots) == 0 {
			return fmt.Errorf("%w: no lots for payment %d", ErrLotNotFound, paymentID)
		}

		for i := range lots {
			lot := &lots[i]
			if lot.Status == models.LotStatusExpired {
				continue
			}
			target := ProportionalPoints(refundAmount, originalAmount, lot.PointsEarned)
			take := target
			if remaining := lot.RemainingPoints(); take > remaining {
				take = remaining
			}
			detail := ClawbackLotDetail{
				LotID:        lot.ID,
				TargetPoints: target,
				ClawedBack:   take,
				Deficit:      target - take,
			}
			if take > 0 {
				if errApply := applyRedemption(tx, lot, take, now); errApply != nil {
					return errApply
				}
			}
			result.PointsClawedBack += detail.ClawedBack
			result.DeficitPoints += detail.Deficit
			result.Lots = append(result.Lots, detail)
		}

		detailJSON, errMarshal := json.Marshal(result.Lots)
		if errMarshal != nil {
			return fmt.Errorf("ledger: marshal clawback detail: %w", errMarshal)
		}
		record := models.RefundClawback{
			ClawbackReference: result.Reference,
			PaymentID:         paymentID,
			CustomerID:        customerID,
			RefundAmount:      refundAmount,
			OriginalAmount:    originalAmount,
			PointsClawedBack:  result.PointsClawedBack,
			DeficitPoints:     result.DeficitPoints,
			LotDetail:         datatypes.JSON(detailJSON),
		}
		if errCreate := tx.Create(&record).Error; errCreate != nil {
			return fmt.Errorf("ledger: create clawback record: %w", errCreate)
		}
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}

	s.invalidateBalance(ctx, customerID)

	entry := log.WithFields(log.Fields{
		"payment_id":  paymentID,
		"customer_id": customerID,
		"clawed_back": result.PointsClawedBack,
	})
	if result.DeficitPoints > 0 {
		entry.WithField("deficit_points", result.DeficitPoints).
			Warn("ledger: refund clawback left an unrecoverable deficit")
	} else {
		entry.Info("ledger: refund clawback applied")
	}
	return result, nil
}

// paymentCustomer resolves the owning customer of a payment's lots.
func (s *Service) paymentCustomer(ctx context.Context, paymentID uint64) (uint64, error) {
	var row struct {
		CustomerID uint64
	}
	errFind := s.db.WithContext(ctx).Model(&models.RewardLot{}).
		Select("customer_id").
		Where("payment_id = ? AND source_type = ?", paymentID, models.LotSourcePayment).
		Order("id ASC").
		Limit(1).
		Take(&row).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("%w: no lots for payment %d", ErrLotNotFound, paymentID)
		}
		return 0, fmt.Errorf("ledger: load payment owner: %w", errFind)
	}
	return row.CustomerID, nil
}

// clawbackReference builds a unique human-scannable reference, e.g.
// RF20260823A1B2C3D4.
func clawbackReference(now time.Time) string {
	return "RF" + now.Format("20060102") + strings.ToUpper(uuid.NewString()[:8])
}

package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/cardspring/rewardsledger/internal/models"
)

// Allocation is the share of one redemption taken from a single lot.
type Allocation struct {
	LotID       uint64  `json:"lot_id"`
	Points      int64   `json:"points"`
	DollarValue float64 `json:"dollar_value"`
}

// RedemptionResult reports a completed redemption.
type RedemptionResult struct {
	CustomerID       uint64       `json:"customer_id"`
	PointsRedeemed   int64        `json:"points_redeemed"`
	TotalDollarValue float64      `json:"total_dollar_value"`
	Allocations      []Allocation `json:"allocations"`
}

// Redeem deducts points from the customer's balance, consuming the oldest
// lots first. Oldest-first minimizes points lost to expiry. The balance is
// verified against the locked candidate set inside the transaction, never
// from a stale read.
func (s *Service) Redeem(ctx context.Context, customerID uint64, points int64) (*RedemptionResult, error) {
	if customerID == 0 {
		return nil, fmt.Errorf("%w: missing customer id", ErrInvalidArgument)
	}
	if points <= 0 {
		return nil, fmt.Errorf("%w: points must be positive", ErrInvalidArgument)
	}

	unlock := s.locks.acquire(customerID)
	defer unlock()

	now := s.now()
	result := &RedemptionResult{CustomerID: customerID, PointsRedeemed: points}

	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var candidates []models.RewardLot
		if errFind := lockedCandidates(tx).
			Where("customer_id = ? AND status = ?", customerID, models.LotStatusEarned).
			Where("expiry_date IS NULL OR expiry_date > ?", now).
			Order("earned_date ASC, id ASC").
			Find(&candidates).Error; errFind != nil {
			return fmt.Errorf("ledger: load candidates: %w", errFind)
		}

		available := int64(0)
		for i := range candidates {
			available += candidates[i].RemainingPoints()
		}
		if points > available {
			return fmt.Errorf("%w: requested %d, available %d", ErrInsufficientBalance, points, available)
		}

		remaining := points
		for i := range candidates {
			if remaining <= 0 {
				break
			}
			lot := &candidates[i]
			take := lot.RemainingPoints()
			if take > remaining {
				take = remaining
			}
			if take <= 0 {
				continue
			}
			if errApply := applyRedemption(tx, lot, take, now); errApply != nil {
				return errApply
			}
			result.Allocations = append(result.Allocations, Allocation{
				LotID:       lot.ID,
				Points:      take,
				DollarValue: DollarValueFloat(take),
			})
			remaining -= take
		}
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}

	result.TotalDollarValue = DollarValueFloat(points)
	s.invalidateBalance(ctx, customerID)

	log.WithFields(log.Fields{
		"customer_id": customerID,
		"points":      points,
		"lots":        len(result.Allocations),
	}).Info("ledger: points redeemed")
	return result, nil
}

// RedeemFromLot deducts points from a single lot. A lot whose expiry has
// already passed is swept on the spot and the redemption is refused.
func (s *Service) RedeemFromLot(ctx context.Context, lotID uint64, points int64) (*RedemptionResult, error) {
	if points <= 0 {
		return nil, fmt.Errorf("%w: points must be positive", ErrInvalidArgument)
	}

	customerID, errOwner := s.lotCustomer(ctx, lotID)
	if errOwner != nil {
		return nil, errOwner
	}

	unlock := s.locks.acquire(customerID)
	defer unlock()

	now := s.now()
	result := &RedemptionResult{CustomerID: customerID, PointsRedeemed: points}

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

		if lot.Status == models.LotStatusEarned && lot.ExpiryDate != nil && lot.ExpiryDate.Before(now) {
			return fmt.Errorf("%w: lot %d has expired", ErrInvalidLotState, lot.ID)
		}
		if lot.Status != models.LotStatusEarned {
			return fmt.Errorf("%w: lot %d is %s", ErrInvalidLotState, lot.ID, lot.Status)
		}
		if points > lot.RemainingPoints() {
			return fmt.Errorf("%w: requested %d, lot has %d", ErrInsufficientBalance, points, lot.RemainingPoints())
		}

		if errApply := applyRedemption(tx, &lot, points, now); errApply != nil {
			return errApply
		}
		result.Allocations = []Allocation{{
			LotID:       lot.ID,
			Points:      points,
			DollarValue: DollarValueFloat(points),
		}}
		return nil
	})
	if errTx != nil {
		// An expired lot is swept on the spot even though the call fails.
		if errors.Is(errTx, ErrInvalidLotState) {
			_ = s.db.WithContext(ctx).Model(&models.RewardLot{}).
				Where("id = ? AND status = ? AND expiry_date IS NOT NULL AND expiry_date < ?",
					lotID, models.LotStatusEarned, now).
				Update("status", models.LotStatusExpired).Error
			s.invalidateBalance(ctx, customerID)
		}
		return nil, errTx
	}

	result.TotalDollarValue = DollarValueFloat(points)
	s.invalidateBalance(ctx, customerID)
	return result, nil
}

// applyRedemption advances a lot's points_redeemed by take with a
// compare-and-swap guard. A stale snapshot aborts the transaction.
func applyRedemption(tx *gorm.DB, lot *models.RewardLot, take int64, now time.Time) error {
	newRedeemed := lot.PointsRedeemed + take
	updates := map[string]interface{}{
		"points_redeemed": newRedeemed,
	}
	if lot.RedeemedDate == nil {
		updates["redeemed_date"] = now
	}
	if newRedeemed == lot.PointsEarned {
		updates["status"] = models.LotStatusRedeemed
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
	if newRedeemed == lot.PointsEarned {
		lot.Status = models.LotStatusRedeemed
	}
	if lot.RedeemedDate == nil {
		lot.RedeemedDate = &now
	}
	return nil
}

// lotCustomer resolves the owning customer of a lot before taking its lock.
func (s *Service) lotCustomer(ctx context.Context, lotID uint64) (uint64, error) {
	var row struct {
		CustomerID uint64
	}
	errFind := s.db.WithContext(ctx).Model(&models.RewardLot{}).
		Select("customer_id").
		Where("id = ?", lotID).
		Take(&row).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("%w: lot %d", ErrLotNotFound, lotID)
		}
		return 0, fmt.Errorf("ledger: load lot owner: %w", errFind)
	}
	return row.CustomerID, nil
}

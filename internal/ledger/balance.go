package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/cardspring/rewardsledger/internal/models"
)

// BalanceSummary is the customer's point position at a moment in time.
type BalanceSummary struct {
	CustomerID           uint64    `json:"customer_id"`
	TotalEarned          int64     `json:"total_earned"`           // Points earned on non-expired lots.
	TotalRedeemed        int64     `json:"total_redeemed"`         // Points redeemed on non-expired lots.
	Available            int64     `json:"available_points"`       // TotalEarned - TotalRedeemed.
	AvailableDollarValue float64   `json:"available_dollar_value"` // Available at 1pt = $0.01.
	ExpiringSoon         int64     `json:"expiring_soon"`          // Unspent points expiring inside the window.
	RecentEarned         int64     `json:"recent_earned"`          // Points earned inside the trailing window.
	AsOf                 time.Time `json:"as_of"`
}

// Balance computes the customer's current balance. Reads go through the
// attached cache when one is configured.
func (s *Service) Balance(ctx context.Context, customerID uint64) (*BalanceSummary, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, customerID); ok {
			return cached, nil
		}
	}
	summary, err := s.BalanceAt(ctx, customerID, s.now())
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, customerID, summary)
	}
	return summary, nil
}

// BalanceAt computes the customer's balance as of the given time. Pure
// read: lots whose expiry has passed asOf count as expired even before
// the sweeper has flipped their status.
func (s *Service) BalanceAt(ctx context.Context, customerID uint64, asOf time.Time) (*BalanceSummary, error) {
	if customerID == 0 {
		return nil, fmt.Errorf("%w: missing customer id", ErrInvalidArgument)
	}

	var lots []models.RewardLot
	if errFind := s.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Find(&lots).Error; errFind != nil {
		return nil, fmt.Errorf("ledger: load lots: %w", errFind)
	}

	summary := &BalanceSummary{CustomerID: customerID, AsOf: asOf}
	expiringCutoff := asOf.Add(s.expiringSoonWindow)
	recentCutoff := asOf.Add(-s.recentEarnedWindow)

	for i := range lots {
		lot := &lots[i]
		if !lot.EarnedDate.After(asOf) && !lot.EarnedDate.Before(recentCutoff) {
			summary.RecentEarned += lot.PointsEarned
		}

		if expiredAsOf(lot, asOf) {
			continue
		}
		summary.TotalEarned += lot.PointsEarned
		summary.TotalRedeemed += lot.PointsRedeemed

		if lot.Status == models.LotStatusEarned && lot.ExpiryDate != nil &&
			lot.ExpiryDate.After(asOf) && !lot.ExpiryDate.After(expiringCutoff) {
			summary.ExpiringSoon += lot.RemainingPoints()
		}
	}

	summary.Available = summary.TotalEarned - summary.TotalRedeemed
	summary.AvailableDollarValue = DollarValueFloat(summary.Available)
	return summary, nil
}

// expiredAsOf reports whether a lot contributes nothing to balance at the
// given time, either because it was swept or because its expiry already
// passed while unswept.
func expiredAsOf(lot *models.RewardLot, asOf time.Time) bool {
	if lot.Status == models.LotStatusExpired {
		return true
	}
	return lot.Status == models.LotStatusEarned && lot.ExpiryDate != nil && lot.ExpiryDate.Before(asOf)
}

package ledger

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/cardspring/rewardsledger/internal/models"
)

// EarnRequest describes one earn event. Point computation from payment
// amounts (card-tier multipliers, category bonuses) stays with the
// payment processor; the ledger records what it is told.
type EarnRequest struct {
	CustomerID  uint64           // Owning customer.
	Points      int64            // Points earned, must be positive.
	Source      models.LotSource // Origin of the points.
	PaymentID   *uint64          // Required when Source is payment.
	Description string           // Grant or bonus description.
	EarnedDate  time.Time        // Zero means now.
	ExpiryDate  *time.Time       // Nil on payment lots gets the default lifetime; nil otherwise never expires.
}

// EarnPoints creates a new lot. Lots are append-only: restoration of
// expired points goes through EarnPoints again, never by reopening an
// expired lot.
func (s *Service) EarnPoints(ctx context.Context, req EarnRequest) (*models.RewardLot, error) {
	if req.CustomerID == 0 {
		return nil, fmt.Errorf("%w: missing customer id", ErrInvalidArgument)
	}
	if req.Points <= 0 {
		return nil, fmt.Errorf("%w: points must be positive", ErrInvalidArgument)
	}
	switch req.Source {
	case models.LotSourcePayment:
		if req.PaymentID == nil || *req.PaymentID == 0 {
			return nil, fmt.Errorf("%w: payment source requires a payment id", ErrInvalidArgument)
		}
	case models.LotSourceManualGrant, models.LotSourceWelcomeBonus:
		if req.Description == "" {
			return nil, fmt.Errorf("%w: %s source requires a description", ErrInvalidArgument, req.Source)
		}
	default:
		return nil, fmt.Errorf("%w: unknown source %q", ErrInvalidArgument, req.Source)
	}

	earnedDate := req.EarnedDate
	if earnedDate.IsZero() {
		earnedDate = s.now()
	}
	expiry := req.ExpiryDate
	if expiry == nil && req.Source == models.LotSourcePayment {
		defaulted := earnedDate.Add(time.Duration(s.defaultExpiryDays) * 24 * time.Hour)
		expiry = &defaulted
	}
	if expiry != nil && !expiry.After(earnedDate) {
		return nil, fmt.Errorf("%w: expiry date must be after earned date", ErrInvalidArgument)
	}

	lot := models.RewardLot{
		CustomerID:   req.CustomerID,
		SourceType:   req.Source,
		PaymentID:    req.PaymentID,
		Description:  req.Description,
		PointsEarned: req.Points,
		DollarValue:  DollarValueFloat(req.Points),
		Status:       models.LotStatusEarned,
		EarnedDate:   earnedDate,
		ExpiryDate:   expiry,
	}

	unlock := s.locks.acquire(req.CustomerID)
	defer unlock()

	if errCreate := s.db.WithContext(ctx).Create(&lot).Error; errCreate != nil {
		return nil, fmt.Errorf("ledger: create lot: %w", errCreate)
	}
	s.invalidateBalance(ctx, req.CustomerID)

	log.WithFields(log.Fields{
		"lot_id":      lot.ID,
		"customer_id": lot.CustomerID,
		"source":      lot.SourceType,
		"points":      lot.PointsEarned,
	}).Info("ledger: lot created")
	return &lot, nil
}

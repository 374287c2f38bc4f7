package ledger

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/cardspring/rewardsledger/internal/models"
)

// SweepExpired transitions every EARNED lot whose expiry has passed to
// EXPIRED and returns how many lots changed. Re-running with no new
// expirations is a no-op. points_redeemed is never touched.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	return s.SweepExpiredAt(ctx, s.now())
}

// SweepExpiredAt sweeps relative to an explicit cutoff.
func (s *Service) SweepExpiredAt(ctx context.Context, asOf time.Time) (int64, error) {
	var expired int64
	var customers []uint64

	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errFind := tx.Model(&models.RewardLot{}).
			Distinct("customer_id").
			Where("status = ? AND expiry_date IS NOT NULL AND expiry_date < ?", models.LotStatusEarned, asOf).
			Pluck("customer_id", &customers).Error; errFind != nil {
			return fmt.Errorf("ledger: load expiring customers: %w", errFind)
		}

		res := tx.Model(&models.RewardLot{}).
			Where("status = ? AND expiry_date IS NOT NULL AND expiry_date < ?", models.LotStatusEarned, asOf).
			Update("status", models.LotStatusExpired)
		if res.Error != nil {
			return fmt.Errorf("ledger: sweep expired: %w", res.Error)
		}
		expired = res.RowsAffected
		return nil
	})
	if errTx != nil {
		return 0, errTx
	}

	for _, customerID := range customers {
		s.invalidateBalance(ctx, customerID)
	}
	if expired > 0 {
		log.WithField("expired_count", expired).Info("ledger: lots expired")
	}
	return expired, nil
}

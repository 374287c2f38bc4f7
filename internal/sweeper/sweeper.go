// Package sweeper runs the expiration sweep on a timer so lots whose
// expiry passed drop out of available balances without waiting for a
// read. The sweep itself is idempotent, so an on-demand trigger racing
// the timer is harmless.
package sweeper

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/cardspring/rewardsledger/internal/ledger"
)

const defaultSweepInterval = 1 * time.Hour

// Sweeper periodically expires lots past their expiry date.
type Sweeper struct {
	ledger   *ledger.Service
	interval time.Duration
}

// New constructs a sweeper over the ledger service.
func New(svc *ledger.Service, interval time.Duration) *Sweeper {
	if svc == nil {
		return nil
	}
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &Sweeper{ledger: svc, interval: interval}
}

// Start launches the sweep loop in a background goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	if s == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	go s.run(ctx)
	log.Infof("expiration sweeper started (interval=%s)", s.interval)
}

func (s *Sweeper) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		s.sweepOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		timer := time.NewTimer(s.interval)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return
		case <-timer.C:
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	expired, errSweep := s.ledger.SweepExpired(sweepCtx)
	if errSweep != nil {
		log.WithError(errSweep).Warn("expiration sweeper: sweep failed")
		return
	}
	if expired > 0 {
		log.WithField("expired_count", expired).Info("expiration sweeper: sweep completed")
	}
}

package ledger

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbutil "github.com/cardspring/rewardsledger/internal/db"
)

// Default tunables, overridable through Config.
const (
	// DefaultExpiryDays is the default lifetime of payment-earned lots.
	DefaultExpiryDays = 730
	// DefaultCancellationFeePercent is charged when cancelling a
	// redemption on a fully redeemed lot.
	DefaultCancellationFeePercent = 5.0
	// DefaultExpiringSoonWindow bounds the "expiring soon" balance figure.
	DefaultExpiringSoonWindow = 30 * 24 * time.Hour
	// DefaultRecentEarnedWindow bounds the "recently earned" balance figure.
	DefaultRecentEarnedWindow = 30 * 24 * time.Hour
)

// Config carries the ledger tunables.
type Config struct {
	DefaultExpiryDays      int           // Payment lot lifetime in days; 0 means DefaultExpiryDays.
	CancellationFeePercent float64       // Fee rate for cancellations from REDEEMED state; <0 means no fee.
	ExpiringSoonWindow     time.Duration // Window for the expiring-soon balance figure.
	RecentEarnedWindow     time.Duration // Window for the recent-earned balance figure.
}

// BalanceCache caches balance summaries between mutations. Implementations
// must tolerate being handed a nil context value from callers.
type BalanceCache interface {
	Get(ctx context.Context, customerID uint64) (*BalanceSummary, bool)
	Set(ctx context.Context, customerID uint64, summary *BalanceSummary)
	Invalidate(ctx context.Context, customerID uint64)
}

// Service is the rewards and redemption ledger. All mutating operations
// run under a per-customer lock and a single database transaction; either
// the whole call commits or none of it does.
type Service struct {
	db    *gorm.DB
	locks *customerLocks
	cache BalanceCache

	defaultExpiryDays      int
	cancellationFeePercent float64
	expiringSoonWindow     time.Duration
	recentEarnedWindow     time.Duration

	now func() time.Time
}

// NewService constructs a ledger service over the given database handle.
func NewService(db *gorm.DB, cfg Config) *Service {
	if db == nil {
		return nil
	}
	expiryDays := cfg.DefaultExpiryDays
	if expiryDays <= 0 {
		expiryDays = DefaultExpiryDays
	}
	feePercent := cfg.CancellationFeePercent
	if feePercent == 0 {
		feePercent = DefaultCancellationFeePercent
	}
	if feePercent < 0 {
		feePercent = 0
	}
	expiringWindow := cfg.ExpiringSoonWindow
	if expiringWindow <= 0 {
		expiringWindow = DefaultExpiringSoonWindow
	}
	recentWindow := cfg.RecentEarnedWindow
	if recentWindow <= 0 {
		recentWindow = DefaultRecentEarnedWindow
	}
	return &Service{
		db:                     db,
		locks:                  newCustomerLocks(),
		defaultExpiryDays:      expiryDays,
		cancellationFeePercent: feePercent,
		expiringSoonWindow:     expiringWindow,
		recentEarnedWindow:     recentWindow,
		now:                    func() time.Time { return time.Now().UTC() },
	}
}

// AttachCache wires an optional balance cache. Must be called before the
// service starts taking traffic.
func (s *Service) AttachCache(cache BalanceCache) {
	if s == nil {
		return
	}
	s.cache = cache
}

// CancellationFeePercent returns the configured cancellation fee rate.
func (s *Service) CancellationFeePercent() float64 {
	return s.cancellationFeePercent
}

// DB exposes the underlying handle for read-only collaborators.
func (s *Service) DB() *gorm.DB {
	return s.db
}

// lockedCandidates applies row locking to a candidate query on dialects
// that support it. SQLite serializes writers on its own.
func lockedCandidates(tx *gorm.DB) *gorm.DB {
	if dbutil.IsSQLite(tx) {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// invalidateBalance drops any cached balance for the customer after a
// committed mutation.
func (s *Service) invalidateBalance(ctx context.Context, customerID uint64) {
	if s.cache == nil {
		return
	}
	s.cache.Invalidate(ctx, customerID)
}

package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	dbutil "github.com/cardspring/rewardsledger/internal/db"
	"github.com/cardspring/rewardsledger/internal/models"
)

// testBase is the frozen clock every test service starts with.
var testBase = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:ledger_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	sqlDB, errDB := conn.DB()
	if errDB != nil {
		t.Fatalf("sql db: %v", errDB)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if errMigrate := dbutil.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	svc := NewService(conn, Config{})
	svc.now = func() time.Time { return testBase }
	return svc
}

func timePtr(ts time.Time) *time.Time {
	return &ts
}

func earnGrant(t *testing.T, svc *Service, customerID uint64, points int64, earned time.Time, expiry *time.Time) *models.RewardLot {
	t.Helper()
	lot, errEarn := svc.EarnPoints(context.Background(), EarnRequest{
		CustomerID:  customerID,
		Points:      points,
		Source:      models.LotSourceManualGrant,
		Description: "test grant",
		EarnedDate:  earned,
		ExpiryDate:  expiry,
	})
	if errEarn != nil {
		t.Fatalf("earn grant: %v", errEarn)
	}
	return lot
}

func earnPayment(t *testing.T, svc *Service, customerID, paymentID uint64, points int64) *models.RewardLot {
	t.Helper()
	lot, errEarn := svc.EarnPoints(context.Background(), EarnRequest{
		CustomerID: customerID,
		Points:     points,
		Source:     models.LotSourcePayment,
		PaymentID:  &paymentID,
	})
	if errEarn != nil {
		t.Fatalf("earn payment: %v", errEarn)
	}
	return lot
}

func reloadLot(t *testing.T, svc *Service, lotID uint64) *models.RewardLot {
	t.Helper()
	var lot models.RewardLot
	if errFind := svc.db.First(&lot, lotID).Error; errFind != nil {
		t.Fatalf("reload lot %d: %v", lotID, errFind)
	}
	return &lot
}

// stubBalanceCache records cache traffic for read-through tests.
type stubBalanceCache struct {
	mu      sync.Mutex
	entries map[uint64]*BalanceSummary
	hits    int
	sets    int
	drops   int
}

func newStubBalanceCache() *stubBalanceCache {
	return &stubBalanceCache{entries: make(map[uint64]*BalanceSummary)}
}

func (c *stubBalanceCache) Get(_ context.Context, customerID uint64) (*BalanceSummary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	summary, ok := c.entries[customerID]
	if ok {
		c.hits++
	}
	return summary, ok
}

func (c *stubBalanceCache) Set(_ context.Context, customerID uint64, summary *BalanceSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[customerID] = summary
	c.sets++
}

func (c *stubBalanceCache) Invalidate(_ context.Context, customerID uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, customerID)
	c.drops++
}

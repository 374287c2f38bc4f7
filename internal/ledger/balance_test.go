package ledger

import (
	"context"
	"testing"
	"time"
)

func TestBalanceAggregates(t *testing.T) {
	svc := newTestService(t)

	earnGrant(t, svc, 1, 1000, testBase.Add(-60*24*time.Hour), nil)
	earnGrant(t, svc, 1, 500, testBase.Add(-10*24*time.Hour), nil)
	if _, errRedeem := svc.Redeem(context.Background(), 1, 300); errRedeem != nil {
		t.Fatalf("redeem: %v", errRedeem)
	}

	summary, errBalance := svc.Balance(context.Background(), 1)
	if errBalance != nil {
		t.Fatalf("balance: %v", errBalance)
	}
	if summary.TotalEarned != 1500 {
		t.Fatalf("total earned: got %d want 1500", summary.TotalEarned)
	}
	if summary.TotalRedeemed != 300 {
		t.Fatalf("total redeemed: got %d want 300", summary.TotalRedeemed)
	}
	if summary.Available != 1200 {
		t.Fatalf("available: got %d want 1200", summary.Available)
	}
	if summary.AvailableDollarValue != 12.00 {
		t.Fatalf("dollar value: got %v want 12.00", summary.AvailableDollarValue)
	}
	if summary.RecentEarned != 500 {
		t.Fatalf("recent earned: got %d want 500", summary.RecentEarned)
	}
}

func TestBalanceExcludesUnsweptExpiredLots(t *testing.T) {
	svc := newTestService(t)

	earnGrant(t, svc, 1, 400, testBase.Add(-48*time.Hour), timePtr(testBase.Add(-time.Hour)))
	earnGrant(t, svc, 1, 100, testBase.Add(-time.Hour), nil)

	summary, errBalance := svc.Balance(context.Background(), 1)
	if errBalance != nil {
		t.Fatalf("balance: %v", errBalance)
	}
	if summary.Available != 100 {
		t.Fatalf("available: got %d want 100 (expired lot must not count before the sweep)", summary.Available)
	}
}

func TestBalanceExpiringSoonWindow(t *testing.T) {
	svc := newTestService(t)

	earnGrant(t, svc, 1, 100, testBase.Add(-24*time.Hour), timePtr(testBase.Add(10*24*time.Hour)))  // inside window
	earnGrant(t, svc, 1, 200, testBase.Add(-24*time.Hour), timePtr(testBase.Add(90*24*time.Hour)))  // beyond window
	earnGrant(t, svc, 1, 300, testBase.Add(-24*time.Hour), nil)                                     // never expires

	summary, errBalance := svc.Balance(context.Background(), 1)
	if errBalance != nil {
		t.Fatalf("balance: %v", errBalance)
	}
	if summary.ExpiringSoon != 100 {
		t.Fatalf("expiring soon: got %d want 100", summary.ExpiringSoon)
	}
	if summary.Available != 600 {
		t.Fatalf("available: got %d want 600", summary.Available)
	}
}

func TestBalanceReadThroughCache(t *testing.T) {
	svc := newTestService(t)
	cache := newStubBalanceCache()
	svc.AttachCache(cache)

	earnGrant(t, svc, 1, 100, testBase, nil)
	if cache.drops == 0 {
		t.Fatal("earn must invalidate the cached balance")
	}

	if _, errBalance := svc.Balance(context.Background(), 1); errBalance != nil {
		t.Fatalf("first balance: %v", errBalance)
	}
	if cache.sets != 1 {
		t.Fatalf("cache sets: got %d want 1", cache.sets)
	}

	if _, errBalance := svc.Balance(context.Background(), 1); errBalance != nil {
		t.Fatalf("second balance: %v", errBalance)
	}
	if cache.hits != 1 {
		t.Fatalf("cache hits: got %d want 1", cache.hits)
	}

	dropsBefore := cache.drops
	if _, errRedeem := svc.Redeem(context.Background(), 1, 10); errRedeem != nil {
		t.Fatalf("redeem: %v", errRedeem)
	}
	if cache.drops <= dropsBefore {
		t.Fatal("redeem must invalidate the cached balance")
	}

	summary, errBalance := svc.Balance(context.Background(), 1)
	if errBalance != nil {
		t.Fatalf("third balance: %v", errBalance)
	}
	if summary.Available != 90 {
		t.Fatalf("available after redeem: got %d want 90", summary.Available)
	}
}

// Package cache provides an optional redis-backed snapshot cache for
// balance reads. The ledger invalidates entries on every mutation, so a
// hit is always consistent with the last committed write in this
// deployment.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/cardspring/rewardsledger/internal/ledger"
)

// DefaultTTL bounds staleness against writers outside this deployment
// (manual DB edits, other services). Mutations through the ledger
// invalidate immediately.
const DefaultTTL = 5 * time.Minute

// BalanceCache stores balance summaries in redis.
type BalanceCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to redis and returns a balance cache, or an error when the
// server is unreachable.
func New(addr, password string, db int) (*BalanceCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if errPing := client.Ping(pingCtx).Err(); errPing != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: ping redis: %w", errPing)
	}
	return &BalanceCache{client: client, ttl: DefaultTTL}, nil
}

func balanceKey(customerID uint64) string {
	return fmt.Sprintf("rewardsledger:balance:%d", customerID)
}

// Get returns the cached summary for a customer, if present.
func (c *BalanceCache) Get(ctx context.Context, customerID uint64) (*ledger.BalanceSummary, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	raw, errGet := c.client.Get(ctx, balanceKey(customerID)).Bytes()
	if errGet != nil {
		if !errors.Is(errGet, redis.Nil) {
			log.WithError(errGet).Warn("cache: balance get failed")
		}
		return nil, false
	}
	var summary ledger.BalanceSummary
	if errUnmarshal := json.Unmarshal(raw, &summary); errUnmarshal != nil {
		log.WithError(errUnmarshal).Warn("cache: balance decode failed")
		return nil, false
	}
	return &summary, true
}

// Set stores a summary. Failures are logged and ignored; the cache is an
// optimization, not a source of truth.
func (c *BalanceCache) Set(ctx context.Context, customerID uint64, summary *ledger.BalanceSummary) {
	if c == nil || c.client == nil || summary == nil {
		return
	}
	raw, errMarshal := json.Marshal(summary)
	if errMarshal != nil {
		log.WithError(errMarshal).Warn("cache: balance encode failed")
		return
	}
	if errSet := c.client.Set(ctx, balanceKey(customerID), raw, c.ttl).Err(); errSet != nil {
		log.WithError(errSet).Warn("cache: balance set failed")
	}
}

// Invalidate drops the cached summary for a customer.
func (c *BalanceCache) Invalidate(ctx context.Context, customerID uint64) {
	if c == nil || c.client == nil {
		return
	}
	if errDel := c.client.Del(ctx, balanceKey(customerID)).Err(); errDel != nil {
		log.WithError(errDel).Warn("cache: balance invalidate failed")
	}
}

// Close releases the redis connection.
func (c *BalanceCache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

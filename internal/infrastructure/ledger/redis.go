package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"NewsAlerts/internal/ports"
)

const keyPrefix = "sent:"

// RedisLedger records alerted items in Redis. SET NX with an expiry gives
// both required invariants in one primitive: exactly one concurrent
// inserter wins, and expired records stop being visible to Exists.
type RedisLedger struct {
	client *redis.Client
	ttl    time.Duration
}

var _ ports.SentLedger = (*RedisLedger)(nil)

// NewRedisLedger wires a client and the record lifetime.
func NewRedisLedger(client *redis.Client, ttl time.Duration) *RedisLedger {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisLedger{client: client, ttl: ttl}
}

// Exists reports whether a live (non-expired) record holds the key.
func (l *RedisLedger) Exists(ctx context.Context, key string) (bool, error) {
	n, err := l.client.Exists(ctx, keyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("ledger exists: %w", err)
	}
	return n > 0, nil
}

// Insert atomically claims the key for this ledger's TTL. It returns
// false with no error when a live record already holds the key.
func (l *RedisLedger) Insert(ctx context.Context, key string) (bool, error) {
	sentAt := time.Now().UTC().Format(time.RFC3339)
	won, err := l.client.SetNX(ctx, keyPrefix+key, sentAt, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("ledger insert: %w", err)
	}
	return won, nil
}

// Ping surfaces ledger-store availability for the health endpoint.
func (l *RedisLedger) Ping(ctx context.Context) error {
	if err := l.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ledger ping: %w", err)
	}
	return nil
}

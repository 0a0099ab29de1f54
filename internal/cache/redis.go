// Package cache provides a Redis-backed store for orderbook snapshots shared
// across server instances.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/veithly/PolyAlpha/internal/model"
)

const keyPrefix = "orderbook:"

// DefaultTTL is how long a cached snapshot is served.
const DefaultTTL = 10 * time.Second

type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

// Get returns the cached snapshot for marketID. A miss reports (nil, false, nil).
func (r *RedisStore) Get(ctx context.Context, marketID string) (*model.OrderbookSnapshot, bool, error) {
	payload, err := r.client.Get(ctx, keyPrefix+marketID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get snapshot %s: %w", marketID, err)
	}

	var snap model.OrderbookSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, false, fmt.Errorf("decode snapshot %s: %w", marketID, err)
	}
	return &snap, true, nil
}

// Set stores snap under marketID for the configured TTL.
func (r *RedisStore) Set(ctx context.Context, marketID string, snap *model.OrderbookSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", marketID, err)
	}
	if err := r.client.Set(ctx, keyPrefix+marketID, payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("set snapshot %s: %w", marketID, err)
	}
	return nil
}

// Ping checks the connection.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

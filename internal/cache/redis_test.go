package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veithly/PolyAlpha/internal/model"
)

func newStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(rdb, ttl)
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func TestRedisStore_Miss(t *testing.T) {
	store, _ := newStore(t, time.Second)

	snap, ok, err := store.Get(context.Background(), "m1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, snap)
}

func TestRedisStore_RoundTripAndExpiry(t *testing.T) {
	store, mr := newStore(t, 5*time.Second)
	ctx := context.Background()

	in := &model.OrderbookSnapshot{
		MarketID:  "m1",
		Bids:      []model.PriceLevel{{Price: 0.4, Size: 100}},
		Asks:      []model.PriceLevel{{Price: 0.6, Size: 50}},
		FetchedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, store.Set(ctx, "m1", in))
	assert.True(t, mr.Exists("orderbook:m1"))
	assert.Equal(t, 5*time.Second, mr.TTL("orderbook:m1"))

	out, ok, err := store.Get(ctx, "m1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, in.Bids, out.Bids)
	assert.Equal(t, in.Asks, out.Asks)
	assert.True(t, in.FetchedAt.Equal(out.FetchedAt))

	mr.FastForward(6 * time.Second)

	_, ok, err = store.Get(ctx, "m1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_CorruptValue(t *testing.T) {
	store, mr := newStore(t, time.Second)
	require.NoError(t, mr.Set("orderbook:m1", "not json"))

	_, ok, err := store.Get(context.Background(), "m1")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestRedisStore_DefaultTTLAndPing(t *testing.T) {
	store, _ := newStore(t, 0)
	assert.Equal(t, DefaultTTL, store.ttl)
	assert.NoError(t, store.Ping(context.Background()))
}

func TestRedisStore_Unavailable(t *testing.T) {
	store, mr := newStore(t, time.Second)
	mr.Close()

	_, _, err := store.Get(context.Background(), "m1")
	assert.Error(t, err)
	assert.Error(t, store.Set(context.Background(), "m1", &model.OrderbookSnapshot{}))
}

package state

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tripmesh/core"
)

func newTestRedisStore(t *testing.T, cfg RedisConfig) (*RedisUserStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisUserStoreFromClient(client, cfg), mr
}

func TestRedisUserStore_SetGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestRedisStore(t, RedisConfig{})

	require.NoError(t, store.Set(ctx, "u1", "country", "Morocco"))
	require.NoError(t, store.Set(ctx, "u1", "visits", 3))

	v, ok, err := store.Get(ctx, "u1", "country")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Morocco", v)

	v, ok, err = store.Get(ctx, "u1", "visits")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(3), v)

	_, ok, err = store.Get(ctx, "u1", "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisUserStore_IncrementAfterSet(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestRedisStore(t, RedisConfig{})

	require.NoError(t, store.Set(ctx, "u1", "call_count", 4))
	n, err := store.Increment(ctx, "u1", "call_count")
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}

func TestRedisUserStore_IncrementRejectsString(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestRedisStore(t, RedisConfig{})

	require.NoError(t, store.Set(ctx, "u1", "name", "salah"))
	_, err := store.Increment(ctx, "u1", "name")
	assert.Error(t, err)
}

func TestRedisUserStore_SharedAcrossSessions(t *testing.T) {
	ctx := context.Background()
	users, _ := newTestRedisStore(t, RedisConfig{Prefix: "test:"})

	const n = 25

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := New("u1", users)
			_, err := s.Increment(ctx, core.ScopeUser, "call_count")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	s := New("u1", users)
	v, ok, err := s.Get(ctx, core.ScopeUser, "call_count")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(n), v)

	other := New("u2", users)
	_, ok, err = other.Get(ctx, core.ScopeUser, "call_count")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisUserStore_SnapshotAndTTL(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t, RedisConfig{TTL: time.Minute})

	require.NoError(t, store.Set(ctx, "u1", "tags", []string{"a", "b"}))
	_, err := store.Increment(ctx, "u1", "call_count")
	require.NoError(t, err)

	snap, err := store.Snapshot(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"tags":       []any{"a", "b"},
		"call_count": int64(1),
	}, snap)

	assert.Equal(t, time.Minute, mr.TTL("tripmesh:user:u1"))
}

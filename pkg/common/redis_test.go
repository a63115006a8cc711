package common

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/beam-cloud/searchmigrate/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisLock(t *testing.T) (*RedisLock, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)

	rdb, err := NewRedisClient(types.RedisConfig{Addrs: []string{s.Addr()}, Mode: types.RedisModeSingle})
	require.NoError(t, err)
	t.Cleanup(func() { rdb.Close() })

	return NewRedisLock(rdb), s
}

func TestRedisLockAcquireRelease(t *testing.T) {
	ctx := context.Background()
	lock, s := newTestRedisLock(t)
	key := Keys.MigrationRunLock("website")

	require.NoError(t, lock.Acquire(ctx, key, RedisLockOptions{TtlS: 10}))
	assert.True(t, s.Exists(key))
	assert.Equal(t, "migration:run:website:lock", key)

	err := lock.Acquire(ctx, key, RedisLockOptions{TtlS: 10})
	assert.ErrorIs(t, err, ErrLockNotObtained)

	require.NoError(t, lock.Release(key))
	assert.False(t, s.Exists(key))

	require.NoError(t, lock.Acquire(ctx, key, RedisLockOptions{TtlS: 10}))
	require.NoError(t, lock.Release(key))

	// Releasing twice is a no-op
	assert.NoError(t, lock.Release(key))
}

func TestRedisLockRefresh(t *testing.T) {
	ctx := context.Background()
	lock, s := newTestRedisLock(t)
	key := Keys.MigrationRunLock("website")

	require.NoError(t, lock.Acquire(ctx, key, RedisLockOptions{TtlS: 2}))
	require.NoError(t, lock.Refresh(ctx, key, 30*time.Second))

	s.FastForward(5 * time.Second)
	assert.True(t, s.Exists(key), "refreshed lock outlives its original ttl")

	s.FastForward(30 * time.Second)
	assert.False(t, s.Exists(key))

	// The holder finds out on release and does not fail
	assert.NoError(t, lock.Release(key))
	assert.ErrorIs(t, lock.Refresh(ctx, key, time.Second), ErrLockNotObtained)
}

func TestRedisLockRefreshAfterKeyLost(t *testing.T) {
	ctx := context.Background()
	lock, s := newTestRedisLock(t)
	key := Keys.MigrationRunLock("website")

	require.NoError(t, lock.Acquire(ctx, key, RedisLockOptions{TtlS: 10}))
	s.FlushAll()

	assert.ErrorIs(t, lock.Refresh(ctx, key, 10*time.Second), ErrLockNotObtained)
}

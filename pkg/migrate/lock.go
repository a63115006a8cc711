package migrate

import (
	"context"
	"errors"
	"time"

	"github.com/beam-cloud/searchmigrate/pkg/common"
	"github.com/beam-cloud/searchmigrate/pkg/types"
	"github.com/rs/zerolog/log"
)

// RunLocker serializes migration runs per alias
type RunLocker interface {
	// Lock blocks other runs for alias until release is called. Work for the run
	// must use the returned context, which is cancelled with *types.ErrRunLockLost
	// as its cause if the lock is lost before release.
	Lock(ctx context.Context, alias string) (runCtx context.Context, release func(), err error)
}

// NoopRunLocker is used in local mode where there is no Redis
type NoopRunLocker struct{}

func (NoopRunLocker) Lock(ctx context.Context, alias string) (context.Context, func(), error) {
	return ctx, func() {}, nil
}

// RedisRunLocker holds a Redis lock for the run and keeps refreshing it until released
type RedisRunLocker struct {
	lock *common.RedisLock
	ttl  time.Duration
}

func NewRedisRunLocker(lock *common.RedisLock, ttl time.Duration) *RedisRunLocker {
	if ttl < time.Second {
		ttl = 60 * time.Second
	}
	return &RedisRunLocker{lock: lock, ttl: ttl}
}

func (l *RedisRunLocker) Lock(ctx context.Context, alias string) (context.Context, func(), error) {
	lockKey := common.Keys.MigrationRunLock(alias)

	acquireCtx, cancelAcquire := context.WithTimeout(ctx, l.ttl)
	err := l.lock.Acquire(acquireCtx, lockKey, common.RedisLockOptions{TtlS: int(l.ttl / time.Second), Retries: 0})
	cancelAcquire()
	if errors.Is(err, common.ErrLockNotObtained) {
		return nil, nil, &types.ErrRunInProgress{Alias: alias}
	}
	if err != nil {
		return nil, nil, err
	}

	runCtx, cancelRun := context.WithCancelCause(ctx)
	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(l.ttl / 3)
		defer ticker.Stop()
		refreshed := time.Now()

		for {
			select {
			case <-stop:
				return
			case <-runCtx.Done():
				return
			case <-ticker.C:
			}

			refreshCtx, cancel := context.WithTimeout(runCtx, l.ttl/3)
			err := l.lock.Refresh(refreshCtx, lockKey, l.ttl)
			cancel()

			switch {
			case err == nil:
				refreshed = time.Now()
			case runCtx.Err() != nil:
				return
			case errors.Is(err, common.ErrLockNotObtained), time.Since(refreshed) >= l.ttl:
				log.Error().Err(err).Str("lock_key", lockKey).Msg("run lock lost, aborting run")
				cancelRun(&types.ErrRunLockLost{Alias: alias, Err: err})
				return
			default:
				log.Warn().Err(err).Str("lock_key", lockKey).Msg("failed to refresh run lock")
			}
		}
	}()

	return runCtx, func() {
		close(stop)
		<-done
		cancelRun(nil)
		if err := l.lock.Release(lockKey); err != nil {
			log.Error().Str("lock_key", lockKey).Err(err).Msg("failed to release run lock")
		}
	}, nil
}

// lostLock returns the lock loss that cancelled ctx, if any
func lostLock(ctx context.Context) *types.ErrRunLockLost {
	var lost *types.ErrRunLockLost
	if errors.As(context.Cause(ctx), &lost) {
		return lost
	}
	return nil
}

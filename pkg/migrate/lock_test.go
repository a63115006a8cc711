package migrate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/beam-cloud/searchmigrate/pkg/common"
	"github.com/beam-cloud/searchmigrate/pkg/repository"
	"github.com/beam-cloud/searchmigrate/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunLocker(t *testing.T) (*RedisRunLocker, *miniredis.Miniredis) {
	t.Helper()
	rdb, s, err := repository.NewRedisClientForTest()
	require.NoError(t, err)
	t.Cleanup(func() {
		rdb.Close()
		s.Close()
	})
	return NewRedisRunLocker(common.NewRedisLock(rdb), 3*time.Second), s
}

func TestRedisRunLockerExclusive(t *testing.T) {
	ctx := context.Background()
	locker, _ := newTestRunLocker(t)

	_, release, err := locker.Lock(ctx, "nodes")
	require.NoError(t, err)

	_, _, err = locker.Lock(ctx, "nodes")
	var inProgress *types.ErrRunInProgress
	require.ErrorAs(t, err, &inProgress)
	assert.Equal(t, "nodes", inProgress.Alias)

	// Other aliases are independent
	_, releaseOther, err := locker.Lock(ctx, "users")
	require.NoError(t, err)
	releaseOther()

	release()

	_, release, err = locker.Lock(ctx, "nodes")
	require.NoError(t, err)
	release()
}

func TestRedisRunLockerCancelsWhenLockLost(t *testing.T) {
	locker, s := newTestRunLocker(t)

	runCtx, release, err := locker.Lock(context.Background(), "nodes")
	require.NoError(t, err)
	defer release()

	s.FlushAll()

	assert.Eventually(t, func() bool { return runCtx.Err() != nil }, 4*time.Second, 20*time.Millisecond)
	lost := lostLock(runCtx)
	require.NotNil(t, lost)
	assert.Equal(t, "nodes", lost.Alias)
	assert.Equal(t, types.ErrorKindRunLockLost, types.KindOf(lost))
}

func TestRedisRunLockerReleaseKeepsContextCauseClean(t *testing.T) {
	locker, s := newTestRunLocker(t)

	runCtx, release, err := locker.Lock(context.Background(), "nodes")
	require.NoError(t, err)
	release()

	assert.ErrorIs(t, runCtx.Err(), context.Canceled)
	assert.Nil(t, lostLock(runCtx))
	assert.False(t, s.Exists(common.Keys.MigrationRunLock("nodes")))
}

func TestRunRejectedWhileLocked(t *testing.T) {
	ctx := context.Background()
	locker, _ := newTestRunLocker(t)
	h := newHarness(nodesCategory(), locker)
	h.source.add("nodes", 1)

	_, release, err := locker.Lock(ctx, "nodes")
	require.NoError(t, err)
	defer release()

	_, err = h.orchestrator.Run(ctx, RunOptions{})
	assert.Equal(t, types.ErrorKindRunInProgress, types.KindOf(err))
	assert.False(t, h.backend.has("nodes_v1"), "nothing is provisioned without the lock")
}

func TestRunAbortsBeforeCutoverWhenLockLost(t *testing.T) {
	locker, s := newTestRunLocker(t)
	h := newHarness(nodesCategory(), locker)
	h.backend.seed("nodes_v2", "nodes")
	h.source.add("nodes", seq(1, 50)...)

	// The lock disappears while the first page is being exported
	h.source.beforeExport = func(ctx context.Context) error {
		s.FlushAll()
		<-ctx.Done()
		return ctx.Err()
	}

	_, err := h.orchestrator.Run(context.Background(), RunOptions{DeleteOld: true})
	require.Error(t, err)
	assert.Equal(t, types.ErrorKindRunLockLost, types.KindOf(err))

	assert.Equal(t, []string{"nodes_v2"}, h.backend.boundTo("nodes"), "alias stays on the prior index")
	assert.True(t, h.backend.has("nodes_v2"))
	assert.True(t, h.backend.has("nodes_v3"), "partial index is left for inspection")

	// A second runner can take over
	_, release, err := locker.Lock(context.Background(), "nodes")
	require.NoError(t, err)
	release()
}

func TestNoopRunLocker(t *testing.T) {
	ctx := context.Background()
	runCtx, release, err := NoopRunLocker{}.Lock(ctx, "nodes")
	require.NoError(t, err)
	assert.Equal(t, ctx, runCtx)
	release()
}

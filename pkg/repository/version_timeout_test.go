package repository

import (
	"context"
	"testing"
	"time"

	"github.com/beam-cloud/searchmigrate/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stalledLedger never answers until the caller's context ends
type stalledLedger struct {
	deadlines []bool
}

func (l *stalledLedger) wait(ctx context.Context) error {
	_, ok := ctx.Deadline()
	l.deadlines = append(l.deadlines, ok)
	<-ctx.Done()
	return ctx.Err()
}

func (l *stalledLedger) HighestVersion(ctx context.Context, alias string) (int, error) {
	return 0, l.wait(ctx)
}

func (l *stalledLedger) ReserveVersion(ctx context.Context, alias string, version int, physical string) error {
	return l.wait(ctx)
}

func (l *stalledLedger) MarkCurrent(ctx context.Context, alias string, version int, physical string) error {
	return l.wait(ctx)
}

func (l *stalledLedger) MarkDeleted(ctx context.Context, physical string) error {
	return l.wait(ctx)
}

func (l *stalledLedger) ListVersions(ctx context.Context, alias string) ([]types.IndexVersion, error) {
	return nil, l.wait(ctx)
}

func TestTimeoutLedgerBoundsEveryCall(t *testing.T) {
	ctx := context.Background()
	inner := &stalledLedger{}
	ledger := NewTimeoutLedger(inner, 20*time.Millisecond)

	start := time.Now()
	_, err := ledger.HighestVersion(ctx, "nodes")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, ledger.ReserveVersion(ctx, "nodes", 1, "nodes_v1"), context.DeadlineExceeded)
	assert.ErrorIs(t, ledger.MarkCurrent(ctx, "nodes", 1, "nodes_v1"), context.DeadlineExceeded)
	assert.ErrorIs(t, ledger.MarkDeleted(ctx, "nodes_v1"), context.DeadlineExceeded)
	_, err = ledger.ListVersions(ctx, "nodes")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, []bool{true, true, true, true, true}, inner.deadlines)
}

func TestTimeoutLedgerPassesThrough(t *testing.T) {
	ctx := context.Background()
	ledger := NewTimeoutLedger(NewVersionMemoryLedger(), 0)

	require.NoError(t, ledger.ReserveVersion(ctx, "nodes", 3, "nodes_v3"))
	highest, err := ledger.HighestVersion(ctx, "nodes")
	require.NoError(t, err)
	assert.Equal(t, 3, highest)
}

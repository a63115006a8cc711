package repository

import (
	"context"
	"time"

	"github.com/beam-cloud/searchmigrate/pkg/types"
)

// TimeoutLedger bounds every call into a VersionLedger with its own deadline
type TimeoutLedger struct {
	ledger  VersionLedger
	timeout time.Duration
}

func NewTimeoutLedger(ledger VersionLedger, timeout time.Duration) *TimeoutLedger {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TimeoutLedger{ledger: ledger, timeout: timeout}
}

func (l *TimeoutLedger) HighestVersion(ctx context.Context, alias string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	return l.ledger.HighestVersion(ctx, alias)
}

func (l *TimeoutLedger) ReserveVersion(ctx context.Context, alias string, version int, physical string) error {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	return l.ledger.ReserveVersion(ctx, alias, version, physical)
}

func (l *TimeoutLedger) MarkCurrent(ctx context.Context, alias string, version int, physical string) error {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	return l.ledger.MarkCurrent(ctx, alias, version, physical)
}

func (l *TimeoutLedger) MarkDeleted(ctx context.Context, physical string) error {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	return l.ledger.MarkDeleted(ctx, physical)
}

func (l *TimeoutLedger) ListVersions(ctx context.Context, alias string) ([]types.IndexVersion, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	return l.ledger.ListVersions(ctx, alias)
}

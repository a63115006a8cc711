package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/beam-cloud/searchmigrate/pkg/types"
)

// VersionMemoryLedger implements VersionLedger using in-memory storage.
// This is used for local mode where we don't keep the ledger table.
type VersionMemoryLedger struct {
	mu       sync.RWMutex
	versions map[string]*types.IndexVersion // physical name -> record
}

// NewVersionMemoryLedger creates a new in-memory version ledger
func NewVersionMemoryLedger() *VersionMemoryLedger {
	return &VersionMemoryLedger{
		versions: make(map[string]*types.IndexVersion),
	}
}

func (l *VersionMemoryLedger) HighestVersion(ctx context.Context, alias string) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	highest := 0
	for _, v := range l.versions {
		if v.Alias == alias && v.Version > highest {
			highest = v.Version
		}
	}
	return highest, nil
}

func (l *VersionMemoryLedger) ReserveVersion(ctx context.Context, alias string, version int, physical string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.versions[physical]; ok {
		return &types.ErrProvisioningConflict{Index: physical}
	}
	for _, v := range l.versions {
		if v.Alias == alias && v.Version == version {
			return &types.ErrProvisioningConflict{Index: physical}
		}
	}

	l.versions[physical] = &types.IndexVersion{
		Alias:     alias,
		Version:   version,
		Physical:  physical,
		Status:    types.IndexVersionProvisioned,
		CreatedAt: time.Now(),
	}
	return nil
}

func (l *VersionMemoryLedger) MarkCurrent(ctx context.Context, alias string, version int, physical string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for name, v := range l.versions {
		if v.Alias == alias && v.Status == types.IndexVersionCurrent && name != physical {
			v.Status = types.IndexVersionRetired
			v.RetiredAt = &now
		}
	}

	v, ok := l.versions[physical]
	if !ok {
		v = &types.IndexVersion{Alias: alias, Version: version, Physical: physical, CreatedAt: now}
		l.versions[physical] = v
	}
	v.Status = types.IndexVersionCurrent
	v.CutoverAt = &now
	return nil
}

func (l *VersionMemoryLedger) MarkDeleted(ctx context.Context, physical string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if v, ok := l.versions[physical]; ok {
		now := time.Now()
		v.Status = types.IndexVersionDeleted
		v.DeletedAt = &now
	}
	return nil
}

func (l *VersionMemoryLedger) ListVersions(ctx context.Context, alias string) ([]types.IndexVersion, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []types.IndexVersion
	for _, v := range l.versions {
		if v.Alias == alias {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

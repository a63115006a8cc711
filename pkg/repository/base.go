package repository

import (
	"context"
	"database/sql"

	"github.com/beam-cloud/searchmigrate/pkg/types"
)

// SourceRepository reads pre-shaped search documents out of the transactional store.
// Implementations must not mutate source data.
type SourceRepository interface {
	// MaxID returns the highest identifier currently present for a category (0 when empty)
	MaxID(ctx context.Context, category types.Category) (int64, error)

	// ExportPage runs the category export query for ids in [pageStart, pageEnd),
	// stamping index as the destination of every returned document.
	ExportPage(ctx context.Context, category types.Category, index string, pageStart, pageEnd int64) ([]types.Document, error)
}

// VersionLedger remembers every physical index version ever issued per alias.
// Records outlive index deletion so version numbers are never reused.
type VersionLedger interface {
	HighestVersion(ctx context.Context, alias string) (int, error)
	ReserveVersion(ctx context.Context, alias string, version int, physical string) error
	MarkCurrent(ctx context.Context, alias string, version int, physical string) error
	MarkDeleted(ctx context.Context, physical string) error
	ListVersions(ctx context.Context, alias string) ([]types.IndexVersion, error)
}

// BackendRepository is the Postgres repository: source exports plus the version ledger.
type BackendRepository interface {
	SourceRepository
	VersionLedger

	// Database access
	DB() *sql.DB

	// Utilities
	Ping(ctx context.Context) error
	Close() error
	RunMigrations() error
}

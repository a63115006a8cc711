package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/beam-cloud/searchmigrate/pkg/types"
	"github.com/lib/pq"
)

// Version ledger methods on PostgresBackend

// HighestVersion returns the highest version ever reserved for alias, 0 if none
func (b *PostgresBackend) HighestVersion(ctx context.Context, alias string) (int, error) {
	var version int
	err := b.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM search_index_version WHERE alias = $1`,
		alias,
	).Scan(&version)
	if err != nil {
		return 0, classifyQueryError("highest version", err)
	}
	return version, nil
}

// ReserveVersion records a version before its physical index is created
func (b *PostgresBackend) ReserveVersion(ctx context.Context, alias string, version int, physical string) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO search_index_version (alias, version, physical_name, status)
		VALUES ($1, $2, $3, $4)
	`, alias, version, physical, types.IndexVersionProvisioned)
	if isUniqueViolation(err) {
		return &types.ErrProvisioningConflict{Index: physical}
	}
	if err != nil {
		return classifyQueryError("reserve version", err)
	}
	return nil
}

// MarkCurrent records a cutover: the previous current version of alias becomes retired
func (b *PostgresBackend) MarkCurrent(ctx context.Context, alias string, version int, physical string) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return classifyQueryError("begin cutover", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE search_index_version
		SET status = $3, retired_at = CURRENT_TIMESTAMP
		WHERE alias = $1 AND status = $4 AND physical_name <> $2
	`, alias, physical, types.IndexVersionRetired, types.IndexVersionCurrent); err != nil {
		return classifyQueryError("retire previous version", err)
	}

	// Upsert so that versions created outside the ledger (legacy bootstrap) are recorded
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO search_index_version (alias, version, physical_name, status, cutover_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP)
		ON CONFLICT (physical_name) DO UPDATE
		SET status = EXCLUDED.status, cutover_at = EXCLUDED.cutover_at
	`, alias, version, physical, types.IndexVersionCurrent); err != nil {
		return classifyQueryError("mark current version", err)
	}

	if err := tx.Commit(); err != nil {
		return classifyQueryError("commit cutover", err)
	}
	return nil
}

// MarkDeleted records that a physical index was deleted
func (b *PostgresBackend) MarkDeleted(ctx context.Context, physical string) error {
	_, err := b.db.ExecContext(ctx, `
		UPDATE search_index_version
		SET status = $2, deleted_at = CURRENT_TIMESTAMP
		WHERE physical_name = $1
	`, physical, types.IndexVersionDeleted)
	if err != nil {
		return classifyQueryError("mark deleted", err)
	}
	return nil
}

// ListVersions returns every ledger record for alias, oldest first
func (b *PostgresBackend) ListVersions(ctx context.Context, alias string) ([]types.IndexVersion, error) {
	rows, err := b.db.QueryContext(ctx, `
		SELECT alias, version, physical_name, status, created_at, cutover_at, retired_at, deleted_at
		FROM search_index_version
		WHERE alias = $1
		ORDER BY version ASC
	`, alias)
	if err != nil {
		return nil, classifyQueryError("list versions", err)
	}
	defer rows.Close()

	var versions []types.IndexVersion
	for rows.Next() {
		var v types.IndexVersion
		var cutoverAt, retiredAt, deletedAt sql.NullTime
		if err := rows.Scan(&v.Alias, &v.Version, &v.Physical, &v.Status, &v.CreatedAt, &cutoverAt, &retiredAt, &deletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan index version: %w", err)
		}
		if cutoverAt.Valid {
			v.CutoverAt = &cutoverAt.Time
		}
		if retiredAt.Valid {
			v.RetiredAt = &retiredAt.Time
		}
		if deletedAt.Valid {
			v.DeletedAt = &deletedAt.Time
		}
		versions = append(versions, v)
	}

	return versions, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation"
}

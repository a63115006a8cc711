package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"github.com/beam-cloud/searchmigrate/pkg/types"
	"github.com/lib/pq"
)

// Export methods on PostgresBackend

// MaxID returns the highest id in the category's source table
func (b *PostgresBackend) MaxID(ctx context.Context, category types.Category) (int64, error) {
	query := fmt.Sprintf(`SELECT COALESCE(MAX(id), 0) FROM %s`, pq.QuoteIdentifier(category.Table))

	var maxID int64
	if err := b.db.QueryRowContext(ctx, query).Scan(&maxID); err != nil {
		return 0, classifyQueryError("max id "+category.Name, err)
	}
	return maxID, nil
}

// ExportPage runs the category export query for one id window.
// The query returns a single JSON array column, or NULL when the window has no rows.
func (b *PostgresBackend) ExportPage(ctx context.Context, category types.Category, index string, pageStart, pageEnd int64) ([]types.Document, error) {
	args := make([]any, 0, 3+len(category.Args))
	args = append(args, pageStart, pageEnd, index)
	args = append(args, category.Args...)

	var raw []byte
	err := b.db.QueryRowContext(ctx, category.Query, args...).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, classifyQueryError("export "+category.Name, err)
	}

	docs, err := decodeDocuments(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s export [%d, %d): %w", category.Name, pageStart, pageEnd, err)
	}
	return docs, nil
}

// decodeDocuments parses the JSON array produced by an export query
func decodeDocuments(raw []byte) ([]types.Document, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var docs []types.Document
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// classifyQueryError marks connectivity failures and timeouts as transport errors
func classifyQueryError(op string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.As(err, &netErr) {
		return &types.ErrTransport{Op: op, Err: err}
	}
	return fmt.Errorf("failed to run %s query: %w", op, err)
}

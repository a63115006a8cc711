// Package migrate rebuilds a search index behind its alias without downtime:
// it provisions a new physical index version, pages every entity category out of
// the source store into it, then cuts the alias over and optionally retires the
// prior version.
package migrate

import (
	"context"

	"github.com/beam-cloud/searchmigrate/pkg/search"
	"github.com/beam-cloud/searchmigrate/pkg/types"
)

// SearchBackend is the subset of the search cluster API the migration needs.
// *search.Client implements it.
type SearchBackend interface {
	CreateIndex(ctx context.Context, name string, tmpl search.Template) error
	DeleteIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	ListIndices(ctx context.Context, pattern string) ([]string, error)
	Refresh(ctx context.Context, name string) error
	Reindex(ctx context.Context, source, dest string) (*search.ReindexResult, error)

	GetAliases(ctx context.Context, name string) (map[string][]string, error)
	UpdateAliases(ctx context.Context, actions []search.AliasAction) error
	PutAlias(ctx context.Context, index, alias string) error
	DeleteAlias(ctx context.Context, index, alias string) error

	Bulk(ctx context.Context, docs []types.Document) (*search.BulkResponse, error)
}

var _ SearchBackend = (*search.Client)(nil)

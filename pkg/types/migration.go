package types

import (
	"encoding/json"
	"sort"
	"time"
)

// Category is one entity category migrated into the search index
type Category struct {
	Name      string
	Table     string // source table used for the max-id snapshot
	Query     string // export query: $1 page_start, $2 page_end, $3 index, then Args
	Increment int64
	Priority  int   // lower values migrate first
	Args      []any // category-specific query flags
}

// DefaultIncrement is the page width used when a category does not set one
const DefaultIncrement int64 = 10000

// CategoriesFromConfig builds the enabled categories in migration order.
// Categories with the same priority keep their configured order.
func CategoriesFromConfig(cfg MigrationConfig) []Category {
	categories := make([]Category, 0, len(cfg.Categories))
	for _, c := range cfg.Categories {
		if !c.Enabled {
			continue
		}

		increment := c.Increment
		if increment <= 0 {
			increment = DefaultIncrement
		}

		var args []any
		if c.SpamFilter {
			args = append(args, cfg.SpamFlaggedRemovedFromSearch)
		}

		categories = append(categories, Category{
			Name:      c.Name,
			Table:     c.Table,
			Query:     c.Query,
			Increment: increment,
			Priority:  c.Priority,
			Args:      args,
		})
	}

	sort.SliceStable(categories, func(i, j int) bool {
		return categories[i].Priority < categories[j].Priority
	})
	return categories
}

// Page is a half-open identifier window [Start, End) of one category
type Page struct {
	Number   int
	Start    int64
	End      int64
	Total    int  // windows needed to cover [0, max_id]
	Overscan bool // the extra boundary window past the last covering one
}

// Bulk operation types accepted in exported documents
const (
	OpIndex  = "index"
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Document is one pre-shaped bulk action produced by a category export query
type Document struct {
	OpType      string          `json:"_op_type,omitempty"`
	Index       string          `json:"_index"`
	ID          string          `json:"_id"`
	Source      json.RawMessage `json:"_source,omitempty"`
	Doc         json.RawMessage `json:"doc,omitempty"`
	DocAsUpsert bool            `json:"doc_as_upsert,omitempty"`
}

// Op returns the bulk operation, defaulting to index
func (d *Document) Op() string {
	if d.OpType == "" {
		return OpIndex
	}
	return d.OpType
}

// AliasState is the observed shape of a logical index on the backend
type AliasState string

const (
	AliasStateNoAlias       AliasState = "no_alias"
	AliasStateLegacyIndex   AliasState = "legacy_index"
	AliasStateSingleVersion AliasState = "single_version"
	AliasStateSteady        AliasState = "steady"
	AliasStateTransitioning AliasState = "transitioning"
)

// IndexVersionStatus tracks a physical index through its lifecycle
type IndexVersionStatus string

const (
	IndexVersionProvisioned IndexVersionStatus = "provisioned"
	IndexVersionCurrent     IndexVersionStatus = "current"
	IndexVersionRetired     IndexVersionStatus = "retired" // alias moved away
	IndexVersionDeleted     IndexVersionStatus = "deleted"
)

// IndexVersion is a ledger record of a physical index ever issued for an alias
type IndexVersion struct {
	Alias     string             `json:"alias"`
	Version   int                `json:"version"`
	Physical  string             `json:"physical"`
	Status    IndexVersionStatus `json:"status"`
	CreatedAt time.Time          `json:"created_at"`
	CutoverAt *time.Time         `json:"cutover_at,omitempty"`
	RetiredAt *time.Time         `json:"retired_at,omitempty"`
	DeletedAt *time.Time         `json:"deleted_at,omitempty"`
}

// CategoryResult summarizes one category pass
type CategoryResult struct {
	Name     string        `json:"name"`
	MaxID    int64         `json:"max_id"`
	Pages    int           `json:"pages"`
	Exported int           `json:"exported"`
	Indexed  int           `json:"indexed"`
	Duration time.Duration `json:"duration"`
}

// RunResult summarizes a completed migration run
type RunResult struct {
	RunID      string           `json:"run_id"`
	Alias      string           `json:"alias"`
	NewIndex   string           `json:"new_index"`
	PriorIndex string           `json:"prior_index,omitempty"`
	Retired    bool             `json:"retired"`
	Categories []CategoryResult `json:"categories"`
	Duration   time.Duration    `json:"duration"`
}

// Exported returns the number of documents exported across all categories
func (r *RunResult) Exported() int {
	total := 0
	for _, c := range r.Categories {
		total += c.Exported
	}
	return total
}

package migrate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/beam-cloud/searchmigrate/pkg/common"
	"github.com/beam-cloud/searchmigrate/pkg/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Config holds orchestrator configuration
type Config struct {
	// Alias is the logical index migrated when RunOptions.IndexName is empty
	Alias string

	// Categories in migration order (see types.CategoriesFromConfig)
	Categories []types.Category

	// Concurrency bounds how many categories of one priority migrate at once.
	// Default: 1 (fully sequential)
	Concurrency int
}

// RunOptions parameterize a single migration run
type RunOptions struct {
	DeleteOld bool
	IndexName string // overrides Config.Alias
}

// EventEmitter receives migration lifecycle events. *common.EventBus implements it.
type EventEmitter interface {
	Emit(ctx context.Context, e common.Event)
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, common.Event) {}

var _ EventEmitter = (*common.EventBus)(nil)

// Orchestrator sequences a full migration: provision, populate, cut over, retire
type Orchestrator struct {
	cfg      Config
	exporter *Exporter
	indexer  *BulkIndexer
	versions *VersionManager
	locker   RunLocker
	events   EventEmitter
}

func NewOrchestrator(cfg Config, exporter *Exporter, indexer *BulkIndexer, versions *VersionManager, locker RunLocker) *Orchestrator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if locker == nil {
		locker = NoopRunLocker{}
	}
	return &Orchestrator{
		cfg:      cfg,
		exporter: exporter,
		indexer:  indexer,
		versions: versions,
		locker:   locker,
		events:   noopEmitter{},
	}
}

// SetEvents routes lifecycle events to emitter
func (o *Orchestrator) SetEvents(emitter EventEmitter) {
	if emitter == nil {
		emitter = noopEmitter{}
	}
	o.events = emitter
}

// Run migrates every category into a new physical index and cuts the alias over.
// Any failure before cutover leaves the alias on the prior index; the partially
// built index is left in place and a re-run provisions the next version.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (*types.RunResult, error) {
	alias := opts.IndexName
	if alias == "" {
		alias = o.cfg.Alias
	}
	if alias == "" {
		return nil, fmt.Errorf("no index name configured")
	}

	start := time.Now()
	result := &types.RunResult{RunID: uuid.New().String(), Alias: alias}
	logger := log.With().Str("run_id", result.RunID).Str("alias", alias).Logger()

	ctx, release, err := o.locker.Lock(ctx, alias)
	if err != nil {
		logger.Error().Err(err).Str("phase", "lock").Msg("migration aborted")
		return nil, err
	}
	defer release()

	// Events still go out once the run context is cancelled
	emitCtx := context.WithoutCancel(ctx)

	fail := func(phase string, err error) error {
		if lost := lostLock(ctx); lost != nil {
			err = lost
		}
		logger.Error().Err(err).Str("phase", phase).Str("index", result.NewIndex).Msg("migration aborted")
		o.events.Emit(emitCtx, common.Event{Type: common.EventMigrationFailed, Data: map[string]any{
			"run_id": result.RunID, "alias": alias, "index": result.NewIndex, "phase": phase, "error": err.Error(),
		}})
		return err
	}

	prior, _, err := o.versions.ResolveCurrent(ctx, alias)
	if err != nil {
		return nil, fail("resolve", err)
	}
	result.PriorIndex = prior

	newIndex, err := o.versions.ProvisionNewVersion(ctx, alias)
	if err != nil {
		return nil, fail("provision", err)
	}
	result.NewIndex = newIndex
	logger.Info().Str("index", newIndex).Str("prior", prior).Msg("migrating to new index")
	o.events.Emit(emitCtx, common.Event{Type: common.EventMigrationStarted, Data: map[string]any{
		"run_id": result.RunID, "alias": alias, "index": newIndex, "prior": prior,
	}})

	categories, err := o.migrateCategories(ctx, newIndex)
	result.Categories = categories
	if err != nil {
		return result, fail("migrate", err)
	}

	// Another runner may own the alias once the lock is gone
	if lost := lostLock(ctx); lost != nil {
		return result, fail("cutover", lost)
	}

	if err := o.versions.Cutover(ctx, alias, newIndex); err != nil {
		return result, fail("cutover", err)
	}
	o.events.Emit(emitCtx, common.Event{Type: common.EventAliasCutover, Data: map[string]any{
		"run_id": result.RunID, "alias": alias, "from": prior, "to": newIndex,
	}})

	switch {
	case !opts.DeleteOld:
		if prior != "" {
			logger.Info().Str("index", prior).Msg("old index retained")
		}
	case prior == "" || prior == newIndex:
		logger.Info().Str("index", newIndex).Msg("no old index to delete")
	default:
		if err := o.versions.Retire(ctx, prior); err != nil {
			return result, fail("retire", err)
		}
		result.Retired = true
		o.events.Emit(emitCtx, common.Event{Type: common.EventIndexRetired, Data: map[string]any{
			"run_id": result.RunID, "alias": alias, "index": prior,
		}})
		logger.Info().Str("index", prior).Msg("old index deleted")
	}

	result.Duration = time.Since(start)
	logger.Info().
		Str("index", newIndex).
		Int("exported", result.Exported()).
		Dur("duration", result.Duration).
		Msg("migration complete")
	return result, nil
}

// migrateCategories runs priority groups in order. Categories inside a group run
// concurrently up to the configured limit; the first failure cancels the group.
func (o *Orchestrator) migrateCategories(ctx context.Context, index string) ([]types.CategoryResult, error) {
	var (
		mu      sync.Mutex
		results []types.CategoryResult
	)

	for _, group := range priorityGroups(o.cfg.Categories) {
		eg, groupCtx := errgroup.WithContext(ctx)
		eg.SetLimit(o.cfg.Concurrency)

		for _, category := range group {
			category := category
			eg.Go(func() error {
				res, err := o.migrateCategory(groupCtx, category, index)
				mu.Lock()
				results = append(results, res)
				mu.Unlock()
				if err != nil {
					return fmt.Errorf("migrate %s: %w", category.Name, err)
				}
				return nil
			})
		}

		if err := eg.Wait(); err != nil {
			return results, err
		}
	}

	return results, nil
}

// migrateCategory pages one category into index, strictly one page at a time
func (o *Orchestrator) migrateCategory(ctx context.Context, category types.Category, index string) (types.CategoryResult, error) {
	start := time.Now()
	res := types.CategoryResult{Name: category.Name}
	logger := log.With().Str("category", category.Name).Str("index", index).Logger()

	maxID, err := o.exporter.MaxID(ctx, category)
	if err != nil {
		logger.Error().Err(err).Msg("failed to snapshot max id")
		return res, err
	}
	res.MaxID = maxID
	logger.Info().Int64("max_id", maxID).Int64("increment", category.Increment).Msg("migrating category")

	for _, page := range Pages(maxID, category.Increment) {
		if page.Overscan {
			logger.Info().Int64("page_start", page.Start).Int64("page_end", page.End).Msg("cleaning up")
		} else {
			logger.Info().Msgf("updating page %d / %d", page.Number, page.Total)
		}

		docs, err := o.exporter.Export(ctx, category, index, page.Start, page.End)
		if err != nil {
			logger.Error().Err(err).Int("page", page.Number).Msg("export failed")
			return res, err
		}

		indexed, err := o.indexer.Index(ctx, index, docs)
		if err != nil {
			logger.Error().Err(err).Int("page", page.Number).Msg("bulk write failed")
			return res, err
		}

		res.Pages++
		res.Exported += len(docs)
		res.Indexed += indexed
	}

	res.Duration = time.Since(start)
	logger.Info().
		Int("exported", res.Exported).
		Int("indexed", res.Indexed).
		Dur("duration", res.Duration).
		Uint64("rss_bytes", residentBytes(ctx)).
		Msgf("%d %s migrated", res.Exported, category.Name)
	return res, nil
}

// priorityGroups splits ordered categories into runs of equal priority
func priorityGroups(categories []types.Category) [][]types.Category {
	var groups [][]types.Category
	for i, category := range categories {
		if i == 0 || category.Priority != categories[i-1].Priority {
			groups = append(groups, nil)
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], category)
	}
	return groups
}

package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/beam-cloud/searchmigrate/pkg/common"
	"github.com/beam-cloud/searchmigrate/pkg/migrate"
	"github.com/beam-cloud/searchmigrate/pkg/repository"
	"github.com/beam-cloud/searchmigrate/pkg/search"
	"github.com/beam-cloud/searchmigrate/pkg/types"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// app holds the wired components shared by every subcommand
type app struct {
	config   types.AppConfig
	search   *search.Client
	postgres *repository.PostgresBackend
	redis    *common.RedisClient
	events   *common.EventBus
	ledger   repository.VersionLedger
	versions *migrate.VersionManager
	locker   migrate.RunLocker
}

func loadConfig() (types.AppConfig, error) {
	configManager, err := common.NewConfigManager[types.AppConfig](configPath)
	if err != nil {
		return types.AppConfig{}, err
	}
	config, err := configManager.GetConfig()
	if err != nil {
		return types.AppConfig{}, err
	}

	if config.PrettyLogs {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	if config.DebugMode {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	return config, nil
}

// newApp connects to the search backend and the source database and brings the
// version ledger schema up to date. In remote mode it also connects to Redis.
func newApp(ctx context.Context) (*app, error) {
	config, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a := &app{config: config}

	a.search = search.NewClient(search.ConfigFromApp(config.Search))
	if err := a.search.Ping(ctx); err != nil {
		return nil, fmt.Errorf("search backend: %w", err)
	}

	a.postgres, err = repository.NewPostgresBackend(config.Database.Postgres)
	if err != nil {
		return nil, err
	}

	// The ledger lives in Postgres in every mode so version numbers survive the process
	if err := a.postgres.RunMigrations(); err != nil {
		a.Close()
		return nil, fmt.Errorf("version ledger migrations: %w", err)
	}
	a.ledger = repository.NewTimeoutLedger(a.postgres, config.Migration.LedgerTimeout)

	if config.IsLocalMode() {
		log.Info().Msg("local mode: no run lock")
		a.locker = migrate.NoopRunLocker{}
	} else {
		a.redis, err = common.NewRedisClient(config.Database.Redis)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.locker = migrate.NewRedisRunLocker(common.NewRedisLock(a.redis), config.Migration.LockTTL)
	}
	// Without Redis, events only reach handlers registered in this process
	a.events = common.NewEventBus(a.redis)

	template, err := search.LoadTemplate(config.Search.TemplatePath)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.versions = migrate.NewVersionManager(a.search, a.ledger, template, config.Search.AtomicAliasSwap)

	return a, nil
}

func (a *app) orchestrator() *migrate.Orchestrator {
	orchestrator := migrate.NewOrchestrator(
		migrate.Config{
			Alias:       a.config.Search.Index,
			Categories:  types.CategoriesFromConfig(a.config.Migration),
			Concurrency: a.config.Migration.Concurrency,
		},
		migrate.NewExporter(a.postgres, a.config.Migration.ExportTimeout),
		migrate.NewBulkIndexer(a.search),
		a.versions,
		a.locker,
	)
	orchestrator.SetEvents(a.events)
	return orchestrator
}

// alias returns the --index override or the configured alias
func (a *app) alias(override string) string {
	if override != "" {
		return override
	}
	return a.config.Search.Index
}

func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
}

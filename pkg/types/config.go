package types

import (
	"time"
)

// Mode constants for migration runs
const (
	ModeLocal  = "local"  // No Redis, no run lock
	ModeRemote = "remote" // Redis run lock + Postgres version ledger
)

// AppConfig is the root configuration for searchmigrate
type AppConfig struct {
	Mode       string `key:"mode" json:"mode"` // "local" or "remote"
	DebugMode  bool   `key:"debugMode" json:"debug_mode"`
	PrettyLogs bool   `key:"prettyLogs" json:"pretty_logs"`

	Database  DatabaseConfig  `key:"database" json:"database"`
	Search    SearchConfig    `key:"search" json:"search"`
	Migration MigrationConfig `key:"migration" json:"migration"`
}

// IsLocalMode returns true if running in local mode (no Redis)
func (c *AppConfig) IsLocalMode() bool {
	return c.Mode == ModeLocal
}

// ----------------------------------------------------------------------------
// Database Configuration
// ----------------------------------------------------------------------------

type DatabaseConfig struct {
	Redis    RedisConfig    `key:"redis" json:"redis"`
	Postgres PostgresConfig `key:"postgres" json:"postgres"`
}

type RedisMode string

const (
	RedisModeSingle  RedisMode = "single"
	RedisModeCluster RedisMode = "cluster"
)

type RedisConfig struct {
	Mode               RedisMode     `key:"mode" json:"mode"`
	Addrs              []string      `key:"addrs" json:"addrs"`
	Username           string        `key:"username" json:"username"`
	Password           string        `key:"password" json:"password"`
	ClientName         string        `key:"clientName" json:"client_name"`
	EnableTLS          bool          `key:"enableTLS" json:"enable_tls"`
	InsecureSkipVerify bool          `key:"insecureSkipVerify" json:"insecure_skip_verify"`
	PoolSize           int           `key:"poolSize" json:"pool_size"`
	MinIdleConns       int           `key:"minIdleConns" json:"min_idle_conns"`
	MaxIdleConns       int           `key:"maxIdleConns" json:"max_idle_conns"`
	ConnMaxIdleTime    time.Duration `key:"connMaxIdleTime" json:"conn_max_idle_time"`
	ConnMaxLifetime    time.Duration `key:"connMaxLifetime" json:"conn_max_lifetime"`
	DialTimeout        time.Duration `key:"dialTimeout" json:"dial_timeout"`
	ReadTimeout        time.Duration `key:"readTimeout" json:"read_timeout"`
	WriteTimeout       time.Duration `key:"writeTimeout" json:"write_timeout"`
	MaxRedirects       int           `key:"maxRedirects" json:"max_redirects"`
	MaxRetries         int           `key:"maxRetries" json:"max_retries"`
	RouteByLatency     bool          `key:"routeByLatency" json:"route_by_latency"`
}

type PostgresConfig struct {
	Host            string        `key:"host" json:"host"`
	Port            int           `key:"port" json:"port"`
	User            string        `key:"user" json:"user"`
	Password        string        `key:"password" json:"password"`
	Database        string        `key:"database" json:"database"`
	SSLMode         string        `key:"sslMode" json:"ssl_mode"`
	MaxOpenConns    int           `key:"maxOpenConns" json:"max_open_conns"`
	MaxIdleConns    int           `key:"maxIdleConns" json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `key:"connMaxLifetime" json:"conn_max_lifetime"`
}

// ----------------------------------------------------------------------------
// Search Backend Configuration
// ----------------------------------------------------------------------------

// SearchConfig configures the Elasticsearch cluster that serves the alias
type SearchConfig struct {
	URL          string        `key:"url" json:"url"`     // e.g., "http://localhost:9200"
	Index        string        `key:"index" json:"index"` // logical index (alias) name
	Username     string        `key:"username" json:"username"`
	Password     string        `key:"password" json:"password"`
	AdminTimeout time.Duration `key:"adminTimeout" json:"admin_timeout"` // create/delete/alias calls
	BulkTimeout  time.Duration `key:"bulkTimeout" json:"bulk_timeout"`
	// ReindexTimeout bounds the one-time legacy bootstrap copy
	ReindexTimeout time.Duration `key:"reindexTimeout" json:"reindex_timeout"`

	// AtomicAliasSwap uses a single _aliases request for cutover. When false, the
	// alias is removed from the old index and then added to the new one.
	AtomicAliasSwap bool `key:"atomicAliasSwap" json:"atomic_alias_swap"`

	// TemplatePath is an optional YAML/JSON file holding settings and mappings for new indices
	TemplatePath string `key:"templatePath" json:"template_path"`
}

// ----------------------------------------------------------------------------
// Migration Configuration
// ----------------------------------------------------------------------------

type MigrationConfig struct {
	// Concurrency bounds how many categories of the same priority migrate at once
	Concurrency   int           `key:"concurrency" json:"concurrency"`
	ExportTimeout time.Duration `key:"exportTimeout" json:"export_timeout"`
	LockTTL       time.Duration `key:"lockTtl" json:"lock_ttl"`
	LedgerTimeout time.Duration `key:"ledgerTimeout" json:"ledger_timeout"`
	DeleteOld     bool          `key:"deleteOld" json:"delete_old"`

	// SpamFlaggedRemovedFromSearch is passed to categories that declare the flag
	SpamFlaggedRemovedFromSearch bool `key:"spamFlaggedRemovedFromSearch" json:"spam_flagged_removed_from_search"`

	Categories []CategoryConfig `key:"categories" json:"categories"`
}

// CategoryConfig declares one entity category and its export query
type CategoryConfig struct {
	Name      string `key:"name" json:"name"`
	Table     string `key:"table" json:"table"`
	Query     string `key:"query" json:"query"`
	Increment int64  `key:"increment" json:"increment"`
	Priority  int    `key:"priority" json:"priority"`
	Enabled   bool   `key:"enabled" json:"enabled"`

	// SpamFilter passes MigrationConfig.SpamFlaggedRemovedFromSearch as the fourth query argument
	SpamFilter bool `key:"spamFilter" json:"spam_filter"`
}

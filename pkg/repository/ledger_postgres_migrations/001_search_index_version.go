package ledger_postgres_migrations

import (
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigration(upSearchIndexVersion, downSearchIndexVersion)
}

func upSearchIndexVersion(tx *sql.Tx) error {
	createStatements := []string{
		`CREATE TYPE search_index_version_status AS ENUM ('provisioned', 'current', 'retired', 'deleted');`,

		// One row per physical index ever issued for an alias. Rows are never deleted,
		// so the highest version survives index deletion.
		`CREATE TABLE IF NOT EXISTS search_index_version (
			id SERIAL PRIMARY KEY,
			alias VARCHAR(255) NOT NULL,
			version INTEGER NOT NULL CHECK (version > 0),
			physical_name VARCHAR(255) NOT NULL UNIQUE,
			status search_index_version_status NOT NULL DEFAULT 'provisioned',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			cutover_at TIMESTAMP WITH TIME ZONE,
			retired_at TIMESTAMP WITH TIME ZONE,
			deleted_at TIMESTAMP WITH TIME ZONE,
			UNIQUE (alias, version)
		);`,

		`CREATE INDEX idx_search_index_version_alias ON search_index_version(alias);`,
	}

	for _, stmt := range createStatements {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func downSearchIndexVersion(tx *sql.Tx) error {
	dropStatements := []string{
		`DROP TABLE IF EXISTS search_index_version;`,
		`DROP TYPE IF EXISTS search_index_version_status;`,
	}

	for _, stmt := range dropStatements {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

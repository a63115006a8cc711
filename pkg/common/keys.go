package common

import "fmt"

var (
	// Migration keys
	migrationPrefix  string = "migration"
	migrationRunLock string = "migration:run:%s:lock" // alias
)

var Keys = &redisKeys{}

type redisKeys struct{}

// Migration keys
func (rk *redisKeys) MigrationPrefix() string {
	return migrationPrefix
}

func (rk *redisKeys) MigrationRunLock(alias string) string {
	return fmt.Sprintf(migrationRunLock, alias)
}

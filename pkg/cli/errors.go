package cli

import (
	"errors"
	"fmt"

	"github.com/beam-cloud/searchmigrate/pkg/types"
)

// ErrorMessages maps error kinds to user-friendly prefixes
var ErrorMessages = map[types.ErrorKind]string{
	types.ErrorKindTransport:            "Could not reach a backing service",
	types.ErrorKindBackend:              "The search backend rejected the request",
	types.ErrorKindProvisioningConflict: "The next index version already exists",
	types.ErrorKindAliasStateConflict:   "The alias is in an unexpected state",
	types.ErrorKindRunInProgress:        "Another migration is running for this alias",
	types.ErrorKindRunLockLost:          "The migration lost its run lock and stopped before cutover",
	types.ErrorKindInvalidPage:          "Invalid export page",
	types.ErrorKindDocumentTarget:       "Export produced a document for the wrong index",
}

// ErrorSuggestions maps error kinds to helpful suggestions
var ErrorSuggestions = map[types.ErrorKind][]string{
	types.ErrorKindTransport: {
		"Check search.url and database.postgres in your config",
		"Raise search.bulkTimeout or migration.exportTimeout for slow clusters",
	},
	types.ErrorKindProvisioningConflict: {
		"Run 'searchmigrate status' to see which versions exist",
		"Re-run the migration; a fresh version number is reserved each run",
	},
	types.ErrorKindAliasStateConflict: {
		"Run 'searchmigrate status' to inspect the alias bindings",
		"Remove the alias from all but one index before retrying",
	},
	types.ErrorKindRunInProgress: {
		"Wait for the other run to finish",
		"The lock expires on its own after migration.lockTtl if the holder died",
	},
	types.ErrorKindRunLockLost: {
		"Check Redis availability, then re-run the migration",
		"Raise migration.lockTtl if Redis is slow to answer",
	},
}

// FormatError converts an error into a user-friendly message
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	msg, ok := ErrorMessages[types.KindOf(err)]
	if !ok {
		return err.Error()
	}
	return fmt.Sprintf("%s: %s", msg, err.Error())
}

// GetErrorSuggestions returns helpful suggestions for an error
func GetErrorSuggestions(err error) []string {
	if err == nil {
		return nil
	}

	var backend *types.ErrBackend
	if errors.As(err, &backend) && backend.Status == 401 {
		return []string{"Set search.username and search.password"}
	}

	return ErrorSuggestions[types.KindOf(err)]
}

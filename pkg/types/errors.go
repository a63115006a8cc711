package types

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorKind discriminates migration failures
type ErrorKind string

const (
	ErrorKindUnknown              ErrorKind = "unknown"
	ErrorKindTransport            ErrorKind = "transport"
	ErrorKindBackend              ErrorKind = "backend"
	ErrorKindProvisioningConflict ErrorKind = "provisioning_conflict"
	ErrorKindAliasStateConflict   ErrorKind = "alias_state_conflict"
	ErrorKindRunInProgress        ErrorKind = "run_in_progress"
	ErrorKindRunLockLost          ErrorKind = "run_lock_lost"
	ErrorKindInvalidPage          ErrorKind = "invalid_page"
	ErrorKindDocumentTarget       ErrorKind = "document_target"
)

// KindOf returns the kind of the first typed migration error in err's chain
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var (
		transport  *ErrTransport
		backend    *ErrBackend
		conflict   *ErrProvisioningConflict
		aliasState *ErrAliasStateConflict
		inProgress *ErrRunInProgress
		lockLost   *ErrRunLockLost
		page       *ErrInvalidPage
		target     *ErrDocumentTarget
	)

	switch {
	case errors.As(err, &conflict):
		return ErrorKindProvisioningConflict
	case errors.As(err, &aliasState):
		return ErrorKindAliasStateConflict
	case errors.As(err, &inProgress):
		return ErrorKindRunInProgress
	case errors.As(err, &lockLost):
		return ErrorKindRunLockLost
	case errors.As(err, &page):
		return ErrorKindInvalidPage
	case errors.As(err, &target):
		return ErrorKindDocumentTarget
	case errors.As(err, &transport):
		return ErrorKindTransport
	case errors.As(err, &backend):
		return ErrorKindBackend
	}
	return ErrorKindUnknown
}

// ErrTransport is returned when the backend or source store is unreachable or times out
type ErrTransport struct {
	Op  string
	Err error
}

func (e *ErrTransport) Error() string {
	return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
}

func (e *ErrTransport) Unwrap() error {
	return e.Err
}

// From checks if the given error is an ErrTransport
func (e *ErrTransport) From(err error) bool {
	var transport *ErrTransport
	return errors.As(err, &transport)
}

// ErrBackend is returned when the search backend answers with a non-2xx status.
// Type is the backend's error type (e.g. "index_not_found_exception").
type ErrBackend struct {
	Op     string
	Status int
	Type   string
	Reason string
}

func (e *ErrBackend) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("%s failed with status %d: %s", e.Op, e.Status, e.Reason)
	}
	return fmt.Sprintf("%s failed with status %d: %s: %s", e.Op, e.Status, e.Type, e.Reason)
}

// From checks if the given error is an ErrBackend
func (e *ErrBackend) From(err error) bool {
	var backend *ErrBackend
	return errors.As(err, &backend)
}

// IsNotFound reports whether the backend rejected the call because the target is missing
func (e *ErrBackend) IsNotFound() bool {
	return e.Status == 404
}

// ErrProvisioningConflict is returned when a physical index of that exact name already exists
type ErrProvisioningConflict struct {
	Index string
}

func (e *ErrProvisioningConflict) Error() string {
	return fmt.Sprintf("physical index already exists: %s", e.Index)
}

// From checks if the given error is an ErrProvisioningConflict
func (e *ErrProvisioningConflict) From(err error) bool {
	var conflict *ErrProvisioningConflict
	return errors.As(err, &conflict)
}

// ErrAliasStateConflict is returned when an alias is bound in a shape the manager will not guess about.
// Bindings maps physical index name to the aliases it holds.
type ErrAliasStateConflict struct {
	Alias    string
	Reason   string
	Bindings map[string][]string
}

func (e *ErrAliasStateConflict) Error() string {
	names := make([]string, 0, len(e.Bindings))
	for name := range e.Bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("alias %s in conflicting state (%s), observed [%s]", e.Alias, e.Reason, strings.Join(names, ", "))
}

// From checks if the given error is an ErrAliasStateConflict
func (e *ErrAliasStateConflict) From(err error) bool {
	var conflict *ErrAliasStateConflict
	return errors.As(err, &conflict)
}

// ErrRunInProgress is returned when another run holds the lock for the alias
type ErrRunInProgress struct {
	Alias string
}

func (e *ErrRunInProgress) Error() string {
	return fmt.Sprintf("migration already running for alias: %s", e.Alias)
}

// From checks if the given error is an ErrRunInProgress
func (e *ErrRunInProgress) From(err error) bool {
	var inProgress *ErrRunInProgress
	return errors.As(err, &inProgress)
}

// ErrRunLockLost is returned when a run stops holding its lock before it finishes
type ErrRunLockLost struct {
	Alias string
	Err   error
}

func (e *ErrRunLockLost) Error() string {
	return fmt.Sprintf("run lock lost for alias %s: %v", e.Alias, e.Err)
}

func (e *ErrRunLockLost) Unwrap() error {
	return e.Err
}

// From checks if the given error is an ErrRunLockLost
func (e *ErrRunLockLost) From(err error) bool {
	var lost *ErrRunLockLost
	return errors.As(err, &lost)
}

// ErrInvalidPage is returned for a page window that is empty or inverted
type ErrInvalidPage struct {
	Start int64
	End   int64
}

func (e *ErrInvalidPage) Error() string {
	return fmt.Sprintf("invalid page window [%d, %d)", e.Start, e.End)
}

// ErrDocumentTarget is returned when an exported document targets an index other than the one being built
type ErrDocumentTarget struct {
	ID       string
	Expected string
	Actual   string
}

func (e *ErrDocumentTarget) Error() string {
	return fmt.Sprintf("document %s targets index %s, expected %s", e.ID, e.Actual, e.Expected)
}

package erpsync

import (
	"errors"
	"strings"
)

// Sentinel errors for common failure scenarios.
// These enable callers to distinguish error types using errors.Is().
//
// Example usage:
//
//	report, err := syncer.Run(ctx, config)
//	if errors.Is(err, erpsync.ErrSyncInProgress) {
//	    // Another pass is running against the same database
//	}
var (
	// ErrInvalidConfig indicates the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnsupportedAuthMethod indicates the requested authentication method is not supported.
	ErrUnsupportedAuthMethod = errors.New("unsupported authentication method")

	// ErrUnsupportedDriver indicates the ERP source driver is unknown.
	ErrUnsupportedDriver = errors.New("unsupported source driver")

	// ErrConnectionFailed indicates the frePPLe database connection failed.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrSourceUnavailable indicates the ERP database could not be reached or was lost mid-pass.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrSyncInProgress indicates another pass holds the lock for the target database.
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrSyncFailed indicates the pass was aborted and its task marked Failed.
	ErrSyncFailed = errors.New("sync failed")

	// ErrTaskNotFound indicates the requested task identifier does not exist.
	ErrTaskNotFound = errors.New("task not found")

	// ErrInvalidTask indicates the task exists but cannot be claimed by this pass.
	ErrInvalidTask = errors.New("invalid task")

	// ErrUnknownEntity indicates an entity type name that is not in the catalog.
	ErrUnknownEntity = errors.New("unknown entity type")

	// ErrUsage indicates invalid command line arguments or flags.
	ErrUsage = errors.New("usage error")
)

// Row-level errors. They are counted per entity type and never abort a pass.
var (
	// ErrReferenceNotFound indicates a foreign key that is absent from the preloaded snapshot.
	ErrReferenceNotFound = errors.New("reference not found")

	// ErrRowConversion indicates a malformed or type-incompatible source value.
	ErrRowConversion = errors.New("row conversion failed")

	// ErrWrite indicates a constraint violation or other failure writing a single row.
	ErrWrite = errors.New("write failed")
)

// usagePrefixes match the flag and argument errors produced by cobra.
var usagePrefixes = []string{
	"unknown flag",
	"unknown shorthand flag",
	"unknown command",
	"accepts ",
	"required flag",
	"invalid argument",
	"flag needs an argument",
}

// ExitCodeForError returns the appropriate exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known errors,
// and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, ErrUsage):
		return ExitUsageError
	case errors.Is(err, ErrInvalidConfig),
		errors.Is(err, ErrUnsupportedAuthMethod),
		errors.Is(err, ErrUnsupportedDriver),
		errors.Is(err, ErrUnknownEntity),
		errors.Is(err, ErrTaskNotFound),
		errors.Is(err, ErrInvalidTask):
		return ExitConfigError
	case errors.Is(err, ErrSyncInProgress):
		return ExitSyncInProgress
	case errors.Is(err, ErrSourceUnavailable):
		return ExitSourceUnavailable
	case errors.Is(err, ErrSyncFailed):
		return ExitSyncFailed
	case errors.Is(err, ErrConnectionFailed):
		return ExitConnectionError
	}

	errStr := err.Error()
	for _, prefix := range usagePrefixes {
		if strings.HasPrefix(errStr, prefix) {
			return ExitUsageError
		}
	}
	if strings.Contains(errStr, "failed to connect") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") {
		return ExitConnectionError
	}

	return ExitGeneralError
}

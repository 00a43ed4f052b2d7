package erpsync

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess           = 0  // Sync pass completed
	ExitGeneralError      = 1  // Unknown or unclassified error
	ExitUsageError        = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic             = 3  // Internal panic (unexpected crash)
	ExitConfigError       = 10 // Invalid configuration or parameters
	ExitConnectionError   = 11 // Failed to connect to the frePPLe database
	ExitSourceUnavailable = 12 // Failed to connect to (or lost) the ERP database
	ExitSyncFailed        = 13 // Sync pass marked Failed
	ExitSyncInProgress    = 14 // Another pass holds the lock for this database
)

const (
	// DefaultTaskName is the execute_log task name used by frePPLe's task screen.
	DefaultTaskName = "erp2frepple"

	// TargetLockKey names the advisory lock a pass holds on the frePPLe
	// database. Advisory locks are per database, so one key serves every task name.
	TargetLockKey = "erpsync"

	// DefaultBatchSize is the number of rows per bulk insert statement.
	DefaultBatchSize = 1000

	// MaxBatchSize keeps a multi-row insert under PostgreSQL's 65535 bind parameter limit
	// for the widest entity type.
	MaxBatchSize = 2500

	// DefaultTimeout is the catastrophic failure timeout for a whole sync pass.
	DefaultTimeout = 30 * time.Minute

	// DefaultSourceConnectTimeout mirrors the ODBC login timeout of the ERP connection.
	DefaultSourceConnectTimeout = 10 * time.Second

	// DefaultRetryInitialDelay is the default initial delay before the first retry attempt.
	DefaultRetryInitialDelay = 100 * time.Millisecond

	// DefaultRetryMaxDelay is the default maximum delay between retry attempts.
	DefaultRetryMaxDelay = 1 * time.Minute

	// DefaultRetryMaxAttempts is the default maximum number of retry attempts.
	DefaultRetryMaxAttempts = 3

	// MaxRowErrorSamples caps the row errors kept per entity type in a SyncResult.
	// The error counter itself is never capped.
	MaxRowErrorSamples = 20

	// DefaultManagementDB is the database used when a connection string omits one.
	DefaultManagementDB = "postgres"

	// LastModifiedColumn is the audit timestamp every frePPLe input table carries.
	LastModifiedColumn = "lastmodified"
)

package erpsync

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
)

// Querier runs single statements against the frePPLe database.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	// QueryRow never returns nil; errors surface from Scan.
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

// DBConnection is the frePPLe access used outside the per-entity write
// transactions: the execute_log task record, the pass lock and preflight.
type DBConnection interface {
	Querier
	// Acquire pins one pooled connection, for session state such as
	// advisory locks. The caller releases it.
	Acquire(ctx context.Context) (PooledConnection, error)
}

// Row is the result of QueryRow.
type Row interface {
	Scan(dest ...any) error
}

// PooledConnection is a connection checked out of the pool.
// It must not be used after Release.
type PooledConnection interface {
	Querier
	Release()
}

package manager

import (
	"context"
	"fmt"

	"github.com/vvka-141/erpsync/pkg/erpsync"
)

const (
	queryTryLock = "SELECT pg_try_advisory_lock(hashtext($1))"
	queryUnlock  = "SELECT pg_advisory_unlock(hashtext($1))"
	// queryMissingTables returns the names that do not resolve to a relation.
	queryMissingTables = `
		SELECT coalesce(array_agg(t ORDER BY ord), '{}')
		FROM unnest($1::text[]) WITH ORDINALITY AS u(t, ord)
		WHERE to_regclass(t) IS NULL
	`
)

// UnlockFunc releases a lock obtained by TryLock.
type UnlockFunc func(ctx context.Context) error

// Manager implements sync housekeeping using the DBConnection abstraction.
// Stateless and safe for concurrent use; thread safety depends on the injected DBConnection.
type Manager struct{}

// New creates a new Manager instance.
func New() *Manager {
	return &Manager{}
}

// TryLock takes the advisory lock named key on a dedicated connection.
// Returns erpsync.ErrSyncInProgress if another session holds it.
// The connection stays checked out until the returned UnlockFunc runs.
func (m *Manager) TryLock(ctx context.Context, conn erpsync.DBConnection, key string) (UnlockFunc, error) {
	pooledConn, err := conn.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}

	var locked bool
	if err := pooledConn.QueryRow(ctx, queryTryLock, key).Scan(&locked); err != nil {
		pooledConn.Release()
		return nil, fmt.Errorf("failed to take lock %q: %w", key, err)
	}
	if !locked {
		pooledConn.Release()
		return nil, fmt.Errorf("lock %q is held by another session: %w", key, erpsync.ErrSyncInProgress)
	}

	return func(ctx context.Context) error {
		defer pooledConn.Release()
		if _, err := pooledConn.Exec(ctx, queryUnlock, key); err != nil {
			return fmt.Errorf("failed to release lock %q: %w", key, err)
		}
		return nil
	}, nil
}

// MissingTables returns the tables from names that do not exist, in input order.
func (m *Manager) MissingTables(ctx context.Context, conn erpsync.DBConnection, names []string) ([]string, error) {
	var missing []string
	if err := conn.QueryRow(ctx, queryMissingTables, names).Scan(&missing); err != nil {
		return nil, fmt.Errorf("failed to check tables: %w", err)
	}
	return missing, nil
}

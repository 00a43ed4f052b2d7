package services

import (
	"context"

	"github.com/vvka-141/erpsync/internal/db/manager"
	"github.com/vvka-141/erpsync/internal/loader"
	"github.com/vvka-141/erpsync/pkg/erpsync"
)

// EntityTx is the transaction one entity type is written in.
type EntityTx interface {
	loader.Writer
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Target is the frePPLe database of a pass.
type Target interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (EntityTx, error)

	// Conn exposes the database for locking and task bookkeeping.
	Conn() erpsync.DBConnection

	Close()
}

// SourceRows is an open result set of the ERP.
type SourceRows interface {
	loader.Rows
	Close() error
}

// Source is the ERP database of a pass.
type Source interface {
	Name() string
	Ping(ctx context.Context) error
	Query(ctx context.Context, query string) (SourceRows, error)
	Close() error
}

// Housekeeper provides the advisory lock and schema preflight.
type Housekeeper interface {
	TryLock(ctx context.Context, conn erpsync.DBConnection, key string) (manager.UnlockFunc, error)
	MissingTables(ctx context.Context, conn erpsync.DBConnection, names []string) ([]string, error)
}

// TargetOpener connects to the frePPLe database.
type TargetOpener func(ctx context.Context, cfg *erpsync.ConnectionConfig) (Target, error)

// SourceOpener connects to the ERP database.
type SourceOpener func(ctx context.Context, cfg erpsync.SourceConfig) (Source, error)

// TaskStoreFactory binds a TaskStore to the target connection.
type TaskStoreFactory func(conn erpsync.DBConnection) erpsync.TaskStore

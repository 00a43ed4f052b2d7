package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/erpsync/internal/entity"
	"github.com/vvka-141/erpsync/internal/loader"
	"github.com/vvka-141/erpsync/pkg/erpsync"
)

// Store is the frePPLe database of a sync pass.
type Store struct {
	pool   *pgxpool.Pool
	logger erpsync.Logger
}

// New creates a Store. Panics if pool or logger is nil.
func New(pool *pgxpool.Pool, logger erpsync.Logger) *Store {
	if pool == nil {
		panic("pool cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &Store{pool: pool, logger: logger}
}

// Ping checks that the frePPLe database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", erpsync.ErrConnectionFailed, err)
	}
	return nil
}

// Begin opens the transaction one entity type is written in.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// Tx implements loader.Writer within one transaction.
type Tx struct {
	tx pgx.Tx
}

// LoadKeys returns encoded natural key -> identity for every row of d's table.
func (t *Tx) LoadKeys(ctx context.Context, d *entity.Descriptor) (map[string]any, error) {
	rows, err := t.tx.Query(ctx, snapshotSQL(d))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make(map[string]any)
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		keys[entity.EncodeKey(vals[1:]...)] = vals[0]
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

// InsertBatch inserts recs in one statement, skipping rows whose key already exists.
func (t *Tx) InsertBatch(ctx context.Context, d *entity.Descriptor, recs []entity.Record) (int, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	var inserted int
	err := t.savepoint(ctx, func(sp pgx.Tx) error {
		tag, err := sp.Exec(ctx, insertSQL(d, len(recs)), insertArgs(recs)...)
		if err != nil {
			return err
		}
		inserted = int(tag.RowsAffected())
		return nil
	})
	return inserted, err
}

// Update overwrites the row with the given identity and reports whether a
// payload column changed.
func (t *Tx) Update(ctx context.Context, d *entity.Descriptor, identity any, rec entity.Record) (bool, error) {
	var changed bool
	err := t.savepoint(ctx, func(sp pgx.Tx) error {
		tag, err := sp.Exec(ctx, updateSQL(d), updateArgs(d, identity, rec)...)
		if err != nil {
			return err
		}
		changed = tag.RowsAffected() > 0
		return nil
	})
	return changed, err
}

// Commit commits the entity type.
func (t *Tx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

// Rollback discards the entity type. Safe to call after Commit.
func (t *Tx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

// savepoint runs fn in a nested transaction. Statement failures roll back to
// the savepoint and are reported as erpsync.ErrWrite, leaving the outer
// transaction usable; connection-level failures are returned as they are.
func (t *Tx) savepoint(ctx context.Context, fn func(pgx.Tx) error) error {
	sp, err := t.tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to create savepoint: %w", err)
	}
	if err := fn(sp); err != nil {
		if rbErr := sp.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("failed to roll back to savepoint: %w (after %w)", rbErr, err)
		}
		if isRowError(err) {
			return fmt.Errorf("%w: %w", erpsync.ErrWrite, err)
		}
		return err
	}
	if err := sp.Commit(ctx); err != nil {
		return fmt.Errorf("failed to release savepoint: %w", err)
	}
	return nil
}

// isRowError reports whether err was caused by the data of the statement
// rather than by the connection or the server state.
func isRowError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch {
	case strings.HasPrefix(pgErr.Code, "22"): // data exception
		return true
	case strings.HasPrefix(pgErr.Code, "23"): // integrity constraint violation
		return true
	}
	return pgErr.Code == "42804" // datatype mismatch
}

var _ loader.Writer = (*Tx)(nil)

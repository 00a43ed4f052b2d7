package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/erpsync/pkg/erpsync"
)

// pgxRunner is what *pgxpool.Pool and *pgxpool.Conn have in common.
type pgxRunner interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// querier adapts a pgx runner to erpsync.Querier.
type querier[T pgxRunner] struct {
	q T
}

func (a querier[T]) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return a.q.Exec(ctx, sql, args...)
}

func (a querier[T]) QueryRow(ctx context.Context, sql string, args ...any) erpsync.Row {
	return a.q.QueryRow(ctx, sql, args...)
}

// PoolAdapter exposes a *pgxpool.Pool as an erpsync.DBConnection.
// Safe for concurrent use.
type PoolAdapter struct {
	querier[*pgxpool.Pool]
}

func NewPoolAdapter(pool *pgxpool.Pool) *PoolAdapter {
	return &PoolAdapter{querier[*pgxpool.Pool]{q: pool}}
}

func (p *PoolAdapter) Acquire(ctx context.Context) (erpsync.PooledConnection, error) {
	conn, err := p.q.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return pooledConn{querier[*pgxpool.Conn]{q: conn}}, nil
}

type pooledConn struct {
	querier[*pgxpool.Conn]
}

func (c pooledConn) Release() {
	c.q.Release()
}

var _ erpsync.DBConnection = (*PoolAdapter)(nil)

package services

import (
	"context"
	"fmt"
	"io"

	"github.com/vvka-141/erpsync/internal/db"
	"github.com/vvka-141/erpsync/internal/source"
	"github.com/vvka-141/erpsync/internal/store"
	"github.com/vvka-141/erpsync/pkg/erpsync"
)

// NewTargetOpener opens the frePPLe database through connectorFactory.
func NewTargetOpener(connectorFactory func(*erpsync.ConnectionConfig) (erpsync.Connector, error), logger erpsync.Logger) TargetOpener {
	return func(ctx context.Context, cfg *erpsync.ConnectionConfig) (Target, error) {
		connector, err := connectorFactory(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create connector: %w", err)
		}
		pool, err := connector.Connect(ctx)
		if err != nil {
			if closer, ok := connector.(io.Closer); ok {
				closer.Close() //nolint:errcheck
			}
			return nil, err
		}
		t := &storeTarget{
			store: store.New(pool, logger),
			conn:  db.NewPoolAdapter(pool),
			close: pool.Close,
		}
		if closer, ok := connector.(io.Closer); ok {
			t.close = func() {
				pool.Close()
				closer.Close() //nolint:errcheck
			}
		}
		return t, nil
	}
}

type storeTarget struct {
	store *store.Store
	conn  erpsync.DBConnection
	close func()
}

func (t *storeTarget) Ping(ctx context.Context) error { return t.store.Ping(ctx) }

func (t *storeTarget) Begin(ctx context.Context) (EntityTx, error) {
	tx, err := t.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (t *storeTarget) Conn() erpsync.DBConnection { return t.conn }

func (t *storeTarget) Close() { t.close() }

// NewSourceOpener opens the ERP with the database/sql drivers of package source.
func NewSourceOpener(logger erpsync.Logger) SourceOpener {
	return func(ctx context.Context, cfg erpsync.SourceConfig) (Source, error) {
		s, err := source.Open(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return sqlSource{s}, nil
	}
}

type sqlSource struct {
	*source.Source
}

func (s sqlSource) Query(ctx context.Context, query string) (SourceRows, error) {
	rows, err := s.Source.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

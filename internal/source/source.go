package source

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/vvka-141/erpsync/internal/retry"
	"github.com/vvka-141/erpsync/pkg/erpsync"

	_ "github.com/lib/pq"               // PostgreSQL driver
	_ "github.com/microsoft/go-mssqldb" // SQL Server driver
	_ "modernc.org/sqlite"              // SQLite driver
)

// Source is an open ERP database. It is owned by one sync pass.
type Source struct {
	db      *sql.DB
	name    string
	limiter *rate.Limiter
	timeout time.Duration
	logger  erpsync.Logger

	closeOnce sync.Once
	closeErr  error
}

// Open connects to the ERP database and verifies the connection.
// Transient connection failures are retried with exponential backoff.
// Errors wrap erpsync.ErrSourceUnavailable.
func Open(ctx context.Context, cfg erpsync.SourceConfig, logger erpsync.Logger) (*Source, error) {
	if logger == nil {
		panic("logger cannot be nil")
	}

	driver, err := NormalizeDriver(cfg.Driver)
	if err != nil {
		return nil, err
	}
	dsn, err := BuildDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", erpsync.ErrSourceUnavailable, err)
	}
	// A pass reads one query at a time.
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = erpsync.DefaultSourceConnectTimeout
	}

	s := &Source{
		db:      db,
		name:    Describe(cfg),
		timeout: timeout,
		logger:  logger,
	}
	if cfg.MaxRowsPerSecond > 0 {
		burst := max(1, int(cfg.MaxRowsPerSecond))
		s.limiter = rate.NewLimiter(rate.Limit(cfg.MaxRowsPerSecond), burst)
	}

	retrier := retry.New(retry.DefaultPolicy(), retry.Source).
		OnRetry(func(attempt int, err error, wait time.Duration) {
			logger.Info("ERP connection attempt %d failed: %v. Retrying in %v...", attempt, err, wait)
		})

	if err := retrier.Do(ctx, s.Ping); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", s.name, err)
	}

	logger.Verbose("Connected to ERP %s", s.name)
	return s, nil
}

// Name describes the source without credentials.
func (s *Source) Name() string {
	return s.name
}

// Ping checks that the ERP database is reachable.
// Errors wrap erpsync.ErrSourceUnavailable.
func (s *Source) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", erpsync.ErrSourceUnavailable, err)
	}
	return nil
}

// Query runs an extraction query. The caller must close the returned Rows.
func (s *Source) Query(ctx context.Context, query string) (*Rows, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}
	return newRows(ctx, rows, cols, s.limiter), nil
}

// Close releases the connection. Safe to call more than once.
func (s *Source) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

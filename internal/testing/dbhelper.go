// Package testing holds integration test helpers that need a PostgreSQL server.
package testing

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/erpsync/internal/db"
	"github.com/vvka-141/erpsync/internal/testinfra"
	"github.com/vvka-141/erpsync/internal/testing/fixtures"
	"github.com/vvka-141/erpsync/pkg/erpsync"
)

// templateDB carries the frePPLe schema; test databases are cloned from it.
const templateDB = "erpsync_frepple_template"

var (
	serverOnce sync.Once
	serverConn string
	serverErr  error
)

// server returns $ERPSYNC_TEST_CONN or starts one container per test binary.
// The template database is (re)built either way.
func server() (string, error) {
	serverOnce.Do(func() {
		ctx := context.Background()
		serverConn = os.Getenv("ERPSYNC_TEST_CONN")
		if serverConn == "" {
			srv, err := testinfra.StartFrePPLeServer(ctx)
			if err != nil {
				serverErr = err
				return
			}
			serverConn = srv.ConnString
		}
		serverErr = buildTemplate(ctx, serverConn)
	})
	return serverConn, serverErr
}

func buildTemplate(ctx context.Context, connStr string) error {
	admin, err := pgx.Connect(ctx, connStr)
	if err != nil {
		return fmt.Errorf("connect to test server: %w", err)
	}
	defer admin.Close(ctx)

	ident := pgx.Identifier{templateDB}.Sanitize()
	if _, err := admin.Exec(ctx, "DROP DATABASE IF EXISTS "+ident+" WITH (FORCE)"); err != nil {
		return fmt.Errorf("drop template: %w", err)
	}
	if _, err := admin.Exec(ctx, "CREATE DATABASE "+ident); err != nil {
		return fmt.Errorf("create template: %w", err)
	}

	tmpl, err := pgx.Connect(ctx, withDatabase(connStr, templateDB))
	if err != nil {
		return fmt.Errorf("connect to template: %w", err)
	}
	defer tmpl.Close(ctx)
	if _, err := tmpl.Exec(ctx, fixtures.FrePPLeSchema); err != nil {
		return fmt.Errorf("load frePPLe schema: %w", err)
	}
	return nil
}

func withDatabase(connStr, name string) string {
	cfg, err := db.ParseConnectionString(connStr)
	if err != nil {
		return connStr
	}
	cfg.Database = name
	return db.BuildConnectionString(cfg)
}

// RequireDatabase skips in -short mode or without Docker and
// $ERPSYNC_TEST_CONN; otherwise it returns the server connection string.
func RequireDatabase(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}
	connStr, err := server()
	if err != nil {
		t.Skipf("no PostgreSQL for integration tests: %v", err)
	}
	return connStr
}

// FrePPLeDB is a throwaway database holding the frePPLe input tables.
type FrePPLeDB struct {
	Name       string
	ConnString string
	Config     erpsync.ConnectionConfig
	Pool       *pgxpool.Pool
}

// NewFrePPLeDB clones the template into a uniquely named database and drops
// it when the test completes.
func NewFrePPLeDB(t *testing.T) *FrePPLeDB {
	t.Helper()
	ctx := context.Background()
	serverConnStr := RequireDatabase(t)

	name := "erpsync_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	admin, err := pgx.Connect(ctx, serverConnStr)
	if err != nil {
		t.Fatalf("connect to test server: %v", err)
	}
	defer admin.Close(ctx)

	create := fmt.Sprintf("CREATE DATABASE %s TEMPLATE %s",
		pgx.Identifier{name}.Sanitize(), pgx.Identifier{templateDB}.Sanitize())
	if _, err := admin.Exec(ctx, create); err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	t.Cleanup(func() { dropDatabase(t, serverConnStr, name) })

	cfg, err := db.ParseConnectionString(serverConnStr)
	if err != nil {
		t.Fatalf("parse test connection string: %v", err)
	}
	cfg.Database = name
	connStr := db.BuildConnectionString(cfg)

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("open pool for %s: %v", name, err)
	}
	t.Cleanup(pool.Close)

	return &FrePPLeDB{Name: name, ConnString: connStr, Config: *cfg, Pool: pool}
}

// dropDatabase runs after the pool cleanup, so only stray sessions remain.
func dropDatabase(t *testing.T, connStr, name string) {
	ctx := context.Background()
	admin, err := pgx.Connect(ctx, connStr)
	if err != nil {
		t.Logf("drop %s: %v", name, err)
		return
	}
	defer admin.Close(ctx)
	if _, err := admin.Exec(ctx, "DROP DATABASE IF EXISTS "+pgx.Identifier{name}.Sanitize()+" WITH (FORCE)"); err != nil {
		t.Logf("drop %s: %v", name, err)
	}
}

// CountRows returns the number of rows in table.
func CountRows(t *testing.T, pool *pgxpool.Pool, table string) int {
	t.Helper()
	var n int
	query := "SELECT count(*) FROM " + pgx.Identifier{table}.Sanitize()
	if err := pool.QueryRow(context.Background(), query).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

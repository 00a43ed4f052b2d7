package db_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vvka-141/erpsync/internal/db"
	testhelpers "github.com/vvka-141/erpsync/internal/testing"
)

func TestStandardConnector_ConnectsToServer(t *testing.T) {
	connString := testhelpers.RequireDatabase(t)

	cfg, err := db.ResolveConnectionParams(db.ConnectionInputs{ConnString: connString})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.NewStandardConnector(cfg, nil).Connect(ctx)
	require.NoError(t, err)
	defer pool.Close()

	var appName string
	require.NoError(t, pool.QueryRow(ctx, "SELECT current_setting('application_name')").Scan(&appName))
	assert.Equal(t, db.DefaultAppName, appName)
}

func TestResolveConnectionParams_EnvFallbackConnects(t *testing.T) {
	connString := testhelpers.RequireDatabase(t)
	parsed, err := db.ParseConnectionString(connString)
	require.NoError(t, err)

	env := &db.EnvVars{
		PGHOST:     parsed.Host,
		PGPORT:     strconv.Itoa(parsed.Port),
		PGUSER:     parsed.Username,
		PGPASSWORD: parsed.Password,
		PGDATABASE: parsed.Database,
		PGSSLMODE:  "disable",
	}
	cfg, err := db.ResolveConnectionParams(db.ConnectionInputs{Env: env})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	connector, err := db.NewConnector(cfg, nil)
	require.NoError(t, err)
	pool, err := connector.Connect(ctx)
	require.NoError(t, err)
	defer pool.Close()
	require.NoError(t, pool.Ping(ctx))
}

func TestStandardConnector_WrongPassword(t *testing.T) {
	connString := testhelpers.RequireDatabase(t)
	cfg, err := db.ParseConnectionString(connString)
	require.NoError(t, err)
	cfg.Password = "definitely-wrong"

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err = db.NewStandardConnector(cfg, nil).Connect(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password authentication failed")
}

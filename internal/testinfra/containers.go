// Package testinfra starts the throwaway servers integration tests run against.
package testinfra

import (
	"context"
	"fmt"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// Credentials follow the frePPLe docker-compose defaults.
const (
	PostgresImage   = "postgres:16-alpine"
	FrePPLeUser     = "frepple"
	FrePPLePassword = "frepple"
	FrePPLeDatabase = "frepple"
)

// FrePPLeServer is a disposable PostgreSQL server standing in for the host
// of the frePPLe scenario databases. Ryuk removes it when the test binary exits.
type FrePPLeServer struct {
	ConnString string
}

// StartFrePPLeServer starts the container and waits until it accepts connections.
func StartFrePPLeServer(ctx context.Context) (*FrePPLeServer, error) {
	ctr, err := postgres.Run(ctx, PostgresImage,
		postgres.WithUsername(FrePPLeUser),
		postgres.WithPassword(FrePPLePassword),
		postgres.WithDatabase(FrePPLeDatabase),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		return nil, fmt.Errorf("start frePPLe postgres: %w", err)
	}

	connStr, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = testcontainers.TerminateContainer(ctr)
		return nil, fmt.Errorf("frePPLe postgres connection string: %w", err)
	}
	return &FrePPLeServer{ConnString: connStr}, nil
}

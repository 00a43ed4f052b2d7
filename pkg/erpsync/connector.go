package erpsync

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connector opens the frePPLe pool for one authentication method.
// The caller owns the returned pool.
type Connector interface {
	Connect(ctx context.Context) (*pgxpool.Pool, error)
}

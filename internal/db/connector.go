package db

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/erpsync/internal/logging"
	"github.com/vvka-141/erpsync/internal/retry"
	"github.com/vvka-141/erpsync/pkg/erpsync"
)

// Connection pool configuration constants
const (
	// DefaultMaxConns covers the advisory lock connection, one entity transaction
	// and the task record updates of a pass.
	DefaultMaxConns = 4

	// DefaultMinConns maintains at least one connection in the pool.
	DefaultMinConns = 1

	// DefaultMaxConnIdleTime keeps connections alive across slow ERP extractions.
	DefaultMaxConnIdleTime = 30 * time.Minute

	// tokenExpiryWarning is the remaining token lifetime below which a warning is logged.
	tokenExpiryWarning = 5 * time.Minute
)

func configurePool(poolConfig *pgxpool.Config, logger erpsync.Logger) {
	poolConfig.MaxConns = DefaultMaxConns
	poolConfig.MinConns = DefaultMinConns
	poolConfig.MaxConnIdleTime = DefaultMaxConnIdleTime
	poolConfig.ConnConfig.OnNotice = func(_ *pgconn.PgConn, notice *pgconn.Notice) {
		logger.Verbose("frePPLe notice: %s", notice.Message)
	}
}

func newRetrier(logger erpsync.Logger) *retry.Retrier {
	return retry.New(retry.DefaultPolicy(), retry.Target).
		OnRetry(func(attempt int, err error, wait time.Duration) {
			logger.Verbose("frePPLe connection attempt %d failed, retrying in %v: %v", attempt, wait, err)
		})
}

// openPool parses connStr, applies tune, opens the pool and pings it.
// cfg only names the endpoint in errors.
func openPool(ctx context.Context, cfg *erpsync.ConnectionConfig, connStr string, logger erpsync.Logger, tune ...func(*pgxpool.Config)) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %w", err)
	}

	configurePool(poolConfig, logger)
	for _, fn := range tune {
		fn(poolConfig)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, wrapConnectionError(err, cfg.Host, cfg.Port, cfg.Database)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, wrapConnectionError(err, cfg.Host, cfg.Port, cfg.Database)
	}
	return pool, nil
}

// StandardConnector connects with username/password or client certificates,
// retrying transient failures.
type StandardConnector struct {
	config  *erpsync.ConnectionConfig
	logger  erpsync.Logger
	retrier *retry.Retrier
}

// NewStandardConnector creates a StandardConnector.
// Transient failures are retried with retry.DefaultPolicy.
func NewStandardConnector(config *erpsync.ConnectionConfig, logger erpsync.Logger) *StandardConnector {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &StandardConnector{
		config:  config,
		logger:  logger,
		retrier: newRetrier(logger),
	}
}

// Connect establishes the connection pool.
func (c *StandardConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool
	connStr := BuildConnectionString(c.config)

	err := c.retrier.Do(ctx, func(ctx context.Context) error {
		var err error
		pool, err = openPool(ctx, c.config, connStr, c.logger)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pool, nil
}

// TokenBasedConnector authenticates with short-lived cloud tokens (AWS IAM, Azure Entra ID).
// A fresh token is used as the password on every connection attempt.
type TokenBasedConnector struct {
	config        *erpsync.ConnectionConfig
	tokenProvider TokenProvider
	providerName  string
	logger        erpsync.Logger
	retrier       *retry.Retrier
}

// NewTokenBasedConnector creates a connector that uses a TokenProvider for authentication.
// providerName appears in errors and warnings (e.g., "AWS IAM", "Azure").
func NewTokenBasedConnector(config *erpsync.ConnectionConfig, tokenProvider TokenProvider, providerName string, logger erpsync.Logger) *TokenBasedConnector {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &TokenBasedConnector{
		config:        config,
		tokenProvider: tokenProvider,
		providerName:  providerName,
		logger:        logger,
		retrier:       newRetrier(logger),
	}
}

func (c *TokenBasedConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool

	err := c.retrier.Do(ctx, func(ctx context.Context) error {
		token, expiresOn, err := c.tokenProvider.GetToken(ctx)
		if err != nil {
			return fmt.Errorf("failed to acquire %s token: %w", c.providerName, err)
		}
		if remaining := time.Until(expiresOn); remaining < tokenExpiryWarning {
			c.logger.Info("Warning: %s token expires in %v", c.providerName, remaining.Round(time.Second))
		}
		c.logger.Verbose("Acquired %s token from %s", c.providerName, c.tokenProvider)

		withToken := *c.config
		withToken.Password = token

		pool, err = openPool(ctx, c.config, BuildConnectionString(&withToken), c.logger)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pool, nil
}

// NewConnector creates the Connector matching config.AuthMethod.
// A connector that also implements io.Closer must be closed after its pool.
func NewConnector(config *erpsync.ConnectionConfig, logger erpsync.Logger) (erpsync.Connector, error) {
	switch config.AuthMethod {
	case erpsync.AuthMethodStandard, erpsync.AuthMethodCertificate:
		return NewStandardConnector(config, logger), nil
	case erpsync.AuthMethodAWSIAM:
		return newAWSConnector(config, logger)
	case erpsync.AuthMethodGoogleIAM:
		return newGoogleConnector(config, logger)
	case erpsync.AuthMethodAzureEntraID:
		return newAzureConnector(config, logger)
	default:
		return nil, fmt.Errorf("unsupported auth method %v: %w", config.AuthMethod, erpsync.ErrUnsupportedAuthMethod)
	}
}

func newAWSConnector(config *erpsync.ConnectionConfig, logger erpsync.Logger) (erpsync.Connector, error) {
	tokens, err := NewRDSTokenProvider(fmt.Sprintf("%s:%d", config.Host, config.Port), config.AWSRegion, config.Username)
	if err != nil {
		return nil, err
	}
	return NewTokenBasedConnector(config, tokens, "AWS IAM", logger), nil
}

func newGoogleConnector(config *erpsync.ConnectionConfig, logger erpsync.Logger) (erpsync.Connector, error) {
	c, err := NewCloudSQLConnector(config, logger)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func newAzureConnector(config *erpsync.ConnectionConfig, logger erpsync.Logger) (erpsync.Connector, error) {
	tokens, err := NewEntraTokenProvider(config.AzureTenantID, config.AzureClientID, config.AzureClientSecret)
	if err != nil {
		return nil, err
	}
	return NewTokenBasedConnector(config, tokens, "Azure", logger), nil
}

// wrapConnectionError wraps raw pgx connection errors with actionable guidance.
// Both erpsync.ErrConnectionFailed and the original error stay in the chain.
func wrapConnectionError(err error, host string, port int, database string) error {
	return fmt.Errorf("%w: %w", erpsync.ErrConnectionFailed, connectionGuidance(err, host, port, database))
}

// connectionHint turns a driver error into operator advice.
// Text fields may reference {addr}, {host}, {port} and {database}.
type connectionHint struct {
	match    []string
	headline string
	causes   []string
}

var connectionHints = []connectionHint{
	{
		match:    []string{"connection refused", "actively refused"},
		headline: "connection refused to {addr}",
		causes: []string{
			"The frePPLe PostgreSQL server is not running (check: pg_isready -h {host} -p {port})",
			"Wrong host or port",
			"Firewall blocking the connection",
		},
	},
	{
		match:    []string{"no such host", "no host"},
		headline: `cannot resolve host "{host}"`,
		causes:   []string{"Hostname is misspelled", "DNS is not configured or reachable"},
	},
	{
		match:    []string{"password authentication failed"},
		headline: `password authentication failed for database "{database}"`,
		causes: []string{
			"Wrong password (check $PGPASSWORD or ~/.pgpass)",
			"Wrong username",
			"User does not have access to the frePPLe database",
		},
	},
	{
		match:    []string{"does not exist"},
		headline: `database "{database}" does not exist`,
		causes:   []string{`-d/--database must name the scenario database (frePPLe's default is usually "frepple")`},
	},
	{
		match:    []string{"timeout", "timed out"},
		headline: "connection timed out to {addr}",
		causes: []string{
			"Server is overloaded or unresponsive",
			"Firewall silently dropping packets",
			"Wrong host/port (server not listening)",
		},
	},
	{
		match:    []string{"ssl", "tls"},
		headline: "SSL/TLS connection error",
		causes: []string{
			"Server requires SSL but --sslmode is wrong",
			"Certificate verification failed (try --sslmode=require)",
			"Client certificates missing (check --sslcert, --sslkey)",
		},
	},
	{
		match:    []string{"too many connections"},
		headline: `too many connections to database "{database}"`,
		causes:   []string{"The frePPLe web server and its workers share max_connections with erpsync"},
	},
}

func connectionGuidance(err error, host string, port int, database string) error {
	msg := strings.ToLower(err.Error())
	addr := fmt.Sprintf("%s:%d", host, port)
	fill := strings.NewReplacer("{addr}", addr, "{host}", host, "{port}", strconv.Itoa(port), "{database}", database)

	for _, h := range connectionHints {
		if !slices.ContainsFunc(h.match, func(m string) bool { return strings.Contains(msg, m) }) {
			continue
		}
		var b strings.Builder
		b.WriteString(fill.Replace(h.headline))
		b.WriteString("\n\nPossible causes:\n")
		for _, c := range h.causes {
			b.WriteString("  - ")
			b.WriteString(fill.Replace(c))
			b.WriteString("\n")
		}
		return fmt.Errorf("%s\nOriginal error: %w", b.String(), err)
	}
	return fmt.Errorf("failed to connect to frePPLe database %s: %w", addr, err)
}

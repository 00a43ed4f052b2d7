package source

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vvka-141/erpsync/pkg/erpsync"
)

// Driver names as registered with database/sql.
const (
	DriverSQLServer = "sqlserver"
	DriverPostgres  = "postgres"
	DriverSQLite    = "sqlite"
)

// NormalizeDriver maps accepted driver aliases to a registered driver name.
func NormalizeDriver(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sqlserver", "mssql":
		return DriverSQLServer, nil
	case "postgres", "postgresql", "pq":
		return DriverPostgres, nil
	case "sqlite", "sqlite3":
		return DriverSQLite, nil
	default:
		return "", fmt.Errorf("%q: %w", name, erpsync.ErrUnsupportedDriver)
	}
}

// BuildDSN returns cfg.DSN when set, otherwise a DSN assembled from the
// granular fields for the configured driver.
func BuildDSN(cfg erpsync.SourceConfig) (string, error) {
	driver, err := NormalizeDriver(cfg.Driver)
	if err != nil {
		return "", err
	}
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	if cfg.Database == "" {
		return "", fmt.Errorf("source database is required: %w", erpsync.ErrInvalidConfig)
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = erpsync.DefaultSourceConnectTimeout
	}

	switch driver {
	case DriverSQLServer:
		return sqlServerDSN(cfg, timeout), nil
	case DriverPostgres:
		return postgresDSN(cfg, timeout), nil
	default:
		return sqliteDSN(cfg), nil
	}
}

func hostPort(host string, port, defaultPort int) string {
	if host == "" {
		host = "localhost"
	}
	if port == 0 {
		port = defaultPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func userInfo(cfg erpsync.SourceConfig) *url.Userinfo {
	if cfg.Username == "" {
		return nil
	}
	if cfg.Password == "" {
		return url.User(cfg.Username)
	}
	return url.UserPassword(cfg.Username, cfg.Password)
}

func seconds(d time.Duration) string {
	return strconv.Itoa(int(d.Round(time.Second) / time.Second))
}

func sqlServerDSN(cfg erpsync.SourceConfig, timeout time.Duration) string {
	q := url.Values{}
	q.Set("database", cfg.Database)
	q.Set("connection timeout", seconds(timeout))
	q.Set("dial timeout", seconds(timeout))
	for k, v := range cfg.Params {
		q.Set(k, v)
	}
	u := url.URL{
		Scheme:   "sqlserver",
		User:     userInfo(cfg),
		Host:     hostPort(cfg.Host, cfg.Port, 1433),
		RawQuery: q.Encode(),
	}
	return u.String()
}

func postgresDSN(cfg erpsync.SourceConfig, timeout time.Duration) string {
	q := url.Values{}
	q.Set("connect_timeout", seconds(timeout))
	for k, v := range cfg.Params {
		q.Set(k, v)
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     userInfo(cfg),
		Host:     hostPort(cfg.Host, cfg.Port, 5432),
		Path:     "/" + cfg.Database,
		RawQuery: q.Encode(),
	}
	return u.String()
}

func sqliteDSN(cfg erpsync.SourceConfig) string {
	if len(cfg.Params) == 0 {
		return cfg.Database
	}
	q := url.Values{}
	for k, v := range cfg.Params {
		q.Add(k, v)
	}
	return cfg.Database + "?" + q.Encode()
}

// Describe renders the source without credentials for log lines.
func Describe(cfg erpsync.SourceConfig) string {
	driver, err := NormalizeDriver(cfg.Driver)
	if err != nil {
		driver = cfg.Driver
	}
	if cfg.DSN != "" {
		if u, err := url.Parse(cfg.DSN); err == nil && u.Host != "" {
			return fmt.Sprintf("%s://%s%s", driver, u.Host, u.Path)
		}
		return driver + " (dsn)"
	}
	if driver == DriverSQLite {
		return fmt.Sprintf("%s:%s", driver, cfg.Database)
	}
	return fmt.Sprintf("%s://%s/%s", driver, cfg.Host, cfg.Database)
}

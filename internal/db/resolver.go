package db

import (
	"fmt"
	"os"
	"strconv"

	"github.com/vvka-141/erpsync/internal/config"
	"github.com/vvka-141/erpsync/pkg/erpsync"
)

// GranularConnFlags represents frePPLe connection parameters from CLI flags.
// These follow PostgreSQL standard flag conventions (-h, -p, -U, -d).
//
// Note: Password is NOT included as a CLI flag.
// Use $PGPASSWORD, .pgpass or a connection string instead.
type GranularConnFlags struct {
	Host     string
	Port     int
	Username string
	Database string
	SSLMode  string
}

// IsEmpty returns true if no connection-related granular flags were provided by the user.
// Database is excluded because -d may override the database of a connection string.
func (g *GranularConnFlags) IsEmpty() bool {
	return g.Host == "" && g.Port == 0 && g.Username == "" && g.SSLMode == ""
}

// AzureFlags represents Azure Entra ID CLI flags.
// The client secret only comes from AZURE_CLIENT_SECRET.
type AzureFlags struct {
	Enabled  bool
	TenantID string // Overrides AZURE_TENANT_ID
	ClientID string // Overrides AZURE_CLIENT_ID
}

// IsEmpty returns true if no Azure flags were provided.
func (a *AzureFlags) IsEmpty() bool {
	return a == nil || (!a.Enabled && a.TenantID == "" && a.ClientID == "")
}

// AWSFlags selects RDS IAM authentication.
type AWSFlags struct {
	Enabled bool
	Region  string // Overrides AWS_REGION
}

// GoogleFlags selects Cloud SQL IAM authentication.
type GoogleFlags struct {
	Enabled  bool
	Instance string // project:region:instance
}

// CertFlags are client certificate paths for verify-ca / verify-full / mTLS.
type CertFlags struct {
	SSLCert     string
	SSLKey      string
	SSLRootCert string
}

// EnvVars represents PostgreSQL standard environment variables plus the cloud SDK ones.
// See: https://www.postgresql.org/docs/current/libpq-envars.html
type EnvVars struct {
	PGHOST        string
	PGPORT        string
	PGUSER        string
	PGPASSWORD    string
	PGDATABASE    string
	PGSSLMODE     string
	PGSSLCERT     string
	PGSSLKEY      string
	PGSSLROOTCERT string
	DATABASE_URL  string

	AZURE_TENANT_ID     string
	AZURE_CLIENT_ID     string
	AZURE_CLIENT_SECRET string

	AWS_REGION string
}

// LoadFromEnvironment loads PostgreSQL and cloud provider environment variables.
func LoadFromEnvironment() *EnvVars {
	return &EnvVars{
		PGHOST:              os.Getenv("PGHOST"),
		PGPORT:              os.Getenv("PGPORT"),
		PGUSER:              os.Getenv("PGUSER"),
		PGPASSWORD:          os.Getenv("PGPASSWORD"),
		PGDATABASE:          os.Getenv("PGDATABASE"),
		PGSSLMODE:           os.Getenv("PGSSLMODE"),
		PGSSLCERT:           os.Getenv("PGSSLCERT"),
		PGSSLKEY:            os.Getenv("PGSSLKEY"),
		PGSSLROOTCERT:       os.Getenv("PGSSLROOTCERT"),
		DATABASE_URL:        os.Getenv("DATABASE_URL"),
		AZURE_TENANT_ID:     os.Getenv("AZURE_TENANT_ID"),
		AZURE_CLIENT_ID:     os.Getenv("AZURE_CLIENT_ID"),
		AZURE_CLIENT_SECRET: os.Getenv("AZURE_CLIENT_SECRET"),
		AWS_REGION:          os.Getenv("AWS_REGION"),
	}
}

// HasAzureCredentials returns true if Azure Entra ID environment variables are set.
func (e *EnvVars) HasAzureCredentials() bool {
	return e.AZURE_TENANT_ID != "" || e.AZURE_CLIENT_ID != ""
}

// ConnectionInputs bundles every place a frePPLe connection parameter can come from.
type ConnectionInputs struct {
	ConnString string
	Granular   *GranularConnFlags
	Azure      *AzureFlags
	AWS        *AWSFlags
	Google     *GoogleFlags
	Certs      *CertFlags
	Env        *EnvVars
	Project    *config.ProjectConfig
}

// ResolveConnectionParams resolves the frePPLe connection using PostgreSQL-standard precedence:
//
//  1. Connection string (--connection, then DATABASE_URL when no granular flags are set)
//  2. Granular flags (-h, -p, -U, -d)
//  3. Environment variables (PGHOST, PGPORT, ...)
//  4. The target block of erpsync.yaml
//  5. Defaults (localhost:5432, sslmode=prefer)
//
// -d always overrides the database of a connection string.
// Supplying both --connection and granular flags is an error.
func ResolveConnectionParams(in ConnectionInputs) (*erpsync.ConnectionConfig, error) {
	if in.Granular == nil {
		in.Granular = &GranularConnFlags{}
	}
	if in.Azure == nil {
		in.Azure = &AzureFlags{}
	}
	if in.AWS == nil {
		in.AWS = &AWSFlags{}
	}
	if in.Google == nil {
		in.Google = &GoogleFlags{}
	}
	if in.Certs == nil {
		in.Certs = &CertFlags{}
	}
	if in.Env == nil {
		in.Env = &EnvVars{}
	}

	if in.ConnString != "" && !in.Granular.IsEmpty() {
		return nil, fmt.Errorf(
			"cannot specify both --connection and granular flags (-h, -p, -U, --sslmode)\n"+
				"Choose one approach:\n"+
				"  1. Connection string: --connection \"postgresql://frepple@localhost:5432/frepple\"\n"+
				"  2. Granular flags: -h localhost -p 5432 -U frepple -d frepple\n"+
				"  3. Environment variables: export PGHOST=localhost PGUSER=frepple PGDATABASE=frepple: %w",
			erpsync.ErrInvalidConfig,
		)
	}

	var pc config.ConnectionConfig
	if in.Project != nil {
		pc = in.Project.Target
	}

	var cfg *erpsync.ConnectionConfig
	var err error
	switch {
	case in.ConnString != "":
		cfg, err = resolveFromConnectionString(in.ConnString, in.Env)
	case in.Granular.IsEmpty() && in.Env.DATABASE_URL != "":
		cfg, err = resolveFromConnectionString(in.Env.DATABASE_URL, in.Env)
	default:
		cfg, err = resolveFromGranularParams(in.Granular, in.Env, pc)
	}
	if err != nil {
		return nil, err
	}

	if in.Granular.Database != "" {
		cfg.Database = in.Granular.Database
	}

	applyCertificates(cfg, in.Certs, in.Env, pc)

	if err := applyAuthMethod(cfg, in, pc); err != nil {
		return nil, err
	}

	return cfg, nil
}

func resolveFromConnectionString(connStr string, env *EnvVars) (*erpsync.ConnectionConfig, error) {
	cfg, err := ParseConnectionString(connStr)
	if err != nil {
		return nil, fmt.Errorf("invalid connection string: %w: %w", err, erpsync.ErrInvalidConfig)
	}

	// libpq semantics: environment fills what the string leaves out
	if cfg.SSLMode == "" {
		cfg.SSLMode = firstNonEmpty(env.PGSSLMODE, "prefer")
	}
	if cfg.Password == "" {
		cfg.Password = env.PGPASSWORD
	}
	return cfg, nil
}

func resolveFromGranularParams(flags *GranularConnFlags, env *EnvVars, pc config.ConnectionConfig) (*erpsync.ConnectionConfig, error) {
	cfg := &erpsync.ConnectionConfig{
		AuthMethod:       erpsync.AuthMethodStandard,
		AdditionalParams: make(map[string]string),
	}

	cfg.Host = firstNonEmpty(flags.Host, env.PGHOST, pc.Host, "localhost")

	switch {
	case flags.Port != 0:
		cfg.Port = flags.Port
	case env.PGPORT != "":
		port, err := strconv.Atoi(env.PGPORT)
		if err != nil || port <= 0 || port > 65535 {
			return nil, fmt.Errorf("invalid $PGPORT value '%s': must be an integer between 1 and 65535: %w", env.PGPORT, erpsync.ErrInvalidConfig)
		}
		cfg.Port = port
	case pc.Port != 0:
		cfg.Port = pc.Port
	default:
		cfg.Port = 5432
	}

	cfg.Username = firstNonEmpty(flags.Username, env.PGUSER, pc.Username, os.Getenv("USER"), os.Getenv("USERNAME"))
	cfg.Password = env.PGPASSWORD
	cfg.Database = firstNonEmpty(flags.Database, env.PGDATABASE, pc.Database)
	cfg.SSLMode = firstNonEmpty(flags.SSLMode, env.PGSSLMODE, pc.SSLMode, "prefer")

	return cfg, nil
}

func applyCertificates(cfg *erpsync.ConnectionConfig, certs *CertFlags, env *EnvVars, pc config.ConnectionConfig) {
	cfg.SSLCert = firstNonEmpty(certs.SSLCert, cfg.SSLCert, env.PGSSLCERT, pc.SSLCert)
	cfg.SSLKey = firstNonEmpty(certs.SSLKey, cfg.SSLKey, env.PGSSLKEY, pc.SSLKey)
	cfg.SSLRootCert = firstNonEmpty(certs.SSLRootCert, cfg.SSLRootCert, env.PGSSLROOTCERT, pc.SSLRootCert)

	if cfg.SSLCert != "" && cfg.SSLKey != "" && cfg.AuthMethod == erpsync.AuthMethodStandard && cfg.Password == "" {
		cfg.AuthMethod = erpsync.AuthMethodCertificate
	}
}

// applyAuthMethod picks the cloud authentication method.
// Flags win over erpsync.yaml; Azure environment credentials imply Azure auth.
func applyAuthMethod(cfg *erpsync.ConnectionConfig, in ConnectionInputs, pc config.ConnectionConfig) error {
	enabled := 0
	for _, on := range []bool{!in.Azure.IsEmpty(), in.AWS.Enabled, in.Google.Enabled} {
		if on {
			enabled++
		}
	}
	if enabled > 1 {
		return fmt.Errorf("only one of --azure, --aws and --google may be used: %w", erpsync.ErrInvalidConfig)
	}

	method := cfg.AuthMethod
	switch {
	case !in.Azure.IsEmpty():
		method = erpsync.AuthMethodAzureEntraID
	case in.AWS.Enabled:
		method = erpsync.AuthMethodAWSIAM
	case in.Google.Enabled:
		method = erpsync.AuthMethodGoogleIAM
	case pc.AuthMethod != "":
		parsed, err := erpsync.ParseAuthMethod(pc.AuthMethod)
		if err != nil {
			return fmt.Errorf("target.auth_method in %s: %w", config.ConfigFileName, err)
		}
		method = parsed
	case in.Env.HasAzureCredentials():
		method = erpsync.AuthMethodAzureEntraID
	}
	cfg.AuthMethod = method

	switch method {
	case erpsync.AuthMethodAzureEntraID:
		cfg.AzureTenantID = firstNonEmpty(in.Azure.TenantID, in.Env.AZURE_TENANT_ID, pc.AzureTenantID)
		cfg.AzureClientID = firstNonEmpty(in.Azure.ClientID, in.Env.AZURE_CLIENT_ID, pc.AzureClientID)
		cfg.AzureClientSecret = in.Env.AZURE_CLIENT_SECRET
	case erpsync.AuthMethodAWSIAM:
		cfg.AWSRegion = firstNonEmpty(in.AWS.Region, in.Env.AWS_REGION, pc.AWSRegion)
		if cfg.AWSRegion == "" {
			return fmt.Errorf("AWS IAM auth requires --aws-region or $AWS_REGION: %w", erpsync.ErrInvalidConfig)
		}
	case erpsync.AuthMethodGoogleIAM:
		cfg.GoogleInstance = firstNonEmpty(in.Google.Instance, pc.GoogleInstance)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

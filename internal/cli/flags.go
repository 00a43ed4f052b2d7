package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vvka-141/erpsync/internal/config"
	"github.com/vvka-141/erpsync/internal/db"
	"github.com/vvka-141/erpsync/internal/params"
	"github.com/vvka-141/erpsync/internal/retry"
	"github.com/vvka-141/erpsync/pkg/erpsync"
)

// connectionFlags holds the frePPLe connection flag values.
type connectionFlags struct {
	connection     string
	host           string
	port           int
	username       string
	database       string
	sslMode        string
	azure          bool
	azureTenantID  string
	azureClientID  string
	aws            bool
	awsRegion      string
	google         bool
	googleInstance string
	sslCert        string
	sslKey         string
	sslRootCert    string
}

// sourceFlags holds the ERP connection flag values.
// The password only comes from $ERP_PASSWORD.
type sourceFlags struct {
	driver   string
	dsn      string
	host     string
	port     int
	database string
	username string
	params   []string
	maxRate  float64
}

// addConnectionFlags registers the frePPLe connection flags (PostgreSQL conventions).
func addConnectionFlags(cmd *cobra.Command, f *connectionFlags) {
	flags := cmd.Flags()
	flags.StringVar(&f.connection, "connection", "",
		"frePPLe database connection string (URI or key=value format)\n"+
			"Mutually exclusive with --host, --port, --username and --sslmode.\n"+
			"Alternative: DATABASE_URL environment variable.\n"+
			"Example: postgresql://frepple@localhost:5432/frepple")
	flags.StringVarP(&f.host, "host", "h", "",
		"frePPLe database host\n"+
			"Precedence: --host > $PGHOST > erpsync.yaml > localhost")
	flags.IntVarP(&f.port, "port", "p", 0,
		"frePPLe database port\n"+
			"Precedence: --port > $PGPORT > erpsync.yaml > 5432")
	flags.StringVarP(&f.username, "username", "U", "",
		"frePPLe database user (default: $PGUSER or current OS user)")
	flags.StringVarP(&f.database, "database", "d", "",
		"frePPLe database name (or $PGDATABASE, or target.database in erpsync.yaml)")
	flags.StringVar(&f.sslMode, "sslmode", "",
		"SSL mode: disable|allow|prefer|require|verify-ca|verify-full\n"+
			"(default: prefer, or $PGSSLMODE)")
	flags.StringVar(&f.sslCert, "sslcert", "", "Client certificate file (or $PGSSLCERT)")
	flags.StringVar(&f.sslKey, "sslkey", "", "Client private key file (or $PGSSLKEY)")
	flags.StringVar(&f.sslRootCert, "sslrootcert", "", "Root CA certificate file (or $PGSSLROOTCERT)")

	flags.BoolVar(&f.azure, "azure", false,
		"Enable Azure Entra ID authentication\n"+
			"Uses DefaultAzureCredential chain (Managed Identity, Azure CLI, etc.)")
	flags.StringVar(&f.azureTenantID, "azure-tenant-id", "",
		"Azure AD tenant/directory ID (overrides $AZURE_TENANT_ID)")
	flags.StringVar(&f.azureClientID, "azure-client-id", "",
		"Azure AD application/client ID (overrides $AZURE_CLIENT_ID)")
	flags.BoolVar(&f.aws, "aws", false, "Enable AWS RDS IAM authentication")
	flags.StringVar(&f.awsRegion, "aws-region", "", "AWS region of the RDS instance (overrides $AWS_REGION)")
	flags.BoolVar(&f.google, "google", false, "Enable Google Cloud SQL IAM authentication")
	flags.StringVar(&f.googleInstance, "google-instance", "",
		"Cloud SQL instance connection name (project:region:instance)")

	_ = cmd.RegisterFlagCompletionFunc("sslmode", completeSSLModes)
}

// addSourceFlags registers the ERP connection flags.
func addSourceFlags(cmd *cobra.Command, f *sourceFlags) {
	flags := cmd.Flags()
	flags.StringVar(&f.driver, "erp-driver", "",
		"ERP database driver: sqlserver|postgres|sqlite\n"+
			"Precedence: --erp-driver > $ERP_DRIVER > source.driver in erpsync.yaml")
	flags.StringVar(&f.dsn, "erp-dsn", "",
		"ERP connection string in the driver's own format (or $ERP_DSN)\n"+
			"Replaces --erp-host, --erp-port, --erp-database and --erp-user")
	flags.StringVar(&f.host, "erp-host", "", "ERP database host (or $ERP_HOST)")
	flags.IntVar(&f.port, "erp-port", 0, "ERP database port (default: driver's standard port)")
	flags.StringVar(&f.database, "erp-database", "",
		"ERP database name, or the file path for sqlite (or $ERP_DATABASE)")
	flags.StringVar(&f.username, "erp-user", "", "ERP database user (or $ERP_USER)")
	flags.StringSliceVar(&f.params, "erp-param", nil,
		"Driver connection parameter as key=value (can be specified multiple times)\n"+
			"Example: --erp-param encrypt=disable")
	flags.Float64Var(&f.maxRate, "erp-max-rows-per-second", 0,
		"Throttle extraction from the ERP (0 = unlimited)")

	_ = cmd.RegisterFlagCompletionFunc("erp-driver", completeDrivers)
}

// resolveTarget resolves the frePPLe connection from flags, environment and erpsync.yaml.
func resolveTarget(flags connectionFlags, projectCfg *config.ProjectConfig) (*erpsync.ConnectionConfig, error) {
	return db.ResolveConnectionParams(db.ConnectionInputs{
		ConnString: flags.connection,
		Granular: &db.GranularConnFlags{
			Host:     flags.host,
			Port:     flags.port,
			Username: flags.username,
			Database: flags.database,
			SSLMode:  flags.sslMode,
		},
		Azure: &db.AzureFlags{
			Enabled:  flags.azure,
			TenantID: flags.azureTenantID,
			ClientID: flags.azureClientID,
		},
		AWS: &db.AWSFlags{
			Enabled: flags.aws,
			Region:  flags.awsRegion,
		},
		Google: &db.GoogleFlags{
			Enabled:  flags.google,
			Instance: flags.googleInstance,
		},
		Certs: &db.CertFlags{
			SSLCert:     flags.sslCert,
			SSLKey:      flags.sslKey,
			SSLRootCert: flags.sslRootCert,
		},
		Env:     db.LoadFromEnvironment(),
		Project: projectCfg,
	})
}

// resolveSource resolves the ERP connection.
// Precedence: flag > ERP_* environment variable > erpsync.yaml.
func resolveSource(flags sourceFlags, getenv func(string) string, projectCfg *config.ProjectConfig) (erpsync.SourceConfig, error) {
	var pc config.SourceConfig
	if projectCfg != nil {
		pc = projectCfg.Source
	}

	cfg := erpsync.SourceConfig{
		Driver:           firstNonEmpty(flags.driver, getenv("ERP_DRIVER"), pc.Driver),
		DSN:              firstNonEmpty(flags.dsn, getenv("ERP_DSN"), pc.DSN),
		Host:             firstNonEmpty(flags.host, getenv("ERP_HOST"), pc.Host),
		Database:         firstNonEmpty(flags.database, getenv("ERP_DATABASE"), pc.Database),
		Username:         firstNonEmpty(flags.username, getenv("ERP_USER"), pc.Username),
		Password:         getenv("ERP_PASSWORD"),
		Port:             pc.Port,
		MaxRowsPerSecond: pc.MaxRowsPerSecond,
		Params:           make(map[string]string),
	}
	if flags.port != 0 {
		cfg.Port = flags.port
	}
	if flags.maxRate != 0 {
		cfg.MaxRowsPerSecond = flags.maxRate
	}

	for k, v := range pc.Params {
		cfg.Params[k] = v
	}
	flagParams, err := params.ParseKeyValuePairs(flags.params)
	if err != nil {
		return erpsync.SourceConfig{}, fmt.Errorf("%w: %w", erpsync.ErrUsage, err)
	}
	for k, v := range flagParams {
		cfg.Params[k] = v
	}

	timeout, err := projectCfg.ParseSourceConnectTimeout()
	if err != nil {
		return erpsync.SourceConfig{}, fmt.Errorf("%w: %w", erpsync.ErrInvalidConfig, err)
	}
	cfg.ConnectTimeout = timeout

	return cfg, nil
}

// resolveEffectiveTimeout returns the pass timeout, preferring erpsync.yaml if the flag wasn't set.
func resolveEffectiveTimeout(
	cmd *cobra.Command,
	projectCfg *config.ProjectConfig,
	flagTimeout time.Duration,
) (time.Duration, error) {
	if !cmd.Flags().Changed("timeout") {
		parsed, err := projectCfg.ParseTimeout()
		if err != nil {
			return 0, fmt.Errorf("%w: %w", erpsync.ErrInvalidConfig, err)
		}
		if parsed != 0 {
			return parsed, nil
		}
	}
	return flagTimeout, nil
}

// resolveBatchSize prefers --batch-size, then erpsync.yaml; zero means the default.
func resolveBatchSize(cmd *cobra.Command, projectCfg *config.ProjectConfig, flagValue int) int {
	if cmd.Flags().Changed("batch-size") || projectCfg == nil {
		return flagValue
	}
	if projectCfg.BatchSize != 0 {
		return projectCfg.BatchSize
	}
	return flagValue
}

// loadProjectConfig loads the project's .env and erpsync.yaml.
// Returns nil config if erpsync.yaml does not exist (not an error).
func loadProjectConfig(projectPath string) (*config.ProjectConfig, error) {
	_ = godotenv.Load(filepath.Join(projectPath, ".env"))

	projectCfg, err := config.Load(projectPath)
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load %s: %w: %w", config.ConfigFileName, err, erpsync.ErrInvalidConfig)
	}
	return projectCfg, nil
}

// logConnectionVerbose logs connection details when verbose mode is enabled.
func logConnectionVerbose(target *erpsync.ConnectionConfig, source erpsync.SourceConfig, sourceDesc string) {
	fmt.Fprintf(os.Stderr, "[VERBOSE] Connection resolved:\n")
	fmt.Fprintf(os.Stderr, "  frePPLe Host: %s\n", target.Host)
	fmt.Fprintf(os.Stderr, "  frePPLe Port: %d\n", target.Port)
	fmt.Fprintf(os.Stderr, "  frePPLe User: %s\n", target.Username)
	fmt.Fprintf(os.Stderr, "  frePPLe Database: %s\n", target.Database)
	fmt.Fprintf(os.Stderr, "  SSL Mode: %s\n", target.SSLMode)
	if target.SSLCert != "" {
		fmt.Fprintf(os.Stderr, "  SSL Cert: %s\n", target.SSLCert)
	}
	if target.SSLRootCert != "" {
		fmt.Fprintf(os.Stderr, "  SSL Root Cert: %s\n", target.SSLRootCert)
	}
	fmt.Fprintf(os.Stderr, "  Auth Method: %s\n", target.AuthMethod)
	fmt.Fprintf(os.Stderr, "  ERP Driver: %s\n", source.Driver)
	fmt.Fprintf(os.Stderr, "  ERP: %s\n", sourceDesc)
	if source.MaxRowsPerSecond > 0 {
		fmt.Fprintf(os.Stderr, "  ERP Rate Limit: %.0f rows/s\n", source.MaxRowsPerSecond)
	}
	policy := retry.DefaultPolicy()
	fmt.Fprintf(os.Stderr, "  Connect Retries: %d (about %v)\n", policy.Retries, policy.Delays(policy.Retries))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

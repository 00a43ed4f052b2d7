package erpsync

import (
	"errors"
	"fmt"
	"time"
)

// SyncConfig contains all parameters needed for one sync pass.
type SyncConfig struct {
	// Source describes the ERP database rows are extracted from.
	Source SourceConfig

	// Target is the resolved connection to the frePPLe database.
	Target ConnectionConfig

	// Entities restricts the pass to these entity types (empty = whole catalog).
	// The catalog's dependency order is kept regardless of the order given here.
	Entities []string

	// Disabled entity types are skipped even when listed in Entities.
	Disabled []string

	// Queries overrides the default ERP query per entity type.
	Queries map[string]string

	// TaskID claims an existing Waiting task (0 = create a new task record).
	TaskID int64

	// TaskName is the execute_log task name (default DefaultTaskName).
	TaskName string

	// User is the frePPLe username the task is recorded for (optional).
	User string

	// BatchSize is the number of rows per bulk insert statement.
	BatchSize int

	// Timeout is the global timeout for the entire pass.
	Timeout time.Duration

	// Verbose enables detailed logging
	Verbose bool
}

// Validate checks if the SyncConfig has all required fields and valid values.
// It returns a multi-error if multiple validation failures occur.
func (c *SyncConfig) Validate() error {
	var errs []error

	if c.Source.Driver == "" {
		errs = append(errs, fmt.Errorf("Source.Driver is required: %w", ErrInvalidConfig))
	}

	if c.Source.DSN == "" && c.Source.Database == "" {
		errs = append(errs, fmt.Errorf("Source.DSN or Source.Database is required: %w", ErrInvalidConfig))
	}

	if c.Target.Database == "" {
		errs = append(errs, fmt.Errorf("Target.Database is required: %w", ErrInvalidConfig))
	}

	if c.BatchSize < 0 || c.BatchSize > MaxBatchSize {
		errs = append(errs, fmt.Errorf("batch size must be between 1 and %d: %w", MaxBatchSize, ErrInvalidConfig))
	}

	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout cannot be negative: %w", ErrInvalidConfig))
	}

	if c.TaskID < 0 {
		errs = append(errs, fmt.Errorf("task id cannot be negative: %w", ErrInvalidConfig))
	}

	if c.Source.MaxRowsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("source rate limit cannot be negative: %w", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// EffectiveBatchSize returns BatchSize, or DefaultBatchSize when unset.
func (c *SyncConfig) EffectiveBatchSize() int {
	if c.BatchSize == 0 {
		return DefaultBatchSize
	}
	return c.BatchSize
}

// EffectiveTaskName returns TaskName, or DefaultTaskName when unset.
func (c *SyncConfig) EffectiveTaskName() string {
	if c.TaskName == "" {
		return DefaultTaskName
	}
	return c.TaskName
}

// SourceConfig describes the ERP database connection.
// Either DSN is given verbatim, or it is built from the granular fields for Driver.
type SourceConfig struct {
	Driver   string // sqlserver | postgres | sqlite
	DSN      string
	Host     string
	Port     int
	Database string
	Username string
	Password string

	// Params are appended to the built DSN as driver-specific query parameters.
	Params map[string]string

	ConnectTimeout time.Duration

	// MaxRowsPerSecond throttles extraction to spare a production ERP (0 = unlimited).
	MaxRowsPerSecond float64
}

// ConnectionConfig represents parsed connection parameters of the frePPLe database.
type ConnectionConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string

	// SSL client certificate paths (verify-ca / verify-full / mTLS)
	SSLCert     string
	SSLKey      string
	SSLRootCert string

	// AuthMethod indicates the authentication mechanism to use
	AuthMethod AuthMethod

	// Additional connection parameters
	AppName          string
	ConnectTimeout   time.Duration
	AdditionalParams map[string]string

	// Azure Entra ID authentication parameters (used when AuthMethod is AuthMethodAzureEntraID)
	// If all three are provided, Service Principal authentication is used.
	// If none are provided, DefaultAzureCredential chain is used (env vars, managed identity, CLI, etc.)
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string

	// AWSRegion is required for AuthMethodAWSIAM.
	AWSRegion string

	// GoogleInstance is the Cloud SQL instance connection name (project:region:instance).
	GoogleInstance string
}

// String returns a password-free description for logs and lock keys.
func (c *ConnectionConfig) String() string {
	if c.GoogleInstance != "" {
		return fmt.Sprintf("%s/%s", c.GoogleInstance, c.Database)
	}
	return fmt.Sprintf("%s:%d/%s", c.Host, c.Port, c.Database)
}

// AuthMethod represents the type of authentication to use.
type AuthMethod int

const (
	AuthMethodStandard     AuthMethod = iota // Username/Password
	AuthMethodCertificate                    // mTLS
	AuthMethodAWSIAM                         // AWS IAM Database Authentication
	AuthMethodGoogleIAM                      // Google Cloud SQL IAM
	AuthMethodAzureEntraID                   // Azure Active Directory (Entra ID)
)

// String returns a human-readable string representation of the AuthMethod.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodStandard:
		return "Standard"
	case AuthMethodCertificate:
		return "Certificate"
	case AuthMethodAWSIAM:
		return "AWS IAM"
	case AuthMethodGoogleIAM:
		return "Google IAM"
	case AuthMethodAzureEntraID:
		return "Azure Entra ID"
	default:
		return fmt.Sprintf("Unknown(%d)", a)
	}
}

// IsValid returns true if the AuthMethod is a valid, defined value.
func (a AuthMethod) IsValid() bool {
	return a >= AuthMethodStandard && a <= AuthMethodAzureEntraID
}

// ParseAuthMethod converts a configuration value ("aws", "azure", ...) to an AuthMethod.
func ParseAuthMethod(s string) (AuthMethod, error) {
	switch s {
	case "", "standard", "password":
		return AuthMethodStandard, nil
	case "cert", "certificate":
		return AuthMethodCertificate, nil
	case "aws", "aws-iam":
		return AuthMethodAWSIAM, nil
	case "google", "google-iam":
		return AuthMethodGoogleIAM, nil
	case "azure", "azure-entra-id":
		return AuthMethodAzureEntraID, nil
	default:
		return AuthMethodStandard, fmt.Errorf("%q: %w", s, ErrUnsupportedAuthMethod)
	}
}

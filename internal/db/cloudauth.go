package db

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"cloud.google.com/go/cloudsqlconn"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/rds/auth"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/erpsync/internal/logging"
	"github.com/vvka-141/erpsync/pkg/erpsync"
)

// TokenProvider issues short-lived cloud tokens used as the frePPLe database password.
type TokenProvider interface {
	GetToken(ctx context.Context) (token string, expiresOn time.Time, err error)
	// String describes the provider for logs, without secrets.
	String() string
}

const (
	// AzurePostgreSQLScope is the OAuth scope of Azure Database for PostgreSQL.
	AzurePostgreSQLScope = "https://ossrdbms-aad.database.windows.net/.default"

	rdsTokenLifetime = 15 * time.Minute
)

// RDSTokenProvider signs RDS IAM tokens with the default AWS credential
// chain: environment, shared config, then the instance or task role.
type RDSTokenProvider struct {
	endpoint    string // host:port
	region      string
	username    string
	credentials aws.CredentialsProvider
}

func NewRDSTokenProvider(endpoint, region, username string) (*RDSTokenProvider, error) {
	var missing []string
	if endpoint == "" {
		missing = append(missing, "endpoint (host:port)")
	}
	if region == "" {
		missing = append(missing, "region (--aws-region or $AWS_REGION)")
	}
	if username == "" {
		missing = append(missing, "database username (-U)")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("AWS IAM auth requires %s: %w", strings.Join(missing, ", "), erpsync.ErrInvalidConfig)
	}

	// Credentials are resolved lazily, so this does not reach AWS.
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &RDSTokenProvider{endpoint: endpoint, region: region, username: username, credentials: cfg.Credentials}, nil
}

func (p *RDSTokenProvider) GetToken(ctx context.Context) (string, time.Time, error) {
	token, err := auth.BuildAuthToken(ctx, p.endpoint, p.region, p.username, p.credentials)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("build RDS auth token: %w", err)
	}
	return token, time.Now().Add(rdsTokenLifetime), nil
}

func (p *RDSTokenProvider) String() string {
	return fmt.Sprintf("RDS IAM (endpoint=%s, region=%s, user=%s)", p.endpoint, p.region, p.username)
}

// EntraTokenProvider issues Entra ID tokens for Azure Database for PostgreSQL.
type EntraTokenProvider struct {
	credential  azcore.TokenCredential
	description string
}

// NewEntraTokenProvider uses a Service Principal when tenant, client and
// secret are all given, and the DefaultAzureCredential chain otherwise
// (workload or managed identity next to frePPLe, Azure CLI on a laptop).
func NewEntraTokenProvider(tenantID, clientID, clientSecret string) (*EntraTokenProvider, error) {
	if tenantID != "" && clientID != "" && clientSecret != "" {
		cred, err := azidentity.NewClientSecretCredential(tenantID, clientID, clientSecret, nil)
		if err != nil {
			return nil, fmt.Errorf("azure service principal: %w", err)
		}
		return &EntraTokenProvider{
			credential:  cred,
			description: fmt.Sprintf("Azure service principal (tenant=%s, client=%s)", tenantID, clientID),
		}, nil
	}

	cred, err := azidentity.NewDefaultAzureCredential(&azidentity.DefaultAzureCredentialOptions{TenantID: tenantID})
	if err != nil {
		return nil, fmt.Errorf("azure default credential: %w", err)
	}
	return &EntraTokenProvider{credential: cred, description: "Azure default credential"}, nil
}

func (p *EntraTokenProvider) GetToken(ctx context.Context) (string, time.Time, error) {
	tok, err := p.credential.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{AzurePostgreSQLScope}})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("azure token: %w", err)
	}
	return tok.Token, tok.ExpiresOn, nil
}

func (p *EntraTokenProvider) String() string {
	return p.description
}

// CloudSQLConnector reaches a Google Cloud SQL instance through the Cloud SQL
// Go connector with IAM database authentication. The dialer handles TLS.
//
// Close it after the pool to release the dialer.
type CloudSQLConnector struct {
	config   *erpsync.ConnectionConfig
	instance string // project:region:instance
	logger   erpsync.Logger
	dialer   *cloudsqlconn.Dialer
}

func NewCloudSQLConnector(config *erpsync.ConnectionConfig, logger erpsync.Logger) (*CloudSQLConnector, error) {
	if config.GoogleInstance == "" {
		return nil, fmt.Errorf("Google Cloud SQL IAM auth requires --google-instance (project:region:instance): %w", erpsync.ErrInvalidConfig)
	}
	if config.Username == "" {
		return nil, fmt.Errorf("Google Cloud SQL IAM auth requires username (-U): %w", erpsync.ErrInvalidConfig)
	}
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &CloudSQLConnector{config: config, instance: config.GoogleInstance, logger: logger}, nil
}

func (c *CloudSQLConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	dialer, err := cloudsqlconn.NewDialer(ctx, cloudsqlconn.WithIAMAuthN())
	if err != nil {
		return nil, fmt.Errorf("create Cloud SQL dialer: %w", err)
	}

	dsn := fmt.Sprintf("host=%s user=%s dbname=%s sslmode=disable application_name=%s",
		c.instance, c.config.Username, c.config.Database, DefaultAppName)
	where := &erpsync.ConnectionConfig{Host: c.instance, Database: c.config.Database}
	viaDialer := func(pc *pgxpool.Config) {
		pc.ConnConfig.DialFunc = func(ctx context.Context, _, _ string) (net.Conn, error) {
			return dialer.Dial(ctx, c.instance)
		}
	}

	var pool *pgxpool.Pool
	err = newRetrier(c.logger).Do(ctx, func(ctx context.Context) error {
		var err error
		pool, err = openPool(ctx, where, dsn, c.logger, viaDialer)
		return err
	})
	if err != nil {
		dialer.Close()
		return nil, err
	}

	c.logger.Verbose("Connected to Cloud SQL instance %s", c.instance)
	c.dialer = dialer
	return pool, nil
}

// Close releases the dialer. Call it after closing the pool.
func (c *CloudSQLConnector) Close() error {
	if c.dialer != nil {
		c.dialer.Close()
		c.dialer = nil
	}
	return nil
}

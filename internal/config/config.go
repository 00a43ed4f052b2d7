package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

// ConnectionConfig is the frePPLe target block.
type ConnectionConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Username       string `yaml:"username"`
	Database       string `yaml:"database"`
	SSLMode        string `yaml:"sslmode"`
	SSLCert        string `yaml:"sslcert,omitempty"`
	SSLKey         string `yaml:"sslkey,omitempty"`
	SSLRootCert    string `yaml:"sslrootcert,omitempty"`
	AuthMethod     string `yaml:"auth_method,omitempty"`
	AzureTenantID  string `yaml:"azure_tenant_id,omitempty"`
	AzureClientID  string `yaml:"azure_client_id,omitempty"`
	AWSRegion      string `yaml:"aws_region,omitempty"`
	GoogleInstance string `yaml:"google_instance,omitempty"`
}

// SourceConfig is the ERP block. The password is never read from the file.
type SourceConfig struct {
	Driver           string            `yaml:"driver"`
	DSN              string            `yaml:"dsn,omitempty"`
	Host             string            `yaml:"host,omitempty"`
	Port             int               `yaml:"port,omitempty"`
	Database         string            `yaml:"database,omitempty"`
	Username         string            `yaml:"username,omitempty"`
	Params           map[string]string `yaml:"params,omitempty"`
	ConnectTimeout   string            `yaml:"connect_timeout,omitempty"`
	MaxRowsPerSecond float64           `yaml:"max_rows_per_second,omitempty"`
}

// EntityConfig customizes a single entity type.
type EntityConfig struct {
	Query    string `yaml:"query,omitempty"`
	Disabled bool   `yaml:"disabled,omitempty"`
}

type ProjectConfig struct {
	Source    SourceConfig            `yaml:"source"`
	Target    ConnectionConfig        `yaml:"target"`
	Entities  map[string]EntityConfig `yaml:"entities"`
	Only      []string                `yaml:"only"`
	BatchSize int                     `yaml:"batch_size"`
	Timeout   string                  `yaml:"timeout"`
	TaskName  string                  `yaml:"task_name"`
}

const ConfigFileName = "erpsync.yaml"

func Load(projectPath string) (*ProjectConfig, error) {
	configPath := filepath.Join(projectPath, ConfigFileName)
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", configPath, err)
	}
	return &cfg, nil
}

// Queries returns the per-entity query overrides keyed by lowercase entity name.
func (c *ProjectConfig) Queries() map[string]string {
	out := make(map[string]string)
	if c == nil {
		return out
	}
	for name, e := range c.Entities {
		if e.Query != "" {
			out[strings.ToLower(name)] = e.Query
		}
	}
	return out
}

// Disabled returns the sorted names of entity types switched off in the file.
func (c *ProjectConfig) Disabled() []string {
	if c == nil {
		return nil
	}
	var out []string
	for name, e := range c.Entities {
		if e.Disabled {
			out = append(out, strings.ToLower(name))
		}
	}
	sort.Strings(out)
	return out
}

// ParseTimeout parses the timeout field; an empty value yields zero.
func (c *ProjectConfig) ParseTimeout() (time.Duration, error) {
	if c == nil || c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q in %s: %w", c.Timeout, ConfigFileName, err)
	}
	return d, nil
}

// ParseSourceConnectTimeout parses source.connect_timeout; an empty value yields zero.
func (c *ProjectConfig) ParseSourceConnectTimeout() (time.Duration, error) {
	if c == nil || c.Source.ConnectTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Source.ConnectTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid source.connect_timeout %q in %s: %w", c.Source.ConnectTimeout, ConfigFileName, err)
	}
	return d, nil
}

// Package config provides configuration management.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"pipeline-cost/core/types"
	"pipeline-cost/internal/errors"
	"pipeline-cost/internal/logging"
)

// Backend names accepted in QueryConfig.Backend
const (
	BackendSynapse     = "synapse"
	BackendDataFactory = "datafactory"
	BackendFile        = "file"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "PIPELINE_COST_"

// Config is the main application configuration
type Config struct {
	// Version is the configuration version
	Version string `json:"version" yaml:"version"`

	// Query selects and tunes the pipeline run source
	Query QueryConfig `json:"query" yaml:"query"`

	// Pricing contains pricing configuration
	Pricing PricingConfig `json:"pricing" yaml:"pricing"`

	// Output contains output configuration
	Output OutputConfig `json:"output" yaml:"output"`

	// Storage configures the report history store
	Storage StorageConfig `json:"storage" yaml:"storage"`

	// Metrics configures metrics export
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`

	// Logging contains logging configuration
	Logging logging.Config `json:"logging" yaml:"logging"`
}

// QueryConfig contains query backend settings
type QueryConfig struct {
	// Backend is synapse, datafactory or file
	Backend string `json:"backend" yaml:"backend"`

	// Workspace is the Synapse workspace name
	Workspace string `json:"workspace,omitempty" yaml:"workspace,omitempty"`

	// SubscriptionID is the Azure subscription of a data factory
	SubscriptionID string `json:"subscription_id,omitempty" yaml:"subscription_id,omitempty"`

	// ResourceGroup is the resource group of a data factory
	ResourceGroup string `json:"resource_group,omitempty" yaml:"resource_group,omitempty"`

	// Factory is the data factory name
	Factory string `json:"factory,omitempty" yaml:"factory,omitempty"`

	// FixturePath is the JSON export replayed by the file backend
	FixturePath string `json:"fixture_path,omitempty" yaml:"fixture_path,omitempty"`

	// LookbackDays is the default window length ending now
	LookbackDays int `json:"lookback_days" yaml:"lookback_days"`

	// RequestsPerSecond limits calls to the service
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`

	// Burst is the rate limiter burst size
	Burst int `json:"burst" yaml:"burst"`

	// MaxRetries is the retry budget for throttled or failed calls
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// HTTPTimeoutSeconds bounds each HTTP call
	HTTPTimeoutSeconds int `json:"http_timeout_seconds" yaml:"http_timeout_seconds"`
}

// PricingConfig contains pricing-related settings
type PricingConfig struct {
	// DefaultCurrency is the default currency
	DefaultCurrency types.Currency `json:"default_currency" yaml:"default_currency"`

	// RateCardPath is an optional HCL rate card overriding built-in rates
	RateCardPath string `json:"rate_card_path,omitempty" yaml:"rate_card_path,omitempty"`
}

// OutputConfig contains output-related settings
type OutputConfig struct {
	// DefaultFormat is csv, json or table
	DefaultFormat string `json:"default_format" yaml:"default_format"`

	// Directory receives generated report files
	Directory string `json:"directory" yaml:"directory"`
}

// StorageConfig contains report history settings
type StorageConfig struct {
	// Enabled saves every report
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Driver is sqlite or postgres
	Driver string `json:"driver" yaml:"driver"`

	// DSN is the SQLite file path or PostgreSQL connection URL
	DSN string `json:"dsn" yaml:"dsn"`
}

// MetricsConfig contains metrics export settings
type MetricsConfig struct {
	// TextfilePath, when set, receives Prometheus metrics after each report
	TextfilePath string `json:"textfile_path,omitempty" yaml:"textfile_path,omitempty"`
}

// Default returns a default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	historyPath := filepath.Join(homeDir, ".pipeline-cost", "history.db")

	return &Config{
		Version: "1.0",
		Query: QueryConfig{
			Backend:            BackendSynapse,
			LookbackDays:       30,
			RequestsPerSecond:  5,
			Burst:              5,
			MaxRetries:         4,
			HTTPTimeoutSeconds: 60,
		},
		Pricing: PricingConfig{
			DefaultCurrency: types.CurrencyUSD,
		},
		Output: OutputConfig{
			DefaultFormat: "csv",
			Directory:     ".",
		},
		Storage: StorageConfig{
			Enabled: false,
			Driver:  "sqlite",
			DSN:     historyPath,
		},
		Logging: logging.DefaultConfig(),
	}
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Load loads configuration from a JSON or YAML file, chosen by extension.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, errors.Wrap(errors.TypeConfig, "failed to read config", err)
	}

	config := Default()
	if isYAML(path) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, errors.Wrapf(errors.TypeConfig, err, "failed to parse config %s", path)
	}

	return config, nil
}

// Save saves configuration to a file
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ApplyEnv overrides settings from PIPELINE_COST_* variables
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	str("BACKEND", &c.Query.Backend)
	str("WORKSPACE", &c.Query.Workspace)
	str("SUBSCRIPTION_ID", &c.Query.SubscriptionID)
	str("RESOURCE_GROUP", &c.Query.ResourceGroup)
	str("FACTORY", &c.Query.Factory)
	str("RATE_CARD", &c.Pricing.RateCardPath)
	str("STORAGE_DRIVER", &c.Storage.Driver)
	str("STORAGE_DSN", &c.Storage.DSN)
	str("LOG_LEVEL", &c.Logging.Level)

	if v, ok := lookup(EnvPrefix + "LOOKBACK_DAYS"); ok && v != "" {
		days, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(errors.TypeConfig, err, "invalid %sLOOKBACK_DAYS", EnvPrefix)
		}
		c.Query.LookbackDays = days
	}
	return nil
}

// Validate checks that the selected backend has what it needs
func (c *Config) Validate() error {
	q := c.Query
	switch q.Backend {
	case BackendSynapse:
		if q.Workspace == "" {
			return errors.Config("synapse backend requires a workspace")
		}
	case BackendDataFactory:
		if q.SubscriptionID == "" || q.ResourceGroup == "" || q.Factory == "" {
			return errors.Config("datafactory backend requires subscription_id, resource_group and factory")
		}
	case BackendFile:
		if q.FixturePath == "" {
			return errors.Config("file backend requires fixture_path")
		}
	default:
		return errors.Newf(errors.TypeConfig, "unknown backend %q", q.Backend)
	}

	if q.LookbackDays <= 0 {
		return errors.Config("lookback_days must be positive")
	}
	if q.RequestsPerSecond < 0 || q.MaxRetries < 0 {
		return errors.Config("requests_per_second and max_retries must not be negative")
	}
	if c.Storage.Enabled && c.Storage.Driver != "sqlite" && c.Storage.Driver != "postgres" {
		return errors.Newf(errors.TypeConfig, "unknown storage driver %q", c.Storage.Driver)
	}
	return nil
}

// Global configuration instance
var globalConfig = Default()

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// Set sets the global configuration
func Set(config *Config) {
	globalConfig = config
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"candle-stream/src/models"
	"candle-stream/src/utils"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment overrides for secrets that should not live in the YAML file.
const (
	EnvHistoricalKey = "CANDLE_STREAM_HISTORICAL_KEY"
	EnvDBConnection  = "CANDLE_STREAM_DB_CONNECTION"
	EnvRedisPassword = "CANDLE_STREAM_REDIS_PASSWORD"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}

	// 3. Secrets from .env (next to the config file, then the working directory) and environment
	_ = godotenv.Load(filepath.Join(filepath.Dir(configPath), ".env"))
	_ = godotenv.Load(".env")
	config.ApplyEnv()

	config.ApplyDefaults()

	// 4. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// ApplyEnv overrides secrets from the process environment
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvHistoricalKey)); v != "" {
		c.Upstream.HistoricalKey = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDBConnection)); v != "" {
		c.Storage.DBConnectionString = v
	}
	if v := os.Getenv(EnvRedisPassword); v != "" {
		c.Cache.Password = v
	}
}

// -----------------------------------------------------------------------------

// ApplyDefaults fills optional settings left empty in the YAML file
func (c *Config) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if c.Market.Calendar == "" {
		c.Market.Calendar = "fx"
	}
	if c.Upstream.WrongIDRetries <= 0 {
		c.Upstream.WrongIDRetries = 3
	}
	if c.Stream.DelaySeconds <= 0 {
		c.Stream.DelaySeconds = 1
	}
	if c.Stream.PeriodSeconds <= 0 {
		c.Stream.PeriodSeconds = 60
	}
	if c.Stream.ToleranceMillis <= 0 {
		c.Stream.ToleranceMillis = 100
	}
	if c.Stream.RecheckMillis <= 0 {
		c.Stream.RecheckMillis = 50
	}
	if c.Stream.KeepaliveSeconds <= 0 {
		c.Stream.KeepaliveSeconds = 15
	}
	if c.Cache.TTLSeconds <= 0 {
		c.Cache.TTLSeconds = 30
	}
	if c.Client.Retention <= 0 {
		c.Client.Retention = utils.DefaultRetention
	}
	if c.Network.ConcurrentRequests <= 0 {
		c.Network.ConcurrentRequests = 8
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	// Validate App configuration (Flattened)
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Validate Server configuration (Flattened)
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}

	// Validate Storage configuration
	switch c.Storage.DBType {
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return fmt.Errorf("database connection string cannot be empty for postgres")
		}
	case "":
		return fmt.Errorf("database type cannot be empty")
	default:
		return fmt.Errorf("unsupported database type: %s", c.Storage.DBType)
	}

	// Validate Network configuration
	if c.Network.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}
	if c.Network.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}

	// Validate upstream feeds
	if c.Upstream.QuoteBaseURL == "" {
		return fmt.Errorf("quote base url cannot be empty")
	}
	if c.Upstream.HistoricalBaseURL == "" {
		return fmt.Errorf("historical base url cannot be empty")
	}

	// Validate instruments
	if len(c.Instruments) == 0 {
		return fmt.Errorf("at least one instrument must be configured")
	}
	seen := make(map[string]bool, len(c.Instruments))
	for i, inst := range c.Instruments {
		if inst.Name == "" || inst.ID == "" {
			return fmt.Errorf("instrument %d must have a name and an id", i)
		}
		if seen[inst.Name] {
			return fmt.Errorf("instrument '%s' is configured twice", inst.Name)
		}
		seen[inst.Name] = true
	}

	// Validate client settings
	if c.Client.Retention <= 1000 {
		return fmt.Errorf("client retention must be greater than 1000, got %d", c.Client.Retention)
	}
	for _, sub := range c.Client.DefaultSubscriptions {
		if !seen[sub] {
			return fmt.Errorf("default subscription '%s' is not a configured instrument", sub)
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends
const (
	StorageMemory        = "memory"
	StorageSQLite        = "sqlite"
	StoragePostgres      = "postgres"
	StorageElasticsearch = "elasticsearch"
)

// Config holds all configuration for the application
type Config struct {
	// Storage configuration
	StorageType string
	DataDir     string
	SQLitePath  string
	PostgresDSN string

	// Elasticsearch configuration
	ElasticsearchURL         string
	ElasticsearchUsername    string
	ElasticsearchPassword    string
	ElasticsearchIndexPrefix string

	// Maintenance
	PurgeInterval time.Duration
	WalletDBPath  string // empty disables balance capture

	// Observability
	LogLevel    string
	MetricsAddr string // empty disables the metrics server

	// Discord configuration, optional
	Token   string
	AppID   string
	GuildID string
}

// Load reads .env when present and then the environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// Only return error if file exists but couldn't be loaded
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}

	if cfg.StorageType == StorageSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	return cfg, nil
}

// FromEnv builds and validates a Config from environment variables
func FromEnv() (*Config, error) {
	dataDir := getEnvWithDefault("DATA_DIR", "data")

	purgeInterval, err := time.ParseDuration(getEnvWithDefault("PURGE_INTERVAL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid PURGE_INTERVAL: %w", err)
	}

	cfg := &Config{
		StorageType:              strings.ToLower(getEnvWithDefault("STORAGE_TYPE", StorageSQLite)),
		DataDir:                  dataDir,
		SQLitePath:               getEnvWithDefault("SQLITE_PATH", filepath.Join(dataDir, "ledger.db")),
		PostgresDSN:              os.Getenv("POSTGRES_DSN"),
		ElasticsearchURL:         getEnvWithDefault("ELASTICSEARCH_URL", "http://localhost:9200"),
		ElasticsearchUsername:    os.Getenv("ELASTICSEARCH_USERNAME"),
		ElasticsearchPassword:    os.Getenv("ELASTICSEARCH_PASSWORD"),
		ElasticsearchIndexPrefix: getEnvWithDefault("ELASTICSEARCH_INDEX_PREFIX", "ledger"),
		PurgeInterval:            purgeInterval,
		WalletDBPath:             os.Getenv("WALLET_DB_PATH"),
		LogLevel:                 getEnvWithDefault("LOG_LEVEL", "info"),
		MetricsAddr:              getEnvWithDefault("METRICS_ADDR", ":9090"),
		Token:                    os.Getenv("DISCORD_TOKEN"),
		AppID:                    os.Getenv("APP_ID"),
		GuildID:                  os.Getenv("GUILD_ID"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DiscordEnabled reports whether a bot token is configured
func (c *Config) DiscordEnabled() bool {
	return c.Token != ""
}

// CaptureEnabled reports whether a wallet database is configured
func (c *Config) CaptureEnabled() bool {
	return c.WalletDBPath != ""
}

// validate checks if all required configuration is present
func (c *Config) validate() error {
	switch c.StorageType {
	case StorageMemory, StorageSQLite, StorageElasticsearch:
	case StoragePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required when STORAGE_TYPE is postgres")
		}
	default:
		return fmt.Errorf("unknown STORAGE_TYPE %q", c.StorageType)
	}

	if c.PurgeInterval <= 0 {
		return fmt.Errorf("PURGE_INTERVAL must be positive")
	}
	if c.DiscordEnabled() && c.AppID == "" {
		return fmt.Errorf("APP_ID is required when DISCORD_TOKEN is set")
	}
	return nil
}

// getEnvWithDefault returns environment variable value or default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

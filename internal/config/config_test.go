package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"STORAGE_TYPE", "DATA_DIR", "SQLITE_PATH", "POSTGRES_DSN",
	"ELASTICSEARCH_URL", "ELASTICSEARCH_USERNAME", "ELASTICSEARCH_PASSWORD", "ELASTICSEARCH_INDEX_PREFIX",
	"PURGE_INTERVAL", "WALLET_DB_PATH", "LOG_LEVEL", "METRICS_ADDR",
	"DISCORD_TOKEN", "APP_ID", "GUILD_ID",
}

func clearEnv(t *testing.T) {
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, StorageSQLite, cfg.StorageType)
	assert.Equal(t, filepath.Join("data", "ledger.db"), cfg.SQLitePath)
	assert.Equal(t, "http://localhost:9200", cfg.ElasticsearchURL)
	assert.Equal(t, "ledger", cfg.ElasticsearchIndexPrefix)
	assert.Equal(t, time.Hour, cfg.PurgeInterval)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.False(t, cfg.DiscordEnabled())
	assert.False(t, cfg.CaptureEnabled())
}

func TestFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORAGE_TYPE", "Postgres")
	t.Setenv("POSTGRES_DSN", "postgres://ledger@localhost/ledger?sslmode=disable")
	t.Setenv("PURGE_INTERVAL", "15m")
	t.Setenv("WALLET_DB_PATH", "/srv/tuco/tucoramirez.db")
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("APP_ID", "app")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, StoragePostgres, cfg.StorageType)
	assert.Equal(t, 15*time.Minute, cfg.PurgeInterval)
	assert.True(t, cfg.CaptureEnabled())
	assert.True(t, cfg.DiscordEnabled())
}

func TestFromEnvValidation(t *testing.T) {
	testCases := []struct {
		name string
		env  map[string]string
		err  string
	}{
		{
			name: "Unknown storage",
			env:  map[string]string{"STORAGE_TYPE": "mongo"},
			err:  "unknown STORAGE_TYPE",
		},
		{
			name: "Postgres without DSN",
			env:  map[string]string{"STORAGE_TYPE": "postgres"},
			err:  "POSTGRES_DSN is required",
		},
		{
			name: "Bad purge interval",
			env:  map[string]string{"PURGE_INTERVAL": "hourly"},
			err:  "invalid PURGE_INTERVAL",
		},
		{
			name: "Negative purge interval",
			env:  map[string]string{"PURGE_INTERVAL": "-5m"},
			err:  "PURGE_INTERVAL must be positive",
		},
		{
			name: "Token without app",
			env:  map[string]string{"DISCORD_TOKEN": "token"},
			err:  "APP_ID is required",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for key, value := range tc.env {
				t.Setenv(key, value)
			}

			_, err := FromEnv()
			assert.ErrorContains(t, err, tc.err)
		})
	}
}

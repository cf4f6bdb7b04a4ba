package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, 50, cfg.SeedRecords)
	assert.Equal(t, 500*time.Millisecond, cfg.ScrapePoll)
	assert.False(t, cfg.LegacyCSV)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9090")
	t.Setenv("STORE", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/intel")
	t.Setenv("SCRAPE_WORKERS", "4")
	t.Setenv("SCRAPE_POLL", "2s")
	t.Setenv("CSV_LEGACY", "true")
	t.Setenv("SEED_VALUE", "42")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, StorePostgres, cfg.Store)
	assert.Equal(t, 4, cfg.ScrapeWorkers)
	assert.Equal(t, 2*time.Second, cfg.ScrapePoll)
	assert.True(t, cfg.LegacyCSV)
	assert.Equal(t, uint64(42), cfg.SeedValue)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadWarnsOnMissingDSN(t *testing.T) {
	t.Setenv("STORE", "postgres")
	cfg, err := Load()
	assert.Error(t, err)
	assert.Equal(t, StorePostgres, cfg.Store, "config is still returned")

	t.Setenv("STORE", "mongo")
	_, err = Load()
	assert.Error(t, err)
}

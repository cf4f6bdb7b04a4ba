package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"cryptointel/internal/logging"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

type Config struct {
	Env        string
	ListenAddr string
	Store      string
	// DatabaseURL is the Postgres DSN; required when Store is postgres.
	DatabaseURL string
	SQLitePath  string

	SeedFile    string
	SeedRecords int
	SeedValue   uint64

	ScrapeWorkers int
	ScrapePoll    time.Duration

	// LegacyCSV disables quote doubling in CSV exports.
	LegacyCSV bool

	Log logging.Config
}

func defaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LISTEN_ADDR", ":8080")
	v.SetDefault("STORE", StoreMemory)
	v.SetDefault("SQLITE_PATH", "cryptointel.db")
	v.SetDefault("SEED_RECORDS", 50)
	v.SetDefault("SEED_VALUE", 1)
	v.SetDefault("SCRAPE_WORKERS", 0)
	v.SetDefault("SCRAPE_POLL", "500ms")
	v.SetDefault("CSV_LEGACY", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_MAX_SIZE_MB", 100)
	v.SetDefault("LOG_MAX_BACKUPS", 10)
	v.SetDefault("LOG_MAX_AGE_DAYS", 30)
	v.SetDefault("LOG_COMPRESS", true)
}

// Load reads configuration from the environment. A missing DSN for the
// selected store is reported as an error alongside the loaded config so
// callers can decide whether it is fatal.
func Load() (Config, error) {
	v := viper.New()
	defaults(v)
	v.AutomaticEnv()

	cfg := Config{
		Env:           v.GetString("APP_ENV"),
		ListenAddr:    v.GetString("LISTEN_ADDR"),
		Store:         strings.ToLower(v.GetString("STORE")),
		DatabaseURL:   v.GetString("DATABASE_URL"),
		SQLitePath:    v.GetString("SQLITE_PATH"),
		SeedFile:      v.GetString("SEED_FILE"),
		SeedRecords:   v.GetInt("SEED_RECORDS"),
		SeedValue:     v.GetUint64("SEED_VALUE"),
		ScrapeWorkers: v.GetInt("SCRAPE_WORKERS"),
		ScrapePoll:    v.GetDuration("SCRAPE_POLL"),
		LegacyCSV:     v.GetBool("CSV_LEGACY"),
		Log: logging.Config{
			Level:      v.GetString("LOG_LEVEL"),
			Format:     v.GetString("LOG_FORMAT"),
			File:       v.GetString("LOG_FILE"),
			MaxSizeMB:  v.GetInt("LOG_MAX_SIZE_MB"),
			MaxBackups: v.GetInt("LOG_MAX_BACKUPS"),
			MaxAgeDays: v.GetInt("LOG_MAX_AGE_DAYS"),
			Compress:   v.GetBool("LOG_COMPRESS"),
		},
	}
	if cfg.ScrapePoll <= 0 {
		cfg.ScrapePoll = 500 * time.Millisecond
	}

	switch cfg.Store {
	case StoreMemory:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return cfg, fmt.Errorf("DATABASE_URL not set")
		}
	case StoreSQLite:
		if cfg.SQLitePath == "" {
			return cfg, fmt.Errorf("SQLITE_PATH not set")
		}
	default:
		return cfg, fmt.Errorf("unknown STORE %q", cfg.Store)
	}
	return cfg, nil
}

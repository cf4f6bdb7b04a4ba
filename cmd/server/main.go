package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	httpadapter "cryptointel/internal/adapters/http"
	"cryptointel/internal/adapters/memory"
	pg "cryptointel/internal/adapters/postgres"
	"cryptointel/internal/adapters/sqlite"
	"cryptointel/internal/config"
	"cryptointel/internal/export"
	"cryptointel/internal/logging"
	"cryptointel/internal/metrics"
	"cryptointel/internal/ports"
	"cryptointel/internal/seed"
	alertsvc "cryptointel/internal/services/alerts"
	dashsvc "cryptointel/internal/services/dashboard"
	invsvc "cryptointel/internal/services/investigation"
	srcsvc "cryptointel/internal/services/sources"
	"cryptointel/internal/workers/scraperunner"
)

// backend is everything a store adapter provides.
type backend interface {
	ports.RecordRepository
	ports.AlertRepository
	ports.SourceRepository
	ports.ScrapeJobRepository
	ports.Seeder
}

func main() {
	cfg, cfgErr := config.Load()
	log, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(log)
	if cfgErr != nil {
		log.Warn("config", "err", cfgErr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error("store open failed", "store", cfg.Store, "err", err)
		os.Exit(1)
	}
	defer closeStore()

	ds, err := loader(cfg).Load(ctx)
	if err != nil {
		log.Error("seed load failed", "err", err)
		os.Exit(1)
	}
	if err := ds.Validate(); err != nil {
		log.Error("seed data invalid", "err", err)
		os.Exit(1)
	}
	if err := store.Seed(ctx, ds); err != nil {
		log.Error("seed failed", "err", err)
		os.Exit(1)
	}
	log.Info("store ready", "store", cfg.Store, "records", len(ds.Records), "sources", len(ds.Sources))

	m := metrics.New("cryptointel")
	exporter := export.New(export.Options{LegacyCSV: cfg.LegacyCSV})
	runner := &scraperunner.Runner{
		Repo:      store,
		Processor: scraperunner.SimulatedProcessor{Delay: 150 * time.Millisecond},
		Log:       log.With("component", "scraperunner"),
		Metrics:   m,
	}
	srv := httpadapter.New(
		invsvc.New(store, exporter, ds.Detail, m, log.With("component", "investigation")),
		srcsvc.New(store, store, log.With("component", "sources")),
		alertsvc.New(store),
		dashsvc.New(store, store, time.Now),
		runner,
		m,
		log,
	)
	r := chi.NewRouter()
	r.Mount("/", srv.Routes())

	if cfg.ScrapeWorkers > 0 {
		runner.Run(ctx, cfg.ScrapeWorkers, cfg.ScrapePoll)
		log.Info("scrape workers started", "workers", cfg.ScrapeWorkers, "poll", cfg.ScrapePoll)
	}

	httpSrv := &http.Server{Addr: cfg.ListenAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()
	log.Info("listening", "addr", cfg.ListenAddr, "env", cfg.Env)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Info("shutting down", "signal", sig.String())
		cancel()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown", "err", err)
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "err", err)
			os.Exit(1)
		}
	}
}

func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (backend, func(), error) {
	switch cfg.Store {
	case config.StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, nil, errors.New("DATABASE_URL is required for the postgres store")
		}
		db, err := pg.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("db connect: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return db, db.Close, nil
	case config.StoreSQLite:
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite open %s: %w", cfg.SQLitePath, err)
		}
		return s, s.Close, nil
	}
	if cfg.Store != config.StoreMemory {
		log.Warn("unknown store, using memory", "store", cfg.Store)
	}
	return memory.New(), func() {}, nil
}

func loader(cfg config.Config) seed.Loader {
	if cfg.SeedFile != "" {
		return seed.FileLoader{Path: cfg.SeedFile}
	}
	return seed.Generator{Count: cfg.SeedRecords, Seed: cfg.SeedValue}
}

// Package app wires the ledger service from configuration for the binaries.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/checkstock/internal/cache"
	"github.com/andresuchdata/checkstock/internal/config"
	"github.com/andresuchdata/checkstock/internal/forecast"
	"github.com/andresuchdata/checkstock/internal/pipeline"
	"github.com/andresuchdata/checkstock/internal/pipeline/checkstock"
	"github.com/andresuchdata/checkstock/internal/repository"
	"github.com/andresuchdata/checkstock/internal/repository/postgres"
	"github.com/andresuchdata/checkstock/internal/service"
	"github.com/andresuchdata/checkstock/internal/storage"
)

type App struct {
	Config  *config.Config
	DB      *postgres.DB // nil with the memory backend
	Ledger  repository.Ledger
	Runs    *pipeline.Repository  // nil with the memory backend
	Storage storage.ObjectStorage // nil when no bucket is configured
	Service *service.LedgerService
}

// New opens the configured ledger backend and builds the service around it.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	var tracker pipeline.RunTracker = pipeline.NopTracker{}
	switch backend := strings.ToLower(strings.TrimSpace(cfg.App.LedgerBackend)); backend {
	case "memory":
		a.Ledger = repository.NewMemoryLedger()
	case "", "postgres":
		db, err := postgres.NewDB(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		a.DB = db
		a.Ledger = postgres.NewLedgerRepository(db)
		a.Runs = pipeline.NewRepository(db.DB.DB)
		tracker = a.Runs
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.App.LedgerBackend)
	}

	ledgerCache, err := cache.NewLedgerCache(cfg.Cache)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, caching disabled")
		ledgerCache = cache.NewNoopLedgerCache()
	}

	if cfg.Storage.Bucket != "" {
		client, err := storage.New(cfg.Storage)
		if err != nil {
			log.Warn().Err(err).Msg("object storage unavailable")
		} else {
			a.Storage = client
		}
	}

	opts := service.Options{
		Pipeline:       checkstock.NewCheckStockPipeline(checkstockOptions(cfg.Ingest)),
		PipelineConfig: pipelineConfig(cfg.Ingest),
		Tracker:        tracker,
		Cache:          ledgerCache,
		ArchivePrefix:  cfg.Storage.Prefix,
		Defaults: forecast.Request{
			LeadTimeDays: cfg.Forecast.LeadTimeDays,
			HorizonDays:  cfg.Forecast.HorizonDays,
		},
	}
	if cfg.Ingest.ArchiveUploads && a.Storage != nil {
		opts.Archive = a.Storage
	}
	a.Service = service.NewLedgerService(a.Ledger, opts)

	log.Info().
		Str("backend", cfg.App.LedgerBackend).
		Bool("cache", cfg.Cache.Enabled).
		Bool("archive", opts.Archive != nil).
		Msg("ledger service ready")

	return a, nil
}

func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}

func checkstockOptions(cfg config.IngestConfig) checkstock.Options {
	opts := checkstock.DefaultOptions()
	if cfg.MarkerToken != "" {
		opts.MarkerToken = cfg.MarkerToken
	}
	if cfg.ScanDepth > 0 {
		opts.ScanDepth = cfg.ScanDepth
	}
	return opts
}

func pipelineConfig(cfg config.IngestConfig) pipeline.PipelineConfig {
	pc := pipeline.DefaultPipelineConfig(checkstock.PipelineName)
	if cfg.Workers > 0 {
		pc.WorkerCount = cfg.Workers
	}
	if cfg.BatchSize > 0 {
		pc.BatchSize = cfg.BatchSize
	}
	if cfg.RetryAttempts > 0 {
		pc.RetryAttempts = cfg.RetryAttempts
	}
	if cfg.RetryBackoff > 0 {
		pc.RetryBackoff = cfg.RetryBackoff
	}
	return pc
}

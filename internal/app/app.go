// Package app wires the store, market data client and services from a Config.
// Both the gRPC server and the CLI start from here.
package app

import (
	"context"
	"fmt"

	"github.com/simaogato/assetflow-backend/internal/adapter/legacycsv"
	"github.com/simaogato/assetflow-backend/internal/adapter/marketdata/yahoo"
	"github.com/simaogato/assetflow-backend/internal/adapter/repository/sqlstore"
	"github.com/simaogato/assetflow-backend/internal/config"
	"github.com/simaogato/assetflow-backend/internal/logging"
	"github.com/simaogato/assetflow-backend/internal/usecase/correction"
	"github.com/simaogato/assetflow-backend/internal/usecase/ingestion"
	"github.com/simaogato/assetflow-backend/internal/usecase/portfolio"
	"github.com/simaogato/assetflow-backend/internal/usecase/reconcile"
	"github.com/simaogato/assetflow-backend/internal/usecase/retirement"
	"github.com/simaogato/assetflow-backend/internal/usecase/seeder"
	"github.com/simaogato/assetflow-backend/internal/usecase/timeseries"
)

// App holds every service built from one configuration
type App struct {
	Config *config.Config
	Logger *logging.Logger

	DB     *sqlstore.DB
	Store  *sqlstore.Store
	Series *timeseries.Engine
	Market *yahoo.Client

	Portfolio  *portfolio.PortfolioService
	Correction *correction.Service
	Reconcile  *reconcile.Service
	Ingestion  *ingestion.Service
	Retirement *retirement.Service
	Importer   *legacycsv.Importer
}

// New opens the database, applies migrations, seeds default settings and
// builds the services. Close releases the database.
func New(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*App, error) {
	db, err := sqlstore.NewDB(cfg.Storage.Driver, cfg.Storage.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	store := sqlstore.NewStore(db)
	if err := seeder.NewSystemSeeder(store.Settings()).Seed(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to seed settings: %w", err)
	}

	series := timeseries.NewEngine(logger.Component("timeseries"),
		timeseries.WithCacheTTL(cfg.Series.GetCacheTTL()))

	market := yahoo.NewClient(
		yahoo.WithBaseURL(cfg.MarketData.BaseURL),
		yahoo.WithLogger(logger.Component("yahoo")),
		yahoo.WithRateLimit(cfg.MarketData.RateLimit),
		yahoo.WithTimeout(cfg.MarketData.GetTimeout()),
		yahoo.WithHomeCurrency(cfg.MarketData.HomeCurrency),
		yahoo.WithFxTTL(cfg.MarketData.GetFxTTL()),
	)

	ingestCfg := ingestion.DefaultConfig()
	ingestCfg.LookbackDays = cfg.Ingestion.DefaultLookbackDays
	ingestCfg.RewindStart = cfg.Ingestion.GetRewindStart()
	ingestCfg.Concurrency = cfg.Ingestion.Concurrency

	return &App{
		Config:     cfg,
		Logger:     logger,
		DB:         db,
		Store:      store,
		Series:     series,
		Market:     market,
		Portfolio:  portfolio.NewPortfolioService(store, market, series, logger.Component("portfolio")),
		Correction: correction.NewService(store, market, series, logger.Component("correction")),
		Reconcile:  reconcile.NewService(store, series, logger.Component("reconcile")),
		Ingestion:  ingestion.NewService(store, market, series, logger.Component("ingestion"), ingestCfg),
		Retirement: retirement.NewService(store),
		Importer:   legacycsv.NewImporter(store, series, logger),
	}, nil
}

// Close releases the database connection
func (a *App) Close() error {
	return a.DB.Close()
}

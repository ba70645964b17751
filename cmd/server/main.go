package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ndewijer/Portfolio-NAV-Backend/internal/api"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/config"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/cse"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/database"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/logging"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/repository"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/scheduler"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/service"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/version"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/yahoo"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck // nothing to do if flushing stderr fails
	zap.ReplaceGlobals(logger)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	loc, err := cfg.Ingestion.Location()
	if err != nil {
		return err
	}

	// Open database connection
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	schemaVersion, err := database.Migrate(context.Background(), db)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	logger.Info("connected to database",
		zap.String("path", cfg.Database.Path),
		zap.Int64("schemaVersion", schemaVersion),
		zap.String("appVersion", version.Version))

	// Create repositories
	portfolioRepo := repository.NewPortfolioRepository(db)
	holdingRepo := repository.NewHoldingRepository(db)
	stockRepo := repository.NewStockRepository(db)

	// Create services
	portfolioService := service.NewPortfolioService(portfolioRepo, holdingRepo)
	priceService := service.NewPriceService(stockRepo, cfg.Prices.FetchTimeout, logger.Named("prices"))
	performanceService := service.NewPerformanceService(
		portfolioService,
		priceService,
		cfg.Benchmarks,
		logger.Named("performance"),
	)
	ingestionService := service.NewIngestionService(
		stockRepo,
		yahoo.NewFinanceClient(cfg.Yahoo.BaseURL, cfg.Yahoo.Timeout),
		cse.NewScraper(cfg.Ingestion.MarketURL, cfg.Ingestion.Timeout),
		loc,
		cfg.Ingestion.Concurrency,
		logger.Named("ingestion"),
	)
	systemService := service.NewSystemService(db, map[string]bool{
		"ingestion":         cfg.Ingestion.Enabled,
		"internal_api":      cfg.Internal.APIKey != "",
		"xlsx_export":       true,
		"default_benchmark": len(cfg.Benchmarks) > 0,
	})

	// Background scrape of the closing session
	sched := scheduler.New(logger.Named("scheduler"), loc)
	if cfg.Ingestion.Enabled {
		err := sched.AddJob("daily-scrape", cfg.Ingestion.Cron, func(ctx context.Context) error {
			_, err := ingestionService.RunDailyScrape(ctx)
			return err
		})
		if err != nil {
			return err
		}
		sched.Start()
	}

	// Create router
	router := api.NewRouter(api.Services{
		System:      systemService,
		Portfolio:   portfolioService,
		Performance: performanceService,
		Price:       priceService,
		Ingestion:   ingestionService,
	}, cfg, logger.Named("http"))

	// Create HTTP server. Backfills hold the connection for the whole Yahoo
	// round trip, hence the long write timeout.
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed to start: %w", err)
	case <-quit:
	}

	logger.Info("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := sched.Stop(ctx); err != nil {
		logger.Warn("scheduler did not stop cleanly", zap.Error(err))
	}
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited")
	return nil
}

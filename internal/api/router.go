package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ndewijer/Portfolio-NAV-Backend/internal/api/handlers"
	custommiddleware "github.com/ndewijer/Portfolio-NAV-Backend/internal/api/middleware"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/config"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/service"
)

// Services groups the services the router exposes.
type Services struct {
	System      *service.SystemService
	Portfolio   *service.PortfolioService
	Performance *service.PerformanceService
	Price       *service.PriceService
	Ingestion   *service.IngestionService
}

// NewRouter creates and configures the HTTP router
func NewRouter(svc Services, cfg *config.Config, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger(logger))
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	systemHandler := handlers.NewSystemHandler(svc.System)
	portfolioHandler := handlers.NewPortfolioHandler(svc.Portfolio)
	performanceHandler := handlers.NewPerformanceHandler(svc.Performance)
	stockHandler := handlers.NewStockHandler(svc.Price)
	ingestionHandler := handlers.NewIngestionHandler(svc.Ingestion)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// System namespace
		r.Route("/system", func(r chi.Router) {
			r.Get("/health", systemHandler.Health)
			r.Get("/version", systemHandler.Version)
		})

		r.Route("/portfolio", func(r chi.Router) {
			r.Use(custommiddleware.RequireUserID)
			r.Get("/", portfolioHandler.Portfolios)
			r.Post("/", portfolioHandler.CreatePortfolio)

			r.Route("/{uuid}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUIDMiddleware)
				r.Get("/", portfolioHandler.Portfolio)
				r.Delete("/", portfolioHandler.DeletePortfolio)
				r.Get("/holding", portfolioHandler.Holdings)
				r.Post("/holding", portfolioHandler.CreateHolding)
				r.Get("/performance", performanceHandler.Performance)
				r.Get("/summary.xlsx", performanceHandler.Summary)
				r.Get("/optimize", performanceHandler.Optimize)
			})
		})

		r.Route("/holding", func(r chi.Router) {
			r.Use(custommiddleware.RequireUserID)
			r.With(custommiddleware.ValidateUUIDMiddleware).Delete("/{uuid}", portfolioHandler.DeleteHolding)
		})

		r.Route("/stock", func(r chi.Router) {
			r.Get("/", stockHandler.Stocks)
			r.Get("/prices", stockHandler.Prices)
			r.Get("/benchmark", stockHandler.Benchmark)

			// Internal endpoints writing price histories
			r.Group(func(r chi.Router) {
				r.Use(custommiddleware.APIKey(cfg.Internal.APIKey, cfg.Internal.TimeTokenTTL))
				r.Post("/", ingestionHandler.CreateStock)
				r.Post("/quotes", ingestionHandler.ImportQuotes)
				r.Post("/backfill", ingestionHandler.Backfill)
				r.Post("/scrape", ingestionHandler.Scrape)
			})
		})
	})

	return r
}

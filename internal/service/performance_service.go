package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ndewijer/Portfolio-NAV-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/model"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/nav"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/report"
)

// PerformanceStatus tells whether a Performance carries figures.
type PerformanceStatus string

const (
	PerformanceOK PerformanceStatus = "ok"
	// PerformanceNoData means the portfolio has no holdings or no stored
	// prices from its first entry date on. It is not an error.
	PerformanceNoData PerformanceStatus = "no_data"
)

// Performance is the dashboard view of one portfolio: the NAV series, the
// per-holding summary valued at the last close, the totals and the rebased
// benchmarks. Only Portfolio and Status are set when Status is no_data.
type Performance struct {
	Portfolio  model.Portfolio
	Status     PerformanceStatus
	StartDate  time.Time
	NAV        []nav.Point
	Summary    []nav.HoldingSummary
	Totals     nav.Totals
	Benchmarks nav.PriceTable
	Skipped    []SkippedTicker
}

// PerformanceService computes portfolio NAV and summaries on request.
// Nothing is cached: every call reads holdings and prices afresh.
type PerformanceService struct {
	portfolioService  *PortfolioService
	priceService      *PriceService
	defaultBenchmarks []string
	logger            *zap.Logger
}

// NewPerformanceService creates a PerformanceService. defaultBenchmarks are
// used when a request names none.
func NewPerformanceService(
	portfolioService *PortfolioService,
	priceService *PriceService,
	defaultBenchmarks []string,
	logger *zap.Logger,
) *PerformanceService {
	return &PerformanceService{
		portfolioService:  portfolioService,
		priceService:      priceService,
		defaultBenchmarks: defaultBenchmarks,
		logger:            logger,
	}
}

// GetPerformance reconstructs the NAV of a portfolio of userID from its
// earliest entry date to the last stored close.
//
// Errors:
//   - apperrors.ErrPortfolioNotFound when the portfolio is not the user's
//   - apperrors.ErrPriceFetchFailed when the price store could not be read
//   - a nav validation error (see nav.IsValidation) when a holding cannot be
//     valued, such as a ticker with no stored prices
//
// A failure to load benchmarks is logged and reported in Skipped; it never
// fails the portfolio figures.
func (s *PerformanceService) GetPerformance(ctx context.Context, userID, portfolioID string, benchmarks []string) (Performance, error) {
	portfolio, err := s.portfolioService.GetPortfolio(ctx, userID, portfolioID)
	if err != nil {
		return Performance{}, err
	}
	perf := Performance{Portfolio: portfolio, Status: PerformanceNoData}

	holdings, err := s.portfolioService.GetHoldings(ctx, userID, portfolioID)
	if err != nil {
		return Performance{}, err
	}
	if len(holdings) == 0 {
		return perf, nil
	}

	start, tickers := holdingSpan(holdings)

	fetch := s.priceService.FetchHistoricalPrices(ctx, tickers, start)
	switch fetch.Status {
	case FetchFailed:
		return Performance{}, fmt.Errorf("%w: %w", apperrors.ErrPriceFetchFailed, fetch.Err)
	case FetchEmpty:
		perf.Skipped = fetch.Skipped
		return perf, nil
	}

	series, err := nav.ComputeWeightedNav(fetch.Table, holdings)
	if err != nil {
		return Performance{}, err
	}
	summary, err := nav.ComputeHoldingsSummary(holdings, fetch.Table, portfolio.Currency)
	if err != nil {
		return Performance{}, err
	}

	perf.Status = PerformanceOK
	perf.StartDate = fetch.Table.Dates[0]
	perf.NAV = series
	perf.Summary = summary
	perf.Totals = nav.SummarizeTotals(summary, series)
	perf.Skipped = fetch.Skipped

	if len(benchmarks) == 0 {
		benchmarks = s.defaultBenchmarks
	}
	bench, err := s.priceService.ComputeBenchmarkNav(ctx, benchmarks, perf.StartDate)
	if err != nil {
		s.logger.Warn("failed to load benchmarks",
			zap.String("portfolioId", portfolioID),
			zap.Strings("benchmarks", benchmarks),
			zap.Error(err))
		for _, b := range benchmarks {
			perf.Skipped = append(perf.Skipped, SkippedTicker{Ticker: b, Reason: "benchmark prices unavailable"})
		}
		return perf, nil
	}
	perf.Benchmarks = bench.Series
	perf.Skipped = append(perf.Skipped, bench.Skipped...)

	return perf, nil
}

// Optimization is a suggested allocation for the tickers a portfolio holds,
// computed over their common price history since the earliest entry date.
// Only Portfolio, Status, Goal and Skipped are set when Status is no_data.
type Optimization struct {
	Portfolio  model.Portfolio
	Status     PerformanceStatus
	Goal       nav.Goal
	StartDate  time.Time
	Allocation nav.Allocation
	Skipped    []SkippedTicker
}

// Optimize suggests weights over the tickers held by a portfolio of userID
// that maximize the Sharpe ratio or minimize volatility, as goal selects.
//
// Errors are those of GetPerformance, plus nav.ErrUnknownGoal. A portfolio
// with no holdings or less than two days of common history is no_data.
func (s *PerformanceService) Optimize(ctx context.Context, userID, portfolioID string, goal nav.Goal) (Optimization, error) {
	portfolio, err := s.portfolioService.GetPortfolio(ctx, userID, portfolioID)
	if err != nil {
		return Optimization{}, err
	}
	opt := Optimization{Portfolio: portfolio, Status: PerformanceNoData, Goal: goal}

	holdings, err := s.portfolioService.GetHoldings(ctx, userID, portfolioID)
	if err != nil {
		return Optimization{}, err
	}
	if len(holdings) == 0 {
		return opt, nil
	}
	start, tickers := holdingSpan(holdings)

	fetch := s.priceService.FetchHistoricalPrices(ctx, tickers, start)
	opt.Skipped = fetch.Skipped
	switch fetch.Status {
	case FetchFailed:
		return Optimization{}, fmt.Errorf("%w: %w", apperrors.ErrPriceFetchFailed, fetch.Err)
	case FetchEmpty:
		return opt, nil
	}

	alloc, err := nav.Optimize(fetch.Table, goal, nav.TradingDaysPerYear)
	if errors.Is(err, nav.ErrInsufficientHistory) {
		s.logger.Info("not enough history to optimize",
			zap.String("portfolioId", portfolioID),
			zap.Error(err))
		return opt, nil
	}
	if err != nil {
		return Optimization{}, err
	}

	opt.Status = PerformanceOK
	opt.StartDate = fetch.Table.Dates[0]
	opt.Allocation = alloc
	return opt, nil
}

// holdingSpan returns the earliest entry date of holdings and their distinct
// tickers in first-seen order.
func holdingSpan(holdings []model.Holding) (time.Time, []string) {
	start := holdings[0].EntryDate
	tickers := make([]string, 0, len(holdings))
	for _, h := range holdings {
		if h.EntryDate.Before(start) {
			start = h.EntryDate
		}
		if !slices.Contains(tickers, h.Ticker) {
			tickers = append(tickers, h.Ticker)
		}
	}
	return start, tickers
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// ExportSummary renders the performance of a portfolio as an xlsx workbook and
// returns it with a download file name. A portfolio without figures yields a
// workbook holding only headers.
func (s *PerformanceService) ExportSummary(ctx context.Context, userID, portfolioID string) ([]byte, string, error) {
	perf, err := s.GetPerformance(ctx, userID, portfolioID, nil)
	if err != nil {
		return nil, "", err
	}

	data, err := report.HoldingsWorkbook(report.Workbook{
		Portfolio:  perf.Portfolio,
		Summary:    perf.Summary,
		Totals:     perf.Totals,
		NAV:        perf.NAV,
		Benchmarks: perf.Benchmarks,
	})
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", apperrors.ErrFailedToExportSummary, err)
	}

	name := strings.Trim(unsafeFilename.ReplaceAllString(perf.Portfolio.Name, "_"), "_")
	if name == "" {
		name = "portfolio"
	}
	return data, fmt.Sprintf("%s_%s.xlsx", name, time.Now().UTC().Format("2006-01-02")), nil
}

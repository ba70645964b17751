package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ndewijer/Portfolio-NAV-Backend/internal/model"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/nav"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/repository"
)

// FetchStatus is the outcome of a price fetch.
type FetchStatus string

const (
	// FetchOK means at least one row of prices was loaded.
	FetchOK FetchStatus = "ok"
	// FetchEmpty means the query succeeded but no prices exist on or after the start date.
	FetchEmpty FetchStatus = "empty"
	// FetchFailed means the price store could not be read; Err holds the cause.
	FetchFailed FetchStatus = "failed"
)

// SkippedTicker is a requested ticker left out of a result, with the reason.
type SkippedTicker struct {
	Ticker string `json:"ticker"`
	Reason string `json:"reason"`
}

// PriceFetch is the typed result of FetchHistoricalPrices. Table is aligned
// and trimmed to the start date; it only has columns for tickers that loaded.
type PriceFetch struct {
	Status  FetchStatus
	Table   nav.PriceTable
	Skipped []SkippedTicker
	Err     error
}

// BenchmarkResult holds rebased benchmark series, each starting at nav.BaseValue.
type BenchmarkResult struct {
	Status  FetchStatus
	Series  nav.PriceTable
	Skipped []SkippedTicker
}

// PriceService loads stored daily price histories.
type PriceService struct {
	stockRepo *repository.StockRepository
	timeout   time.Duration
	logger    *zap.Logger
}

// NewPriceService creates a PriceService. timeout bounds every read of the
// price store.
func NewPriceService(stockRepo *repository.StockRepository, timeout time.Duration, logger *zap.Logger) *PriceService {
	return &PriceService{
		stockRepo: stockRepo,
		timeout:   timeout,
		logger:    logger,
	}
}

// FetchHistoricalPrices loads the stored histories of tickers and aligns them
// into one table starting at start.
//
// The read runs under the service timeout. A ticker with no stored stock or
// with a blob that cannot be decoded is skipped and reported; it never fails
// the other tickers. Duplicate and blank tickers are ignored.
//
// Returns:
//   - FetchOK with the aligned table when any row remains after trimming
//   - FetchEmpty when nothing was requested or no price exists on or after start
//   - FetchFailed when the store could not be read
func (s *PriceService) FetchHistoricalPrices(ctx context.Context, tickers []string, start time.Time) PriceFetch {
	requested := normalizeTickers(tickers)
	if len(requested) == 0 {
		return PriceFetch{Status: FetchEmpty}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	blobs, err := s.stockRepo.GetPriceBlobs(ctx, requested)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("price query exceeded %s: %w", s.timeout, err)
		}
		s.logger.Error("failed to load price blobs", zap.Strings("tickers", requested), zap.Error(err))
		return PriceFetch{Status: FetchFailed, Err: err}
	}

	var series []nav.Series
	var skipped []SkippedTicker
	for _, ticker := range requested {
		blob, ok := blobs[ticker]
		if !ok {
			skipped = append(skipped, SkippedTicker{Ticker: ticker, Reason: "no stored prices"})
			continue
		}
		ser, err := repository.DecodePriceBlob(ticker, blob)
		if err != nil {
			s.logger.Warn("skipping malformed price blob", zap.String("ticker", ticker), zap.Error(err))
			skipped = append(skipped, SkippedTicker{Ticker: ticker, Reason: err.Error()})
			continue
		}
		series = append(series, ser)
	}

	table := nav.Align(series, nav.Day(start))
	if table.Empty() {
		return PriceFetch{Status: FetchEmpty, Table: table, Skipped: skipped}
	}
	return PriceFetch{Status: FetchOK, Table: table, Skipped: skipped}
}

// ComputeBenchmarkNav loads benchmark histories from start and rebases each to
// nav.BaseValue. A benchmark whose first value in the window is zero (it had
// not started trading by start) is skipped and reported.
func (s *PriceService) ComputeBenchmarkNav(ctx context.Context, tickers []string, start time.Time) (BenchmarkResult, error) {
	fetch := s.FetchHistoricalPrices(ctx, tickers, start)
	switch fetch.Status {
	case FetchFailed:
		return BenchmarkResult{}, fetch.Err
	case FetchEmpty:
		return BenchmarkResult{Status: FetchEmpty, Skipped: fetch.Skipped}, nil
	}

	skipped := fetch.Skipped
	var usable []string
	for _, ticker := range fetch.Table.Tickers {
		if fetch.Table.Closes[ticker][0] == 0 {
			skipped = append(skipped, SkippedTicker{Ticker: ticker, Reason: "no price on or before the start date"})
			continue
		}
		usable = append(usable, ticker)
	}
	if len(usable) == 0 {
		return BenchmarkResult{Status: FetchEmpty, Skipped: skipped}, nil
	}

	rebased, err := nav.RebaseBenchmarks(fetch.Table.Select(usable...))
	if err != nil {
		return BenchmarkResult{}, err
	}
	return BenchmarkResult{Status: FetchOK, Series: rebased, Skipped: skipped}, nil
}

// ListStocks returns every stored stock with the extent of its history.
// A stock whose blob cannot be decoded is listed with Malformed set.
func (s *PriceService) ListStocks(ctx context.Context) ([]model.StockListing, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	stocks, err := s.stockRepo.GetStocks(ctx)
	if err != nil {
		return nil, err
	}

	listings := make([]model.StockListing, 0, len(stocks))
	for _, st := range stocks {
		l := model.StockListing{Ticker: st.Ticker, Company: st.Company}
		ser, err := repository.DecodePriceBlob(st.Ticker, st.Prices)
		if err != nil {
			l.Malformed = true
			listings = append(listings, l)
			continue
		}
		ser, _ = repository.MergePoints(ser)
		if n := len(ser.Points); n > 0 {
			first, last := ser.Points[0].Date, ser.Points[n-1].Date
			lastClose := ser.Points[n-1].Close
			l.FirstDate, l.LastDate, l.LastClose = &first, &last, &lastClose
			l.PriceCount = n
		}
		listings = append(listings, l)
	}
	return listings, nil
}

// normalizeTickers upper-cases, trims and de-duplicates tickers, keeping the
// first occurrence order.
func normalizeTickers(tickers []string) []string {
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" || slices.Contains(out, t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ndewijer/Portfolio-NAV-Backend/internal/api/request"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/model"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/nav"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/repository"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/yahoo"
)

// QuoteSource returns the closing quotes of the current session.
type QuoteSource interface {
	FetchQuotes(ctx context.Context) ([]model.Quote, error)
}

// IngestionService appends prices to the stored histories: one day of quotes
// at a time from the exchange, or whole ranges from Yahoo Finance.
//
// Every read-merge-write of a price blob holds writeMu so two writers never
// lose each other's points.
type IngestionService struct {
	stockRepo   *repository.StockRepository
	yahooClient yahoo.Client
	quotes      QuoteSource
	loc         *time.Location
	concurrency int
	logger      *zap.Logger

	now     func() time.Time
	writeMu sync.Mutex
}

// NewIngestionService creates an IngestionService. loc is the exchange's time
// zone, used to decide the session date of a scrape. concurrency bounds the
// number of Yahoo requests in flight during a backfill.
func NewIngestionService(
	stockRepo *repository.StockRepository,
	yahooClient yahoo.Client,
	quotes QuoteSource,
	loc *time.Location,
	concurrency int,
	logger *zap.Logger,
) *IngestionService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &IngestionService{
		stockRepo:   stockRepo,
		yahooClient: yahooClient,
		quotes:      quotes,
		loc:         loc,
		concurrency: concurrency,
		logger:      logger,
		now:         time.Now,
	}
}

// SetClock replaces the clock used to pick the scrape date.
func (s *IngestionService) SetClock(now func() time.Time) {
	s.now = now
}

// CreateStock registers a stock with an optional initial history.
// Returns apperrors.ErrDuplicateEntry when the ticker already exists.
func (s *IngestionService) CreateStock(ctx context.Context, req request.CreateStockRequest) (*model.Stock, error) {
	ticker := strings.ToUpper(strings.TrimSpace(req.Ticker))

	_, err := s.stockRepo.GetStock(ctx, ticker)
	if err == nil {
		return nil, fmt.Errorf("%w: stock %s", apperrors.ErrDuplicateEntry, ticker)
	}
	if !errors.Is(err, apperrors.ErrStockNotFound) {
		return nil, err
	}

	series := nav.Series{Ticker: ticker}
	for _, p := range req.Prices {
		date, err := time.Parse("2006-01-02", strings.TrimSpace(p.Date))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidDate, err)
		}
		series.Points = append(series.Points, nav.PricePoint{Date: date, Close: p.Close})
	}
	blob, err := repository.EncodePriceBlob(series)
	if err != nil {
		return nil, err
	}

	stock := &model.Stock{
		Ticker:    ticker,
		Company:   strings.TrimSpace(req.Company),
		UpdatedAt: time.Now().UTC().Truncate(time.Second),
		Prices:    blob,
	}
	if err := s.stockRepo.UpsertStock(ctx, *stock); err != nil {
		return nil, fmt.Errorf("failed to create stock: %w", err)
	}

	s.logger.Info("stock created", zap.String("ticker", ticker), zap.Int("prices", len(req.Prices)))
	return stock, nil
}

// ImportQuotes merges one day of closing quotes into the stored histories in a
// single transaction. Quotes are matched to stocks on company name. A company
// with no stock is reported in Unmatched; a stock whose blob cannot be updated
// is reported in Errors. Neither aborts the import.
func (s *IngestionService) ImportQuotes(ctx context.Context, date time.Time, quotes []model.Quote) (model.QuoteImportResponse, error) {
	date = nav.Day(date)
	resp := model.QuoteImportResponse{
		Date:      date,
		Updated:   []string{},
		Unmatched: []string{},
		Errors:    []model.UpdatedStockError{},
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.stockRepo.BeginTx(ctx)
	if err != nil {
		return resp, fmt.Errorf("%w: %w", apperrors.ErrFailedToImportQuotes, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	repo := s.stockRepo.WithTx(tx)

	for _, q := range quotes {
		company := strings.TrimSpace(q.Company)
		stock, err := repo.GetStockByCompany(ctx, company)
		if errors.Is(err, apperrors.ErrStockNotFound) {
			resp.Unmatched = append(resp.Unmatched, company)
			continue
		}
		if err != nil {
			return resp, fmt.Errorf("%w: %w", apperrors.ErrFailedToImportQuotes, err)
		}

		if _, err := mergeIntoStock(ctx, repo, stock, []nav.PricePoint{{Date: date, Close: q.Price}}); err != nil {
			s.logger.Warn("failed to merge quote",
				zap.String("ticker", stock.Ticker),
				zap.String("company", company),
				zap.Error(err))
			resp.Errors = append(resp.Errors, model.UpdatedStockError{Ticker: stock.Ticker, Error: err.Error()})
			continue
		}
		resp.Updated = append(resp.Updated, stock.Ticker)
	}

	if err := tx.Commit(); err != nil {
		return resp, fmt.Errorf("%w: %w", apperrors.ErrFailedToImportQuotes, err)
	}

	s.logger.Info("quotes imported",
		zap.Time("date", date),
		zap.Int("updated", len(resp.Updated)),
		zap.Int("unmatched", len(resp.Unmatched)),
		zap.Int("errors", len(resp.Errors)))
	return resp, nil
}

// RunDailyScrape fetches the session's closing quotes from the exchange and
// imports them under today's date in the exchange time zone. On Saturdays and
// Sundays nothing is fetched and the returned response is empty.
func (s *IngestionService) RunDailyScrape(ctx context.Context) (model.QuoteImportResponse, error) {
	now := s.now().In(s.loc)
	date := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	if wd := now.Weekday(); wd == time.Saturday || wd == time.Sunday {
		s.logger.Info("market closed, skipping scrape", zap.String("weekday", wd.String()))
		return model.QuoteImportResponse{
			Date:      date,
			Updated:   []string{},
			Unmatched: []string{},
			Errors:    []model.UpdatedStockError{},
		}, nil
	}

	quotes, err := s.quotes.FetchQuotes(ctx)
	if err != nil {
		return model.QuoteImportResponse{}, fmt.Errorf("%w: %w", apperrors.ErrFailedToScrapeMarket, err)
	}
	return s.ImportQuotes(ctx, date, quotes)
}

// Backfill loads daily closes between start and end from Yahoo Finance and
// merges them into the stored histories. An empty tickers backfills every
// stored stock. symbols maps a ticker to its Yahoo symbol when they differ.
//
// Up to the configured concurrency of Yahoo requests run at once. A stock
// that fails is reported in the response and does not stop the others; only
// cancellation of ctx or a failure to list stocks is returned as an error.
func (s *IngestionService) Backfill(ctx context.Context, tickers []string, symbols map[string]string, start, end time.Time) (model.BackfillResponse, error) {
	stocks, err := s.backfillTargets(ctx, tickers)
	if err != nil {
		return model.BackfillResponse{}, fmt.Errorf("%w: %w", apperrors.ErrFailedToBackfill, err)
	}

	resp := model.BackfillResponse{
		UpdatedStocks: []model.UpdatedStock{},
		Errors:        []model.UpdatedStockError{},
	}
	var mu sync.Mutex
	var failures []error

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for _, stock := range stocks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			added, err := s.backfillStock(ctx, stock, symbolFor(stock.Ticker, symbols), start, end)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, fmt.Errorf("%s: %w", stock.Ticker, err))
				resp.Errors = append(resp.Errors, model.UpdatedStockError{Ticker: stock.Ticker, Error: err.Error()})
				return nil
			}
			resp.UpdatedStocks = append(resp.UpdatedStocks, model.UpdatedStock{
				Ticker:      stock.Ticker,
				Company:     stock.Company,
				PricesAdded: added,
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.BackfillResponse{}, fmt.Errorf("%w: %w", apperrors.ErrFailedToBackfill, err)
	}

	slices.SortFunc(resp.UpdatedStocks, func(a, b model.UpdatedStock) int { return strings.Compare(a.Ticker, b.Ticker) })
	slices.SortFunc(resp.Errors, func(a, b model.UpdatedStockError) int { return strings.Compare(a.Ticker, b.Ticker) })
	resp.TotalUpdated = len(resp.UpdatedStocks)
	resp.TotalErrors = len(resp.Errors)
	resp.Success = resp.TotalUpdated > 0

	if joined := errors.Join(failures...); joined != nil {
		s.logger.Warn("backfill finished with errors",
			zap.Int("updated", resp.TotalUpdated),
			zap.Int("failed", resp.TotalErrors),
			zap.Error(joined))
	} else {
		s.logger.Info("backfill finished", zap.Int("updated", resp.TotalUpdated))
	}
	return resp, nil
}

func (s *IngestionService) backfillTargets(ctx context.Context, tickers []string) ([]model.Stock, error) {
	if len(tickers) == 0 {
		return s.stockRepo.GetStocks(ctx)
	}
	stocks := make([]model.Stock, 0, len(tickers))
	for _, t := range normalizeTickers(tickers) {
		stock, err := s.stockRepo.GetStock(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", t, err)
		}
		stocks = append(stocks, stock)
	}
	return stocks, nil
}

func (s *IngestionService) backfillStock(ctx context.Context, stock model.Stock, symbol string, start, end time.Time) (int, error) {
	raw, err := s.yahooClient.QueryYahooSymbolByDateRange(ctx, symbol, start, end)
	if err != nil {
		return 0, err
	}
	chart, err := s.yahooClient.ParseChart(raw)
	if err != nil {
		return 0, err
	}

	points := make([]nav.PricePoint, 0, len(chart.Indicators))
	for _, ind := range chart.Indicators {
		if ind.Date.Before(nav.Day(start)) || ind.Date.After(nav.Day(end)) {
			continue
		}
		points = append(points, nav.PricePoint{Date: ind.Date, Close: ind.PriceClose})
	}
	if len(points) == 0 {
		return 0, nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	// reload under the lock: a quote import may have written since the list
	current, err := s.stockRepo.GetStock(ctx, stock.Ticker)
	if err != nil {
		return 0, err
	}
	return mergeIntoStock(ctx, s.stockRepo, current, points)
}

// mergeIntoStock decodes the blob of stock, merges points into it and writes
// it back. It returns the number of days that were not stored before.
func mergeIntoStock(ctx context.Context, repo *repository.StockRepository, stock model.Stock, points []nav.PricePoint) (int, error) {
	series, err := repository.DecodePriceBlob(stock.Ticker, stock.Prices)
	if err != nil {
		return 0, err
	}
	merged, added := repository.MergePoints(series, points...)
	blob, err := repository.EncodePriceBlob(merged)
	if err != nil {
		return 0, err
	}
	if err := repo.UpdatePrices(ctx, stock.Ticker, blob); err != nil {
		return 0, err
	}
	return added, nil
}

func symbolFor(ticker string, symbols map[string]string) string {
	for k, v := range symbols {
		if strings.EqualFold(k, ticker) && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ticker
}

package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Portfolio-NAV-Backend/internal/api/request"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/model"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/nav"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/testutil"
)

func closes(s nav.Series) []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Close
	}
	return out
}

func TestIngestionService_CreateStock(t *testing.T) {
	ctx := context.Background()

	t.Run("stores the initial history", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestIngestionService(t, db, testutil.NewMockYahooClient(), &testutil.MockQuoteSource{})

		stock, err := svc.CreateStock(ctx, request.CreateStockRequest{
			Ticker:  "iam",
			Company: "Itissalat Al-Maghrib",
			Prices: []request.PriceInput{
				{Date: "2024-08-13", Close: 101},
				{Date: "2024-08-12", Close: 100},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "IAM", stock.Ticker)

		series := testutil.StoredSeries(t, db, "IAM")
		assert.Equal(t, []float64{100, 101}, closes(series))
		assert.True(t, series.Points[0].Date.Equal(monday))
	})

	t.Run("duplicate ticker", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestIngestionService(t, db, testutil.NewMockYahooClient(), &testutil.MockQuoteSource{})
		testutil.NewStock("IAM").Build(t, db)

		_, err := svc.CreateStock(ctx, request.CreateStockRequest{Ticker: "IAM", Company: "Other"})
		assert.ErrorIs(t, err, apperrors.ErrDuplicateEntry)
	})
}

// TestIngestionService_ImportQuotes tests merging one day of quotes by company name.
//
// WHY: The exchange page only names companies. A quote for an unknown company
// or a stock with a corrupt blob must be reported without losing the quotes
// that did match, and re-importing a day must replace the close, not add a row.
func TestIngestionService_ImportQuotes(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestIngestionService(t, db, testutil.NewMockYahooClient(), &testutil.MockQuoteSource{})

	testutil.NewStock("IAM").WithCompany("Maroc Telecom").WithCloses(monday, 100, 101).Build(t, db)
	testutil.NewStock("ATW").WithCompany("Attijariwafa Bank").WithCloses(monday, 500).Build(t, db)
	testutil.NewStock("BAD").WithCompany("Broken").WithRawBlob(`{"schema":{"fields":[]},"data":[]}`).Build(t, db)

	day := monday.AddDate(0, 0, 2)
	resp, err := svc.ImportQuotes(ctx, day, []model.Quote{
		{Company: "Maroc Telecom", Price: 102},
		{Company: " Attijariwafa Bank ", Price: 510},
		{Company: "Unknown SA", Price: 1},
		{Company: "Broken", Price: 7},
	})
	require.NoError(t, err)

	assert.True(t, resp.Date.Equal(day))
	assert.Equal(t, []string{"IAM", "ATW"}, resp.Updated)
	assert.Equal(t, []string{"Unknown SA"}, resp.Unmatched)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "BAD", resp.Errors[0].Ticker)

	assert.Equal(t, []float64{100, 101, 102}, closes(testutil.StoredSeries(t, db, "IAM")))
	assert.Equal(t, []float64{500, 510}, closes(testutil.StoredSeries(t, db, "ATW")))

	t.Run("re-import replaces the close", func(t *testing.T) {
		_, err := svc.ImportQuotes(ctx, day, []model.Quote{{Company: "Maroc Telecom", Price: 103}})
		require.NoError(t, err)

		assert.Equal(t, []float64{100, 101, 103}, closes(testutil.StoredSeries(t, db, "IAM")))
	})
}

func TestIngestionService_RunDailyScrape(t *testing.T) {
	ctx := context.Background()

	t.Run("weekday imports under the exchange date", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		quotes := &testutil.MockQuoteSource{Quotes: []model.Quote{{Company: "Maroc Telecom", Price: 99}}}
		svc := testutil.NewTestIngestionService(t, db, testutil.NewMockYahooClient(), quotes)
		testutil.NewStock("IAM").WithCompany("Maroc Telecom").Build(t, db)

		// Monday 23:30 UTC is already Tuesday in Casablanca (UTC+1)
		svc.SetClock(func() time.Time { return monday.Add(23*time.Hour + 30*time.Minute) })

		resp, err := svc.RunDailyScrape(ctx)
		require.NoError(t, err)

		assert.Equal(t, 1, quotes.Calls)
		assert.True(t, resp.Date.Equal(monday.AddDate(0, 0, 1)), "date %s", resp.Date)
		assert.Equal(t, []string{"IAM"}, resp.Updated)
	})

	t.Run("weekend is skipped", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		quotes := &testutil.MockQuoteSource{}
		svc := testutil.NewTestIngestionService(t, db, testutil.NewMockYahooClient(), quotes)

		// Friday 23:30 UTC is Saturday in Casablanca
		friday := monday.AddDate(0, 0, 4)
		svc.SetClock(func() time.Time { return friday.Add(23*time.Hour + 30*time.Minute) })

		resp, err := svc.RunDailyScrape(ctx)
		require.NoError(t, err)

		assert.Zero(t, quotes.Calls)
		assert.Empty(t, resp.Updated)
	})

	t.Run("scrape failure", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		quotes := &testutil.MockQuoteSource{Err: errors.New("connection reset")}
		svc := testutil.NewTestIngestionService(t, db, testutil.NewMockYahooClient(), quotes)
		svc.SetClock(func() time.Time { return monday.Add(12 * time.Hour) })

		_, err := svc.RunDailyScrape(ctx)
		assert.ErrorIs(t, err, apperrors.ErrFailedToScrapeMarket)
	})
}

// TestIngestionService_Backfill tests loading history from Yahoo Finance.
//
// WHY: A backfill runs over many stocks concurrently. One failing symbol must
// not stop the others, and closes must merge into the history already stored.
func TestIngestionService_Backfill(t *testing.T) {
	ctx := context.Background()
	end := monday.AddDate(0, 0, 4)

	t.Run("merges and reports per stock", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		yc := testutil.NewMockYahooClient().
			WithSymbolResponse("IAM.CS", testutil.CreateMockYahooResponseFrom(monday, 100, 101, 102)).
			WithSymbolResponse("ATW", testutil.CreateMockYahooResponseFrom(monday.AddDate(0, 0, 1), 500)).
			WithSymbolError("CIH", errors.New("symbol delisted"))
		svc := testutil.NewTestIngestionService(t, db, yc, &testutil.MockQuoteSource{})

		testutil.NewStock("IAM").WithPoint(monday.AddDate(0, 0, 2), 90).Build(t, db)
		testutil.NewStock("ATW").Build(t, db)
		testutil.NewStock("CIH").Build(t, db)

		resp, err := svc.Backfill(ctx, nil, map[string]string{"iam": "IAM.CS"}, monday, end)
		require.NoError(t, err)

		assert.True(t, resp.Success)
		assert.Equal(t, 2, resp.TotalUpdated)
		assert.Equal(t, 1, resp.TotalErrors)
		assert.Equal(t, "ATW", resp.UpdatedStocks[0].Ticker)
		assert.Equal(t, 1, resp.UpdatedStocks[0].PricesAdded)
		assert.Equal(t, "IAM", resp.UpdatedStocks[1].Ticker)
		assert.Equal(t, 2, resp.UpdatedStocks[1].PricesAdded)
		assert.Equal(t, "CIH", resp.Errors[0].Ticker)
		assert.Contains(t, resp.Errors[0].Error, "symbol delisted")

		assert.Equal(t, []float64{100, 101, 102}, closes(testutil.StoredSeries(t, db, "IAM")))
		assert.ElementsMatch(t, []string{"IAM.CS", "ATW", "CIH"}, yc.Queried)
	})

	t.Run("closes outside the range are ignored", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		yc := testutil.NewMockYahooClient().
			WithSymbolResponse("IAM", testutil.CreateMockYahooResponseFrom(monday.AddDate(0, 0, -1), 99, 100, 101))
		svc := testutil.NewTestIngestionService(t, db, yc, &testutil.MockQuoteSource{})
		testutil.NewStock("IAM").Build(t, db)

		resp, err := svc.Backfill(ctx, []string{"IAM"}, nil, monday, monday)
		require.NoError(t, err)

		assert.Equal(t, 1, resp.UpdatedStocks[0].PricesAdded)
		assert.Equal(t, []float64{100}, closes(testutil.StoredSeries(t, db, "IAM")))
	})

	t.Run("unknown ticker", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestIngestionService(t, db, testutil.NewMockYahooClient(), &testutil.MockQuoteSource{})

		_, err := svc.Backfill(ctx, []string{"NOPE"}, nil, monday, end)
		assert.ErrorIs(t, err, apperrors.ErrStockNotFound)
		assert.ErrorIs(t, err, apperrors.ErrFailedToBackfill)
	})

	t.Run("cancelled context", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestIngestionService(t, db, testutil.NewMockYahooClient(), &testutil.MockQuoteSource{})
		testutil.NewStock("IAM").Build(t, db)

		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := svc.Backfill(cctx, nil, nil, monday, end)
		assert.Error(t, err)
	})
}

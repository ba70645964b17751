package yahoo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultBaseURL is the Yahoo Finance chart API host.
const DefaultBaseURL = "https://query1.finance.yahoo.com"

// ErrNoResults is returned when Yahoo answers without any result for a symbol.
var ErrNoResults = errors.New("no results returned")

// Client is the subset of the Yahoo Finance API used by the services.
type Client interface {
	QueryYahooFiveDaySymbol(ctx context.Context, symbol string) (Response, error)
	QueryYahooSymbolByDateRange(ctx context.Context, symbol string, startDate, endDate time.Time) (Response, error)
	ParseChart(yahooResult Response) (PriceChart, error)
}

// FinanceClient provides methods for fetching daily price history from the
// Yahoo Finance chart API.
type FinanceClient struct {
	http *resty.Client
}

// NewFinanceClient creates a Yahoo Finance client for baseURL. The timeout
// applies to each request.
func NewFinanceClient(baseURL string, timeout time.Duration) *FinanceClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &FinanceClient{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36").
			SetHeader("Accept", "application/json"),
	}
}

// ParseChart converts a raw Yahoo Finance API response into a structured price chart.
//
// The method performs validation to ensure:
//   - A result is present
//   - Timestamp data is present
//   - Close price data is present and as long as the timestamps
//
// Days whose close is null are dropped. Other null fields are read as zero.
func (c *FinanceClient) ParseChart(yahooResult Response) (PriceChart, error) {
	if len(yahooResult.Chart.Result) == 0 {
		return PriceChart{}, ErrNoResults
	}
	result := yahooResult.Chart.Result[0]

	if len(result.Timestamp) == 0 {
		return PriceChart{}, fmt.Errorf("no price data returned")
	}
	if len(result.Indicators.Quote) == 0 || len(result.Indicators.Quote[0].Close) == 0 {
		return PriceChart{}, fmt.Errorf("no close prices returned")
	}

	quote := result.Indicators.Quote[0]
	if len(quote.Close) != len(result.Timestamp) {
		return PriceChart{}, fmt.Errorf("mismatched data lengths")
	}

	indicators := make([]Indicators, 0, len(result.Timestamp))
	for i, v := range result.Timestamp {
		if quote.Close[i] == nil {
			continue
		}
		t := time.Unix(v, 0).UTC()
		indicators = append(indicators, Indicators{
			Date:       time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
			PriceClose: *quote.Close[i],
			PriceOpen:  valueAt(quote.Open, i),
			PriceHigh:  valueAt(quote.High, i),
			PriceLow:   valueAt(quote.Low, i),
			Volume:     valueAt(quote.Volume, i),
		})
	}

	return PriceChart{
		Symbol:           result.Meta.Symbol,
		Currency:         result.Meta.Currency,
		ExchangeName:     result.Meta.ExchangeName,
		FullExchangeName: result.Meta.FullExchangeName,
		LongName:         result.Meta.LongName,
		Shortname:        result.Meta.Shortname,
		Indicators:       indicators,
	}, nil
}

func valueAt[T float64 | int64](values []*T, i int) T {
	if i < len(values) && values[i] != nil {
		return *values[i]
	}
	var zero T
	return zero
}

// GetIndicatorForDate searches for price data matching a specific date.
// Only the calendar day in UTC is compared.
func (c PriceChart) GetIndicatorForDate(target time.Time) (Indicators, bool) {
	targetDay := target.UTC().Truncate(24 * time.Hour)
	for _, ind := range c.Indicators {
		if ind.Date.UTC().Truncate(24 * time.Hour).Equal(targetDay) {
			return ind, true
		}
	}
	return Indicators{}, false
}

// QueryYahooFiveDaySymbol fetches the last 5 trading days of daily price data for a symbol.
func (c *FinanceClient) QueryYahooFiveDaySymbol(ctx context.Context, symbol string) (Response, error) {
	return c.queryYahoo(ctx, symbol, map[string]string{
		"interval": "1d",
		"range":    "5d",
	})
}

// QueryYahooSymbolByDateRange fetches daily price data for a symbol between
// startDate and endDate, both inclusive.
func (c *FinanceClient) QueryYahooSymbolByDateRange(ctx context.Context, symbol string, startDate, endDate time.Time) (Response, error) {
	return c.queryYahoo(ctx, symbol, map[string]string{
		"interval": "1d",
		"period1":  strconv.FormatInt(startDate.Unix(), 10),
		"period2":  strconv.FormatInt(endDate.AddDate(0, 0, 1).Unix(), 10),
	})
}

// queryYahoo executes one chart request and checks the response for API errors.
// Yahoo reports unknown symbols with a 404 and an error object in the body, so
// the body is decoded regardless of status.
func (c *FinanceClient) queryYahoo(ctx context.Context, symbol string, params map[string]string) (Response, error) {
	var response Response

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("symbol", symbol).
		SetQueryParams(params).
		SetResult(&response).
		SetError(&response).
		Get("/v8/finance/chart/{symbol}")
	if err != nil {
		return Response{}, fmt.Errorf("yahoo request for %s failed: %w", symbol, err)
	}

	if response.Chart.Error != nil {
		return response, fmt.Errorf("yahoo error for %s: %w", symbol, response.Chart.Error)
	}
	if resp.IsError() {
		return Response{}, fmt.Errorf("yahoo request for %s failed: %s", symbol, resp.Status())
	}
	if len(response.Chart.Result) == 0 {
		return Response{}, fmt.Errorf("%w for symbol %s", ErrNoResults, symbol)
	}

	return response, nil
}

package testutil

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/ndewijer/Portfolio-NAV-Backend/internal/model"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/yahoo"
)

// MockYahooClient is a mock implementation of yahoo.Client for testing.
// It returns predefined test data instead of making actual API calls and is
// safe for concurrent use.
type MockYahooClient struct {
	mu sync.Mutex

	// MockResponse is the response returned for symbols without an entry in Responses
	MockResponse yahoo.Response
	// MockError is the error returned for symbols without an entry in Errors
	MockError error
	// Responses and Errors override the defaults per symbol
	Responses map[string]yahoo.Response
	Errors    map[string]error
	// Queried records every symbol asked for, in call order
	Queried []string
}

// NewMockYahooClient creates a new mock Yahoo client with default test data.
// The default data includes 5 days of historical prices suitable for testing.
func NewMockYahooClient() *MockYahooClient {
	return &MockYahooClient{
		MockResponse: CreateMockYahooResponse(5),
		Responses:    map[string]yahoo.Response{},
		Errors:       map[string]error{},
	}
}

func (m *MockYahooClient) query(symbol string) (yahoo.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Queried = append(m.Queried, symbol)
	if err, ok := m.Errors[symbol]; ok {
		return yahoo.Response{}, err
	}
	if resp, ok := m.Responses[symbol]; ok {
		return resp, nil
	}
	if m.MockError != nil {
		return yahoo.Response{}, m.MockError
	}
	return m.MockResponse, nil
}

// QueryYahooFiveDaySymbol mocks the 5-day symbol query with predefined test data.
func (m *MockYahooClient) QueryYahooFiveDaySymbol(_ context.Context, symbol string) (yahoo.Response, error) {
	return m.query(symbol)
}

// QueryYahooSymbolByDateRange mocks the date range query with predefined test data.
func (m *MockYahooClient) QueryYahooSymbolByDateRange(_ context.Context, symbol string, _, _ time.Time) (yahoo.Response, error) {
	return m.query(symbol)
}

// ParseChart delegates to the real ParseChart method since it's pure logic with no side effects.
func (m *MockYahooClient) ParseChart(yahooResult yahoo.Response) (yahoo.PriceChart, error) {
	client := yahoo.NewFinanceClient("", time.Second)
	return client.ParseChart(yahooResult)
}

// QueryCount returns how many queries were made.
func (m *MockYahooClient) QueryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Queried)
}

// WithError configures the mock to return the specified error.
func (m *MockYahooClient) WithError(err error) *MockYahooClient {
	m.MockError = err
	return m
}

// WithResponse configures the mock to return the specified response.
func (m *MockYahooClient) WithResponse(resp yahoo.Response) *MockYahooClient {
	m.MockResponse = resp
	return m
}

// WithSymbolResponse configures the response for one symbol.
func (m *MockYahooClient) WithSymbolResponse(symbol string, resp yahoo.Response) *MockYahooClient {
	m.Responses[symbol] = resp
	return m
}

// WithSymbolError configures the error for one symbol.
func (m *MockYahooClient) WithSymbolError(symbol string, err error) *MockYahooClient {
	m.Errors[symbol] = err
	return m
}

// CreateMockYahooResponse creates a mock Yahoo Finance API response with test data.
// The response includes `days` number of days of price data, ending yesterday.
func CreateMockYahooResponse(days int) yahoo.Response {
	now := time.Now().UTC()
	yesterday := time.Date(now.Year(), now.Month(), now.Day()-1, 0, 0, 0, 0, time.UTC)

	closes := make([]float64, days)
	for i := range closes {
		closes[i] = 100 + float64(i)*0.5 + 0.25
	}
	return CreateMockYahooResponseFrom(yesterday.AddDate(0, 0, -days+1), closes...)
}

// CreateMockYahooResponseFrom creates a mock response with one close per
// consecutive day starting at start. A NaN close is sent as null.
func CreateMockYahooResponseFrom(start time.Time, closes ...float64) yahoo.Response {
	days := len(closes)
	timestamps := make([]int64, days)
	opens := make([]*float64, days)
	closePtrs := make([]*float64, days)
	volumes := make([]*int64, days)

	for i, c := range closes {
		// 09:30 in the exchange's session, as Yahoo stamps daily bars
		timestamps[i] = start.AddDate(0, 0, i).Add(9*time.Hour + 30*time.Minute).Unix()
		if !math.IsNaN(c) {
			price := c
			opens[i] = &price
			closePtrs[i] = &price
		}
		volume := int64(1000000 + i*10000)
		volumes[i] = &volume
	}

	return yahoo.Response{
		Chart: yahoo.Chart{
			Result: []yahoo.Result{
				{
					Meta: yahoo.Meta{
						Symbol:   "TEST",
						Currency: "MAD",
					},
					Timestamp: timestamps,
					Indicators: yahoo.IndicatorsContainer{
						Quote: []yahoo.Quote{
							{
								Open:   opens,
								High:   opens,
								Low:    opens,
								Close:  closePtrs,
								Volume: volumes,
							},
						},
					},
				},
			},
		},
	}
}

// MockQuoteSource returns fixed quotes in place of the exchange scraper.
type MockQuoteSource struct {
	Quotes []model.Quote
	Err    error
	Calls  int
}

// FetchQuotes returns the configured quotes or error.
func (m *MockQuoteSource) FetchQuotes(_ context.Context) ([]model.Quote, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Quotes, nil
}

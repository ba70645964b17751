package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/ndewijer/Portfolio-NAV-Backend/internal/model"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/nav"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/repository"
)

// PortfolioBuilder provides a fluent interface for creating test portfolios.
//
// Example usage:
//
//	// Simple creation with defaults
//	portfolio := testutil.NewPortfolio().Build(t, db)
//
//	// Customized portfolio
//	portfolio := testutil.NewPortfolio().
//	    WithUserID(userID).
//	    WithCurrency("EUR").
//	    Build(t, db)
type PortfolioBuilder struct {
	ID        string
	UserID    string
	Name      string
	Currency  string
	CreatedAt time.Time
}

// NewPortfolio creates a PortfolioBuilder with sensible defaults.
func NewPortfolio() *PortfolioBuilder {
	return &PortfolioBuilder{
		ID:        MakeID(),
		UserID:    MakeID(),
		Name:      MakePortfolioName("Test Portfolio"),
		Currency:  "MAD",
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

// WithID sets a custom ID.
func (b *PortfolioBuilder) WithID(id string) *PortfolioBuilder {
	b.ID = id
	return b
}

// WithUserID sets the owning user.
func (b *PortfolioBuilder) WithUserID(userID string) *PortfolioBuilder {
	b.UserID = userID
	return b
}

// WithName sets a custom name.
func (b *PortfolioBuilder) WithName(name string) *PortfolioBuilder {
	b.Name = name
	return b
}

// WithCurrency sets the display currency.
func (b *PortfolioBuilder) WithCurrency(currency string) *PortfolioBuilder {
	b.Currency = currency
	return b
}

// Build inserts the portfolio into the database and returns it.
func (b *PortfolioBuilder) Build(t *testing.T, db *sql.DB) model.Portfolio {
	t.Helper()

	p := model.Portfolio{
		ID:        b.ID,
		UserID:    b.UserID,
		Name:      b.Name,
		Currency:  b.Currency,
		CreatedAt: b.CreatedAt,
	}
	if err := repository.NewPortfolioRepository(db).InsertPortfolio(context.Background(), &p); err != nil {
		t.Fatalf("Failed to create portfolio: %v", err)
	}
	return p
}

// HoldingBuilder provides a fluent interface for creating test holdings.
//
// Example usage:
//
//	holding := testutil.NewHolding(portfolio.ID, "IAM").
//	    WithEntry(date, 110).
//	    WithQuantity(5).
//	    Build(t, db)
type HoldingBuilder struct {
	ID          string
	PortfolioID string
	Ticker      string
	EntryDate   time.Time
	EntryPrice  float64
	Quantity    float64
}

// NewHolding creates a HoldingBuilder for ticker in portfolioID, bought at 100
// one week ago.
func NewHolding(portfolioID, ticker string) *HoldingBuilder {
	return &HoldingBuilder{
		ID:          MakeID(),
		PortfolioID: portfolioID,
		Ticker:      ticker,
		EntryDate:   nav.Day(time.Now()).AddDate(0, 0, -7),
		EntryPrice:  100,
		Quantity:    1,
	}
}

// WithEntry sets the buy date and price.
func (b *HoldingBuilder) WithEntry(date time.Time, price float64) *HoldingBuilder {
	b.EntryDate = nav.Day(date)
	b.EntryPrice = price
	return b
}

// WithQuantity sets the number of shares bought.
func (b *HoldingBuilder) WithQuantity(qty float64) *HoldingBuilder {
	b.Quantity = qty
	return b
}

// Build inserts the holding into the database and returns it.
func (b *HoldingBuilder) Build(t *testing.T, db *sql.DB) model.Holding {
	t.Helper()

	h := model.Holding{
		ID:          b.ID,
		PortfolioID: b.PortfolioID,
		Ticker:      b.Ticker,
		EntryDate:   b.EntryDate,
		EntryPrice:  b.EntryPrice,
		Quantity:    b.Quantity,
	}
	if err := repository.NewHoldingRepository(db).InsertHolding(context.Background(), &h); err != nil {
		t.Fatalf("Failed to create holding: %v", err)
	}
	return h
}

// StockBuilder provides a fluent interface for creating test stocks with a
// stored price history.
//
// Example usage:
//
//	testutil.NewStock("IAM").
//	    WithCloses(start, 100, 101, 99.5).
//	    Build(t, db)
type StockBuilder struct {
	Ticker  string
	Company string
	Points  []nav.PricePoint
	RawBlob []byte
}

// NewStock creates a StockBuilder for ticker with an empty history.
func NewStock(ticker string) *StockBuilder {
	return &StockBuilder{
		Ticker:  ticker,
		Company: MakeCompanyName(ticker),
	}
}

// WithCompany sets the exchange display name.
func (b *StockBuilder) WithCompany(company string) *StockBuilder {
	b.Company = company
	return b
}

// WithCloses appends one close per consecutive day starting at start.
func (b *StockBuilder) WithCloses(start time.Time, closes ...float64) *StockBuilder {
	for i, c := range closes {
		b.Points = append(b.Points, nav.PricePoint{Date: nav.Day(start).AddDate(0, 0, i), Close: c})
	}
	return b
}

// WithPoint appends a single close.
func (b *StockBuilder) WithPoint(date time.Time, price float64) *StockBuilder {
	b.Points = append(b.Points, nav.PricePoint{Date: nav.Day(date), Close: price})
	return b
}

// WithRawBlob stores blob as is instead of encoding the points.
func (b *StockBuilder) WithRawBlob(blob string) *StockBuilder {
	b.RawBlob = []byte(blob)
	return b
}

// Build inserts the stock into the database and returns it.
func (b *StockBuilder) Build(t *testing.T, db *sql.DB) model.Stock {
	t.Helper()

	blob := b.RawBlob
	if blob == nil {
		var err error
		blob, err = repository.EncodePriceBlob(nav.Series{Ticker: b.Ticker, Points: b.Points})
		if err != nil {
			t.Fatalf("Failed to encode prices of %s: %v", b.Ticker, err)
		}
	}

	s := model.Stock{Ticker: b.Ticker, Company: b.Company, Prices: blob}
	if err := repository.NewStockRepository(db).UpsertStock(context.Background(), s); err != nil {
		t.Fatalf("Failed to create stock: %v", err)
	}
	return s
}

// StoredSeries reads back and decodes the stored history of ticker.
func StoredSeries(t *testing.T, db *sql.DB, ticker string) nav.Series {
	t.Helper()

	stock, err := repository.NewStockRepository(db).GetStock(context.Background(), ticker)
	if err != nil {
		t.Fatalf("Failed to load stock %s: %v", ticker, err)
	}
	series, err := repository.DecodePriceBlob(ticker, stock.Prices)
	if err != nil {
		t.Fatalf("Failed to decode prices of %s: %v", ticker, err)
	}
	return series
}

package request

// PriceInput is one daily close in a request body.
type PriceInput struct {
	Date  string  `json:"date"` // Date is in YYYY-MM-DD format.
	Close float64 `json:"close"`
}

// CreateStockRequest is the request body for registering a stock or index.
// Prices is an optional initial history.
type CreateStockRequest struct {
	Ticker  string       `json:"ticker"`
	Company string       `json:"company"`
	Prices  []PriceInput `json:"prices,omitempty"`
}

// QuoteInput is one closing quote identified by company name.
type QuoteInput struct {
	Company string  `json:"company"`
	Price   float64 `json:"price"`
}

// ImportQuotesRequest is the request body for appending one day of closing
// quotes to the stored histories.
type ImportQuotesRequest struct {
	Date   string       `json:"date"` // Date is in YYYY-MM-DD format.
	Quotes []QuoteInput `json:"quotes"`
}

// BackfillRequest is the request body for loading daily history from Yahoo
// Finance. An empty Tickers backfills every stored stock. Symbols maps a
// ticker to its Yahoo symbol when the two differ.
type BackfillRequest struct {
	Tickers   []string          `json:"tickers,omitempty"`
	Symbols   map[string]string `json:"symbols,omitempty"`
	StartDate string            `json:"startDate"`
	EndDate   string            `json:"endDate,omitempty"` // EndDate defaults to today.
}

package model

import "time"

// Quote is one scraped or imported closing price, identified by company name
// as it appears on the exchange's market page.
type Quote struct {
	Company string  `json:"company"`
	Price   float64 `json:"price"`
}

// QuoteImportResponse represents the result of appending one day of quotes to
// the stored price histories. Companies with no matching stock and stocks whose
// blob could not be updated are reported, not fatal.
type QuoteImportResponse struct {
	Date      time.Time           `json:"date"`
	Updated   []string            `json:"updated"`   // Tickers whose history gained or replaced the quote
	Unmatched []string            `json:"unmatched"` // Companies with no stored stock
	Errors    []UpdatedStockError `json:"errors"`
}

// BackfillResponse represents the result of a bulk historical price backfill.
// Success is true if at least one stock was successfully updated.
type BackfillResponse struct {
	Success       bool                `json:"success"`
	UpdatedStocks []UpdatedStock      `json:"updatedStocks"`
	Errors        []UpdatedStockError `json:"errors"`
	TotalUpdated  int                 `json:"totalUpdated"`
	TotalErrors   int                 `json:"totalErrors"`
}

// UpdatedStock represents a successfully updated stock and the number of
// closes merged into its history.
type UpdatedStock struct {
	Ticker      string `json:"ticker"`
	Company     string `json:"company"`
	PricesAdded int    `json:"pricesAdded"`
}

// UpdatedStockError represents a stock that failed to update.
type UpdatedStockError struct {
	Ticker string `json:"ticker"`
	Error  string `json:"error"`
}

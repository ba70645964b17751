package request

// CreatePortfolioRequest is the request body for creating a portfolio.
type CreatePortfolioRequest struct {
	Name     string `json:"name"`
	Currency string `json:"currency"` // Currency is a display code (e.g. "MAD"); no conversion is applied.
}

// CreateHoldingRequest is the request body for recording a buy against a portfolio.
// All fields are required.
type CreateHoldingRequest struct {
	Ticker     string  `json:"ticker"`
	EntryDate  string  `json:"entryDate"` // EntryDate is the buy date in YYYY-MM-DD format.
	EntryPrice float64 `json:"entryPrice"`
	Quantity   float64 `json:"quantity"`
}

package model

import "time"

// Stock is a listed instrument or index whose daily closes are stored as one
// price blob. Company is the display name used by the exchange's live market
// page and is what scraped quotes are matched on.
type Stock struct {
	Ticker    string    `json:"ticker"`
	Company   string    `json:"company"`
	UpdatedAt time.Time `json:"updatedAt"`
	Prices    []byte    `json:"-"`
}

// StockListing is a stock together with the extent of its stored history.
type StockListing struct {
	Ticker     string     `json:"ticker"`
	Company    string     `json:"company"`
	FirstDate  *time.Time `json:"firstDate,omitempty"`
	LastDate   *time.Time `json:"lastDate,omitempty"`
	LastClose  *float64   `json:"lastClose,omitempty"`
	PriceCount int        `json:"priceCount"`
	Malformed  bool       `json:"malformed,omitempty"`
}

package model

import "time"

// Portfolio is a named collection of holdings owned by one user.
// Currency is an opaque display unit; no conversion is ever applied.
type Portfolio struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"createdAt"`
}

// Holding is one buy transaction recorded against a portfolio.
// Holdings are create-only: there are no partial sells or amendments, and two
// buys of the same ticker on different dates stay two holdings.
type Holding struct {
	ID          string    `json:"id"`
	PortfolioID string    `json:"portfolioId"`
	Ticker      string    `json:"ticker"`
	EntryDate   time.Time `json:"entryDate"`
	EntryPrice  float64   `json:"entryPrice"`
	Quantity    float64   `json:"quantity"`
}

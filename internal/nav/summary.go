package nav

import (
	"fmt"
	"time"

	"github.com/ndewijer/Portfolio-NAV-Backend/internal/model"
)

// HoldingSummary is the point-in-time state of one holding, valued at the last
// row of the price table. Return and Weight are fractions (0.0534 for 5.34%).
type HoldingSummary struct {
	HoldingID    string    `json:"holdingId"`
	Ticker       string    `json:"ticker"`
	EntryDate    time.Time `json:"entryDate"`
	EntryPrice   float64   `json:"entryPrice"`
	Quantity     float64   `json:"quantity"`
	CurrentPrice float64   `json:"currentPrice"`
	Value        float64   `json:"value"`
	PnL          float64   `json:"pnl"`
	Return       float64   `json:"return"`
	Weight       float64   `json:"weight"`
	Currency     string    `json:"currency"`
}

// ComputeHoldingsSummary values every holding at the last row of prices, in
// the order the holdings were given. Weight is 0 for every row when the total
// portfolio value is 0.
func ComputeHoldingsSummary(holdings []model.Holding, prices PriceTable, currency string) ([]HoldingSummary, error) {
	if len(holdings) == 0 {
		return nil, ErrNoHoldings
	}
	if prices.Empty() {
		return nil, ErrNoPriceData
	}

	current := prices.Last()
	var totalValue float64
	for _, h := range holdings {
		if err := validateHolding(h); err != nil {
			return nil, err
		}
		price, ok := current[h.Ticker]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrTickerMissing, h.Ticker)
		}
		totalValue += h.Quantity * price
	}

	summary := make([]HoldingSummary, len(holdings))
	for i, h := range holdings {
		price := current[h.Ticker]
		value := h.Quantity * price
		var weight float64
		if totalValue != 0 {
			weight = value / totalValue
		}
		summary[i] = HoldingSummary{
			HoldingID:    h.ID,
			Ticker:       h.Ticker,
			EntryDate:    h.EntryDate,
			EntryPrice:   h.EntryPrice,
			Quantity:     h.Quantity,
			CurrentPrice: price,
			Value:        value,
			PnL:          (price - h.EntryPrice) * h.Quantity,
			Return:       (price - h.EntryPrice) / h.EntryPrice,
			Weight:       weight,
			Currency:     currency,
		}
	}
	return summary, nil
}

// Totals aggregates a holdings summary and its NAV series into the figures shown
// above a portfolio: balance, cost, unrealized P&L, P&L over cost, and the
// time-weighted performance of the NAV series (last / first - 1) and the
// annualized risk of its daily returns.
type Totals struct {
	Balance     float64 `json:"balance"`
	Cost        float64 `json:"cost"`
	PnL         float64 `json:"pnl"`
	PnLReturn   float64 `json:"pnlReturn"`
	Performance float64 `json:"performance"`
	Risk        Risk    `json:"risk"`
	Currency    string  `json:"currency"`
}

// SummarizeTotals computes Totals. Ratios with a zero denominator are 0.
func SummarizeTotals(summary []HoldingSummary, series []Point) Totals {
	var t Totals
	for _, row := range summary {
		t.Balance += row.Value
		t.Cost += row.EntryPrice * row.Quantity
		t.PnL += row.PnL
		t.Currency = row.Currency
	}
	if t.Cost != 0 {
		t.PnLReturn = t.PnL / t.Cost
	}
	if n := len(series); n > 0 && series[0].Value != 0 {
		t.Performance = series[n-1].Value/series[0].Value - 1
	}
	t.Risk = RiskMetrics(series, TradingDaysPerYear)
	return t
}

package yahoo

import "time"

// Response represents the raw JSON response structure from the Yahoo Finance chart API.
// Yahoo reports missing bars as null, so every quote series is a slice of pointers.
type Response struct {
	Chart Chart `json:"chart"`
}

// Chart is the top-level chart object: one result per requested symbol, or an error.
type Chart struct {
	Result []Result    `json:"result"`
	Error  *ChartError `json:"error"`
}

// ChartError is the error object Yahoo returns in place of results.
type ChartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *ChartError) Error() string {
	return e.Code + ": " + e.Description
}

// Result holds the metadata, timestamps and price arrays of one symbol.
type Result struct {
	Meta       Meta                `json:"meta"`
	Timestamp  []int64             `json:"timestamp"`
	Indicators IndicatorsContainer `json:"indicators"`
}

// Meta is the symbol metadata of a Result.
type Meta struct {
	Currency         string `json:"currency"`
	Symbol           string `json:"symbol"`
	ExchangeName     string `json:"exchangeName"`
	FullExchangeName string `json:"fullExchangeName"`
	LongName         string `json:"longName"`
	Shortname        string `json:"shortName"`
	ExchangeTimezone string `json:"exchangeTimezoneName"`
}

// IndicatorsContainer wraps the quote arrays.
type IndicatorsContainer struct {
	Quote []Quote `json:"quote"`
}

// Quote holds parallel OHLCV arrays aligned with Result.Timestamp.
type Quote struct {
	Open   []*float64 `json:"open"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
}

// PriceChart represents a parsed and structured price chart from Yahoo Finance.
// Indicators only contains days that carry a close.
type PriceChart struct {
	Currency         string       `json:"currency"`
	Symbol           string       `json:"symbol"`
	ExchangeName     string       `json:"exchangeName"`
	FullExchangeName string       `json:"fullExchangeName"`
	LongName         string       `json:"longName"`
	Shortname        string       `json:"shortName"`
	Indicators       []Indicators `json:"indicators"`
}

// Indicators represents a single day's price data for a financial instrument.
// Date is midnight UTC of the trading day. Fields Yahoo reported as null are zero.
type Indicators struct {
	Date       time.Time
	PriceOpen  float64
	PriceClose float64
	Volume     int64
	PriceHigh  float64
	PriceLow   float64
}

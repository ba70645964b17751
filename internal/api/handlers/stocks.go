package handlers

import (
	"net/http"

	"github.com/ndewijer/Portfolio-NAV-Backend/internal/api/response"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/service"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/validation"
)

// StockHandler serves stored price histories.
type StockHandler struct {
	priceService *service.PriceService
}

// NewStockHandler creates a new StockHandler
func NewStockHandler(priceService *service.PriceService) *StockHandler {
	return &StockHandler{
		priceService: priceService,
	}
}

// PriceTableResponse is an aligned price table: one close per ticker for
// every date, with tickers that could not be loaded listed in Skipped.
type PriceTableResponse struct {
	Status  string                  `json:"status"`
	Dates   []string                `json:"dates"`
	Closes  map[string][]float64    `json:"closes"`
	Skipped []service.SkippedTicker `json:"skipped"`
}

// BenchmarkResponse holds benchmark series rebased to 100 on the start date.
type BenchmarkResponse struct {
	Status     string                        `json:"status"`
	Benchmarks map[string][]NavPointResponse `json:"benchmarks"`
	Skipped    []service.SkippedTicker       `json:"skipped"`
}

func skippedOrEmpty(s []service.SkippedTicker) []service.SkippedTicker {
	if s == nil {
		return []service.SkippedTicker{}
	}
	return s
}

// Stocks lists every stored stock with the extent of its history.
//
// Endpoint: GET /api/stock
// Response: 200 OK with array of model.StockListing
// Error: 500 Internal Server Error if retrieval fails
func (h *StockHandler) Stocks(w http.ResponseWriter, r *http.Request) {
	stocks, err := h.priceService.ListStocks(r.Context())
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveStocks.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, stocks)
}

// tickerQuery reads and checks the ticker and start_date query parameters.
func tickerQuery(r *http.Request) ([]string, error) {
	tickers := queryList(r, "ticker")
	if len(tickers) == 0 {
		return nil, &validation.Error{Fields: map[string]string{"ticker": "at least one ticker is required"}}
	}
	for _, t := range tickers {
		if err := validation.ValidateTicker(t); err != nil {
			return nil, err
		}
	}
	return tickers, nil
}

// Prices returns the aligned daily closes of the requested tickers from
// start_date on. Missing values are carried forward from the last close.
//
// Endpoint: GET /api/stock/prices?ticker=IAM&ticker=ATW&start_date=2024-01-01
// Response: 200 OK with PriceTableResponse (status "empty" when no row remains)
// Error: 400 Bad Request if a parameter is missing or malformed
// Error: 503 Service Unavailable if stored prices cannot be read
func (h *StockHandler) Prices(w http.ResponseWriter, r *http.Request) {
	tickers, err := tickerQuery(r)
	if err != nil {
		respondServiceError(w, "validation failed", err)
		return
	}
	start, err := queryDate(r, "start_date", true)
	if err != nil {
		respondServiceError(w, "validation failed", err)
		return
	}

	fetch := h.priceService.FetchHistoricalPrices(r.Context(), tickers, start)
	if fetch.Status == service.FetchFailed {
		response.RespondError(w, http.StatusServiceUnavailable, apperrors.ErrPriceFetchFailed.Error(), fetch.Err.Error())
		return
	}

	resp := PriceTableResponse{
		Status:  string(fetch.Status),
		Dates:   make([]string, len(fetch.Table.Dates)),
		Closes:  make(map[string][]float64, len(fetch.Table.Tickers)),
		Skipped: skippedOrEmpty(fetch.Skipped),
	}
	for i, d := range fetch.Table.Dates {
		resp.Dates[i] = formatDate(d)
	}
	for _, t := range fetch.Table.Tickers {
		resp.Closes[t] = fetch.Table.Closes[t]
	}
	response.RespondJSON(w, http.StatusOK, resp)
}

// Benchmark returns the requested index or stock histories rebased to 100 on
// the first trading day on or after start_date.
//
// Endpoint: GET /api/stock/benchmark?ticker=MASI&start_date=2024-01-01
// Response: 200 OK with BenchmarkResponse
// Error: 400 Bad Request if a parameter is missing or malformed
// Error: 503 Service Unavailable if stored prices cannot be read
func (h *StockHandler) Benchmark(w http.ResponseWriter, r *http.Request) {
	tickers, err := tickerQuery(r)
	if err != nil {
		respondServiceError(w, "validation failed", err)
		return
	}
	start, err := queryDate(r, "start_date", true)
	if err != nil {
		respondServiceError(w, "validation failed", err)
		return
	}

	result, err := h.priceService.ComputeBenchmarkNav(r.Context(), tickers, start)
	if err != nil {
		response.RespondError(w, http.StatusServiceUnavailable, apperrors.ErrPriceFetchFailed.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, BenchmarkResponse{
		Status:     string(result.Status),
		Benchmarks: tableSeries(result.Series),
		Skipped:    skippedOrEmpty(result.Skipped),
	})
}

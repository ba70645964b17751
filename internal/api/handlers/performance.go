package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/Portfolio-NAV-Backend/internal/api/middleware"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/api/response"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/model"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/nav"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/report"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/service"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/validation"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// PerformanceHandler serves the portfolio dashboard and its export.
type PerformanceHandler struct {
	performanceService *service.PerformanceService
}

// NewPerformanceHandler creates a new PerformanceHandler
func NewPerformanceHandler(performanceService *service.PerformanceService) *PerformanceHandler {
	return &PerformanceHandler{
		performanceService: performanceService,
	}
}

// NavPointResponse is one dated value of a NAV or benchmark series.
type NavPointResponse struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// HoldingSummaryResponse is one holding valued at the last close. Percentages
// are rounded to two decimals; the display fields are formatted in the
// portfolio currency.
type HoldingSummaryResponse struct {
	HoldingID    string  `json:"holdingId"`
	Ticker       string  `json:"ticker"`
	EntryDate    string  `json:"entryDate"`
	EntryPrice   float64 `json:"entryPrice"`
	Quantity     float64 `json:"quantity"`
	CurrentPrice float64 `json:"currentPrice"`
	Value        float64 `json:"value"`
	PnL          float64 `json:"pnl"`
	ReturnPct    float64 `json:"returnPct"`
	WeightPct    float64 `json:"weightPct"`
	Currency     string  `json:"currency"`
	ValueDisplay string  `json:"valueDisplay"`
	PnLDisplay   string  `json:"pnlDisplay"`
}

// TotalsResponse is the dashboard header of a portfolio. Risk figures are
// annualized over 252 trading days.
type TotalsResponse struct {
	Balance         float64 `json:"balance"`
	Cost            float64 `json:"cost"`
	PnL             float64 `json:"pnl"`
	PnLReturnPct    float64 `json:"pnlReturnPct"`
	PerformancePct  float64 `json:"performancePct"`
	AnnualReturnPct float64 `json:"annualReturnPct"`
	VolatilityPct   float64 `json:"volatilityPct"`
	Sharpe          float64 `json:"sharpe"`
	Currency        string  `json:"currency"`
	BalanceDisplay  string  `json:"balanceDisplay"`
	PnLDisplay      string  `json:"pnlDisplay"`
}

// PerformanceResponse is the dashboard of one portfolio. Status is "ok" or
// "no_data"; with no_data only Portfolio, Status and Skipped carry content.
type PerformanceResponse struct {
	Portfolio  model.Portfolio               `json:"portfolio"`
	Status     string                        `json:"status"`
	StartDate  string                        `json:"startDate,omitempty"`
	NAV        []NavPointResponse            `json:"nav"`
	Holdings   []HoldingSummaryResponse      `json:"holdings"`
	Totals     *TotalsResponse               `json:"totals,omitempty"`
	Benchmarks map[string][]NavPointResponse `json:"benchmarks"`
	Skipped    []service.SkippedTicker       `json:"skipped"`
}

func newPerformanceResponse(p service.Performance) PerformanceResponse {
	resp := PerformanceResponse{
		Portfolio:  p.Portfolio,
		Status:     string(p.Status),
		StartDate:  formatDate(p.StartDate),
		NAV:        make([]NavPointResponse, len(p.NAV)),
		Holdings:   make([]HoldingSummaryResponse, len(p.Summary)),
		Benchmarks: tableSeries(p.Benchmarks),
		Skipped:    p.Skipped,
	}
	if resp.Skipped == nil {
		resp.Skipped = []service.SkippedTicker{}
	}

	for i, pt := range p.NAV {
		resp.NAV[i] = NavPointResponse{Date: formatDate(pt.Date), Value: pt.Value}
	}
	for i, s := range p.Summary {
		resp.Holdings[i] = HoldingSummaryResponse{
			HoldingID:    s.HoldingID,
			Ticker:       s.Ticker,
			EntryDate:    formatDate(s.EntryDate),
			EntryPrice:   s.EntryPrice,
			Quantity:     s.Quantity,
			CurrentPrice: s.CurrentPrice,
			Value:        s.Value,
			PnL:          s.PnL,
			ReturnPct:    report.Percent(s.Return),
			WeightPct:    report.Percent(s.Weight),
			Currency:     s.Currency,
			ValueDisplay: report.FormatMoney(s.Value, s.Currency),
			PnLDisplay:   report.FormatMoney(s.PnL, s.Currency),
		}
	}

	if p.Status == service.PerformanceOK {
		t := p.Totals
		resp.Totals = &TotalsResponse{
			Balance:         t.Balance,
			Cost:            t.Cost,
			PnL:             t.PnL,
			PnLReturnPct:    report.Percent(t.PnLReturn),
			PerformancePct:  report.Percent(t.Performance),
			AnnualReturnPct: report.Percent(t.Risk.AnnualReturn),
			VolatilityPct:   report.Percent(t.Risk.Volatility),
			Sharpe:          report.Round(t.Risk.Sharpe, 4),
			Currency:        t.Currency,
			BalanceDisplay:  report.FormatMoney(t.Balance, t.Currency),
			PnLDisplay:      report.FormatMoney(t.PnL, t.Currency),
		}
	}
	return resp
}

// tableSeries splits a price table into one dated series per ticker.
func tableSeries(t nav.PriceTable) map[string][]NavPointResponse {
	out := make(map[string][]NavPointResponse, len(t.Tickers))
	for _, ticker := range t.Tickers {
		col := t.Closes[ticker]
		points := make([]NavPointResponse, len(t.Dates))
		for i, d := range t.Dates {
			points[i] = NavPointResponse{Date: formatDate(d), Value: col[i]}
		}
		out[ticker] = points
	}
	return out
}

// Performance handles GET requests for the NAV dashboard of a portfolio.
// Benchmarks are chosen with one or more benchmark query parameters and
// default to the configured list.
//
// Endpoint: GET /api/portfolio/{uuid}/performance?benchmark=MASI
// Response: 200 OK with PerformanceResponse (status "no_data" when nothing can be computed)
// Error: 400 Bad Request if a benchmark ticker is malformed
// Error: 404 Not Found if the user has no such portfolio
// Error: 422 Unprocessable Entity if a holding cannot be valued
// Error: 503 Service Unavailable if stored prices cannot be read
func (h *PerformanceHandler) Performance(w http.ResponseWriter, r *http.Request) {
	benchmarks := queryList(r, "benchmark")
	for _, b := range benchmarks {
		if err := validation.ValidateTicker(b); err != nil {
			respondServiceError(w, "validation failed", err)
			return
		}
	}

	perf, err := h.performanceService.GetPerformance(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "uuid"), benchmarks)
	if err != nil {
		respondServiceError(w, apperrors.ErrFailedToGetPerformance.Error(), err)
		return
	}

	response.RespondJSON(w, http.StatusOK, newPerformanceResponse(perf))
}

// Summary handles GET requests for the xlsx export of a portfolio.
//
// Endpoint: GET /api/portfolio/{uuid}/summary.xlsx
// Response: 200 OK with the workbook as an attachment
// Error: same as Performance
func (h *PerformanceHandler) Summary(w http.ResponseWriter, r *http.Request) {
	data, filename, err := h.performanceService.ExportSummary(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "uuid"))
	if err != nil {
		respondServiceError(w, apperrors.ErrFailedToExportSummary.Error(), err)
		return
	}

	response.RespondFile(w, xlsxContentType, filename, data)
}

// OptimizationResponse is a suggested allocation for a portfolio. Weights are
// percentages rounded to two decimals, keyed by ticker.
type OptimizationResponse struct {
	Portfolio       model.Portfolio         `json:"portfolio"`
	Status          string                  `json:"status"`
	Goal            string                  `json:"goal"`
	StartDate       string                  `json:"startDate,omitempty"`
	Days            int                     `json:"days"`
	WeightsPct      map[string]float64      `json:"weightsPct"`
	AnnualReturnPct float64                 `json:"annualReturnPct"`
	VolatilityPct   float64                 `json:"volatilityPct"`
	Sharpe          float64                 `json:"sharpe"`
	Skipped         []service.SkippedTicker `json:"skipped"`
}

func newOptimizationResponse(o service.Optimization) OptimizationResponse {
	a := o.Allocation
	resp := OptimizationResponse{
		Portfolio:       o.Portfolio,
		Status:          string(o.Status),
		Goal:            string(o.Goal),
		StartDate:       formatDate(o.StartDate),
		Days:            a.Days,
		WeightsPct:      make(map[string]float64, len(a.Weights)),
		AnnualReturnPct: report.Percent(a.Risk.AnnualReturn),
		VolatilityPct:   report.Percent(a.Risk.Volatility),
		Sharpe:          report.Round(a.Risk.Sharpe, 4),
		Skipped:         skippedOrEmpty(o.Skipped),
	}
	for ticker, w := range a.Weights {
		resp.WeightsPct[ticker] = report.Percent(w)
	}
	return resp
}

// Optimize handles GET requests for a suggested allocation of the tickers a
// portfolio holds.
//
// Endpoint: GET /api/portfolio/{uuid}/optimize?goal=sharpe|min_vol
// Response: 200 OK with OptimizationResponse (status "no_data" when there is too little history)
// Error: 400 Bad Request if goal is not sharpe or min_vol
// Error: 404 Not Found if the user has no such portfolio
// Error: 503 Service Unavailable if stored prices cannot be read
func (h *PerformanceHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	goal := r.URL.Query().Get("goal")
	if err := validation.ValidateOptimizationGoal(goal); err != nil {
		respondServiceError(w, "validation failed", err)
		return
	}
	if goal == "" {
		goal = string(nav.MaxSharpe)
	}

	opt, err := h.performanceService.Optimize(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "uuid"), nav.Goal(goal))
	if err != nil {
		respondServiceError(w, apperrors.ErrFailedToOptimize.Error(), err)
		return
	}

	response.RespondJSON(w, http.StatusOK, newOptimizationResponse(opt))
}

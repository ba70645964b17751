package handlers

import (
	"net/http"
	"time"

	"github.com/ndewijer/Portfolio-NAV-Backend/internal/api/request"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/api/response"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/model"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/nav"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/service"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/validation"
)

// IngestionHandler handles the internal endpoints that write price histories.
// They are mounted behind middleware.APIKey.
type IngestionHandler struct {
	ingestionService *service.IngestionService
	now              func() time.Time
}

// NewIngestionHandler creates a new IngestionHandler
func NewIngestionHandler(ingestionService *service.IngestionService) *IngestionHandler {
	return &IngestionHandler{
		ingestionService: ingestionService,
		now:              time.Now,
	}
}

// CreateStock registers a stock or index with an optional initial history.
//
// Endpoint: POST /api/stock
// Request Body: request.CreateStockRequest
// Response: 201 Created with model.Stock
// Error: 400 Bad Request if the body is invalid
// Error: 409 Conflict if the ticker already exists
func (h *IngestionHandler) CreateStock(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.CreateStockRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateCreateStock(req); err != nil {
		respondServiceError(w, "validation failed", err)
		return
	}

	stock, err := h.ingestionService.CreateStock(r.Context(), req)
	if err != nil {
		respondServiceError(w, "failed to create stock", err)
		return
	}

	response.RespondJSON(w, http.StatusCreated, stock)
}

// ImportQuotes appends one day of closing quotes, matched on company name.
//
// Endpoint: POST /api/stock/quotes
// Request Body: request.ImportQuotesRequest
// Response: 200 OK with model.QuoteImportResponse
// Error: 400 Bad Request if the body is invalid
// Error: 500 Internal Server Error if the import transaction fails
func (h *IngestionHandler) ImportQuotes(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.ImportQuotesRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateImportQuotes(req); err != nil {
		respondServiceError(w, "validation failed", err)
		return
	}
	date, err := validation.ParseTime(req.Date)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid date", err.Error())
		return
	}

	quotes := make([]model.Quote, len(req.Quotes))
	for i, q := range req.Quotes {
		quotes[i] = model.Quote{Company: q.Company, Price: q.Price}
	}

	resp, err := h.ingestionService.ImportQuotes(r.Context(), date, quotes)
	if err != nil {
		respondServiceError(w, apperrors.ErrFailedToImportQuotes.Error(), err)
		return
	}

	response.RespondJSON(w, http.StatusOK, resp)
}

// Backfill loads daily history from Yahoo Finance into the stored histories.
// The end date defaults to today.
//
// Endpoint: POST /api/stock/backfill
// Request Body: request.BackfillRequest
// Response: 200 OK with model.BackfillResponse (per-stock failures are listed, not fatal)
// Error: 400 Bad Request if the body is invalid
// Error: 404 Not Found if a requested ticker is not stored
func (h *IngestionHandler) Backfill(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.BackfillRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateBackfill(req); err != nil {
		respondServiceError(w, "validation failed", err)
		return
	}
	start, err := validation.ParseTime(req.StartDate)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid startDate", err.Error())
		return
	}
	end := nav.Day(h.now())
	if req.EndDate != "" {
		if end, err = validation.ParseTime(req.EndDate); err != nil {
			response.RespondError(w, http.StatusBadRequest, "invalid endDate", err.Error())
			return
		}
	}
	if end.Before(start) {
		respondServiceError(w, "validation failed", &validation.Error{Fields: map[string]string{
			"startDate": "startDate cannot be after today",
		}})
		return
	}

	resp, err := h.ingestionService.Backfill(r.Context(), req.Tickers, req.Symbols, nav.Day(start), nav.Day(end))
	if err != nil {
		respondServiceError(w, apperrors.ErrFailedToBackfill.Error(), err)
		return
	}

	response.RespondJSON(w, http.StatusOK, resp)
}

// Scrape runs the end-of-day market scrape now instead of waiting for the
// schedule. Nothing is fetched on weekends.
//
// Endpoint: POST /api/stock/scrape
// Response: 200 OK with model.QuoteImportResponse
// Error: 502 Bad Gateway if the market page cannot be scraped
func (h *IngestionHandler) Scrape(w http.ResponseWriter, r *http.Request) {
	resp, err := h.ingestionService.RunDailyScrape(r.Context())
	if err != nil {
		respondServiceError(w, apperrors.ErrFailedToImportQuotes.Error(), err)
		return
	}

	response.RespondJSON(w, http.StatusOK, resp)
}

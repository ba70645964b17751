package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/Portfolio-NAV-Backend/internal/api/middleware"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/api/request"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/api/response"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/model"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/service"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/validation"
)

// PortfolioHandler handles portfolio and holding HTTP requests. Every request
// is scoped to the user set by middleware.RequireUserID; another user's
// portfolio is reported as not found.
type PortfolioHandler struct {
	portfolioService *service.PortfolioService
	now              func() time.Time
}

// NewPortfolioHandler creates a new PortfolioHandler
func NewPortfolioHandler(portfolioService *service.PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{
		portfolioService: portfolioService,
		now:              time.Now,
	}
}

// HoldingResponse is a holding with its entry date as YYYY-MM-DD.
type HoldingResponse struct {
	ID          string  `json:"id"`
	PortfolioID string  `json:"portfolioId"`
	Ticker      string  `json:"ticker"`
	EntryDate   string  `json:"entryDate"`
	EntryPrice  float64 `json:"entryPrice"`
	Quantity    float64 `json:"quantity"`
}

func newHoldingResponse(h model.Holding) HoldingResponse {
	return HoldingResponse{
		ID:          h.ID,
		PortfolioID: h.PortfolioID,
		Ticker:      h.Ticker,
		EntryDate:   formatDate(h.EntryDate),
		EntryPrice:  h.EntryPrice,
		Quantity:    h.Quantity,
	}
}

// Portfolios lists the portfolios of the calling user.
//
// Endpoint: GET /api/portfolio
// Response: 200 OK with array of model.Portfolio
// Error: 500 Internal Server Error if retrieval fails
func (h *PortfolioHandler) Portfolios(w http.ResponseWriter, r *http.Request) {
	portfolios, err := h.portfolioService.GetPortfolios(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrievePortfolios.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, portfolios)
}

// Portfolio returns one portfolio of the calling user.
//
// Endpoint: GET /api/portfolio/{uuid}
// Response: 200 OK with model.Portfolio
// Error: 404 Not Found if the user has no such portfolio
func (h *PortfolioHandler) Portfolio(w http.ResponseWriter, r *http.Request) {
	portfolio, err := h.portfolioService.GetPortfolio(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "uuid"))
	if err != nil {
		respondServiceError(w, apperrors.ErrFailedToRetrievePortfolios.Error(), err)
		return
	}

	response.RespondJSON(w, http.StatusOK, portfolio)
}

// CreatePortfolio handles POST requests to create a portfolio for the calling user.
//
// Endpoint: POST /api/portfolio
// Request Body: request.CreatePortfolioRequest
// Response: 201 Created with model.Portfolio
// Error: 400 Bad Request if the body is invalid
// Error: 500 Internal Server Error if creation fails
func (h *PortfolioHandler) CreatePortfolio(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.CreatePortfolioRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateCreatePortfolio(req); err != nil {
		respondServiceError(w, "validation failed", err)
		return
	}

	portfolio, err := h.portfolioService.CreatePortfolio(r.Context(), middleware.UserID(r.Context()), req)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, "failed to create portfolio", err.Error())
		return
	}

	response.RespondJSON(w, http.StatusCreated, portfolio)
}

// DeletePortfolio deletes a portfolio of the calling user and all its holdings.
//
// Endpoint: DELETE /api/portfolio/{uuid}
// Response: 204 No Content
// Error: 404 Not Found if the user has no such portfolio
func (h *PortfolioHandler) DeletePortfolio(w http.ResponseWriter, r *http.Request) {
	err := h.portfolioService.DeletePortfolio(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "uuid"))
	if err != nil {
		respondServiceError(w, "failed to delete portfolio", err)
		return
	}

	response.RespondJSON(w, http.StatusNoContent, nil)
}

// Holdings lists the holdings of a portfolio in entry order.
//
// Endpoint: GET /api/portfolio/{uuid}/holding
// Response: 200 OK with array of HoldingResponse
// Error: 404 Not Found if the user has no such portfolio
func (h *PortfolioHandler) Holdings(w http.ResponseWriter, r *http.Request) {
	holdings, err := h.portfolioService.GetHoldings(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "uuid"))
	if err != nil {
		respondServiceError(w, apperrors.ErrFailedToRetrieveHoldings.Error(), err)
		return
	}

	resp := make([]HoldingResponse, len(holdings))
	for i, hd := range holdings {
		resp[i] = newHoldingResponse(hd)
	}
	response.RespondJSON(w, http.StatusOK, resp)
}

// CreateHolding records a buy against a portfolio.
//
// Endpoint: POST /api/portfolio/{uuid}/holding
// Request Body: request.CreateHoldingRequest
// Response: 201 Created with HoldingResponse
// Error: 400 Bad Request if the body is invalid or the entry date is in the future
// Error: 404 Not Found if the user has no such portfolio
func (h *PortfolioHandler) CreateHolding(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.CreateHoldingRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateCreateHolding(req, h.now().UTC()); err != nil {
		respondServiceError(w, "validation failed", err)
		return
	}

	holding, err := h.portfolioService.CreateHolding(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "uuid"), req)
	if err != nil {
		respondServiceError(w, "failed to create holding", err)
		return
	}

	response.RespondJSON(w, http.StatusCreated, newHoldingResponse(*holding))
}

// DeleteHolding removes a holding from a portfolio of the calling user.
//
// Endpoint: DELETE /api/holding/{uuid}
// Response: 204 No Content
// Error: 404 Not Found if the user has no such holding
func (h *PortfolioHandler) DeleteHolding(w http.ResponseWriter, r *http.Request) {
	err := h.portfolioService.DeleteHolding(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "uuid"))
	if err != nil {
		respondServiceError(w, "failed to delete holding", err)
		return
	}

	response.RespondJSON(w, http.StatusNoContent, nil)
}

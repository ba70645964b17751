package handlers

import (
	"net/http"

	"github.com/ndewijer/Portfolio-NAV-Backend/internal/api/response"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/model"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/service"
)

// SystemHandler handles system-related HTTP requests
type SystemHandler struct {
	systemService *service.SystemService
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(systemService *service.SystemService) *SystemHandler {
	return &SystemHandler{
		systemService: systemService,
	}
}

// Health checks the health of the system and database connectivity
//
// Endpoint: GET /api/system/health
// Response: 200 OK with model.HealthStatus
// Error: 503 Service Unavailable if the database cannot be reached
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.systemService.CheckHealth(r.Context()); err != nil {
		response.RespondJSON(w, http.StatusServiceUnavailable, model.HealthStatus{
			Status:   "unhealthy",
			Database: "disconnected",
			Error:    err.Error(),
		})
		return
	}

	response.RespondJSON(w, http.StatusOK, model.HealthStatus{
		Status:   "healthy",
		Database: "connected",
	})
}

// Version handles GET requests to retrieve version information and feature availability.
// Returns the application version, the applied schema version and the enabled features.
//
// Endpoint: GET /api/system/version
// Response: 200 OK with model.VersionInfo
// Error: 500 Internal Server Error if version check fails
func (h *SystemHandler) Version(w http.ResponseWriter, r *http.Request) {
	version, err := h.systemService.CheckVersion(r.Context())
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToGetVersionInfo.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, version)
}

package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ndewijer/Portfolio-NAV-Backend/internal/api/response"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/nav"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/validation"
)

const dateLayout = "2006-01-02"

// maxBodyBytes caps request bodies. A quote import for the whole market is a
// few kilobytes; an initial stock history a few hundred.
const maxBodyBytes = 4 << 20

// parseJSON decodes the request body into a T. Unknown fields and trailing
// data are rejected.
func parseJSON[T any](r *http.Request) (T, error) {
	var v T
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return v, errors.New("request body is empty")
		}
		return v, err
	}
	if dec.More() {
		return v, errors.New("request body must contain a single JSON object")
	}
	return v, nil
}

// notFoundErrors are reported as 404 with their own message.
var notFoundErrors = []error{
	apperrors.ErrPortfolioNotFound,
	apperrors.ErrHoldingNotFound,
	apperrors.ErrStockNotFound,
}

// respondServiceError maps an error returned by a service to an HTTP status.
// message is used for errors with no specific mapping.
//
//   - validation failures: 400 Bad Request with the failing fields as details
//   - missing portfolios, holdings and stocks: 404 Not Found
//   - duplicates: 409 Conflict
//   - holdings the NAV engine cannot value: 422 Unprocessable Entity
//   - unreadable price store: 503 Service Unavailable
//   - unreachable market page: 502 Bad Gateway
//   - anything else: 500 Internal Server Error
func respondServiceError(w http.ResponseWriter, message string, err error) {
	var verr *validation.Error
	if errors.As(err, &verr) {
		response.RespondError(w, http.StatusBadRequest, "validation failed", verr.Fields)
		return
	}
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			response.RespondError(w, http.StatusNotFound, target.Error(), err.Error())
			return
		}
	}

	switch {
	case errors.Is(err, apperrors.ErrDuplicateEntry):
		response.RespondError(w, http.StatusConflict, apperrors.ErrDuplicateEntry.Error(), err.Error())
	case errors.Is(err, apperrors.ErrInvalidDate):
		response.RespondError(w, http.StatusBadRequest, "invalid date", err.Error())
	case nav.IsValidation(err):
		response.RespondError(w, http.StatusUnprocessableEntity, "portfolio cannot be valued", err.Error())
	case errors.Is(err, apperrors.ErrPriceFetchFailed):
		response.RespondError(w, http.StatusServiceUnavailable, apperrors.ErrPriceFetchFailed.Error(), err.Error())
	case errors.Is(err, apperrors.ErrFailedToScrapeMarket):
		response.RespondError(w, http.StatusBadGateway, apperrors.ErrFailedToScrapeMarket.Error(), err.Error())
	default:
		response.RespondError(w, http.StatusInternalServerError, message, err.Error())
	}
}

// queryList returns every value of a repeated query parameter, also splitting
// comma separated values (?ticker=IAM&ticker=ATW or ?ticker=IAM,ATW).
func queryList(r *http.Request, key string) []string {
	var out []string
	for _, v := range r.URL.Query()[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// queryDate parses a YYYY-MM-DD query parameter. A missing parameter returns
// the zero time and no error unless required is set.
func queryDate(r *http.Request, key string, required bool) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		if required {
			return time.Time{}, &validation.Error{Fields: map[string]string{key: key + " is required"}}
		}
		return time.Time{}, nil
	}
	t, err := validation.ParseTime(raw)
	if err != nil {
		return time.Time{}, &validation.Error{Fields: map[string]string{key: fmt.Sprintf("%s must be a date in YYYY-MM-DD format", key)}}
	}
	return nav.Day(t), nil
}

// formatDate renders t as YYYY-MM-DD, or "" for the zero time.
func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}

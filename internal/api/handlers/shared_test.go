package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Portfolio-NAV-Backend/internal/api/request"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/nav"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/validation"
)

// TestParseJSON tests the request body decoder.
// This is an internal test (package handlers, not handlers_test) because
// parseJSON is unexported.
func TestParseJSON(t *testing.T) {
	t.Run("decodes a valid body", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Long term","currency":"MAD"}`))

		req, err := parseJSON[request.CreatePortfolioRequest](r)

		require.NoError(t, err)
		assert.Equal(t, "Long term", req.Name)
		assert.Equal(t, "MAD", req.Currency)
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x","owner":"bob"}`))

		_, err := parseJSON[request.CreatePortfolioRequest](r)
		assert.Error(t, err)
	})

	t.Run("rejects an empty body", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", nil)

		_, err := parseJSON[request.CreatePortfolioRequest](r)
		assert.EqualError(t, err, "request body is empty")
	})

	t.Run("rejects trailing data", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a"}{"name":"b"}`))

		_, err := parseJSON[request.CreatePortfolioRequest](r)
		assert.Error(t, err)
	})
}

// TestRespondServiceError tests the mapping from service errors to statuses.
//
// WHY: Clients tell "fix your input" from "try again later" by status code
// alone, so every error class must land on its own status.
func TestRespondServiceError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &validation.Error{Fields: map[string]string{"name": "name is required"}}, http.StatusBadRequest},
		{"wrapped portfolio not found", fmt.Errorf("lookup: %w", apperrors.ErrPortfolioNotFound), http.StatusNotFound},
		{"holding not found", apperrors.ErrHoldingNotFound, http.StatusNotFound},
		{"stock not found in backfill", fmt.Errorf("%w: X: %w", apperrors.ErrFailedToBackfill, apperrors.ErrStockNotFound), http.StatusNotFound},
		{"duplicate", fmt.Errorf("%w: stock IAM", apperrors.ErrDuplicateEntry), http.StatusConflict},
		{"invalid date", apperrors.ErrInvalidDate, http.StatusBadRequest},
		{"ticker missing from prices", fmt.Errorf("%w: GHOST", nav.ErrTickerMissing), http.StatusUnprocessableEntity},
		{"price store down", fmt.Errorf("%w: closed", apperrors.ErrPriceFetchFailed), http.StatusServiceUnavailable},
		{"market page down", fmt.Errorf("%w: timeout", apperrors.ErrFailedToScrapeMarket), http.StatusBadGateway},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			respondServiceError(w, "failed", tt.err)

			assert.Equal(t, tt.want, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		})
	}
}

func TestQueryHelpers(t *testing.T) {
	t.Run("queryList merges repeated and comma separated values", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/?ticker=IAM,%20ATW&ticker=MASI&ticker=", nil)
		assert.Equal(t, []string{"IAM", "ATW", "MASI"}, queryList(r, "ticker"))
	})

	t.Run("queryDate parses and truncates", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/?start_date=2024-08-12", nil)

		d, err := queryDate(r, "start_date", true)

		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 8, 12, 0, 0, 0, 0, time.UTC), d)
	})

	t.Run("queryDate reports a missing required date", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)

		_, err := queryDate(r, "start_date", true)

		var verr *validation.Error
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "start_date")
	})

	t.Run("queryDate allows a missing optional date", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)

		d, err := queryDate(r, "end_date", false)

		require.NoError(t, err)
		assert.True(t, d.IsZero())
	})

	t.Run("queryDate rejects garbage", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/?start_date=12/08/2024", nil)

		_, err := queryDate(r, "start_date", true)
		assert.Error(t, err)
	})
}

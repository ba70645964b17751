package testutil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/Portfolio-NAV-Backend/internal/api/middleware"
)

// NewRequestWithURLParams creates an HTTP request with chi URL parameters.
// This helper simplifies testing chi handlers that use chi.URLParam() to extract path parameters.
//
// Example:
//
//	req := testutil.NewRequestWithURLParams(
//	    http.MethodGet,
//	    "/api/portfolio/123-456",
//	    map[string]string{"uuid": "123-456"},
//	)
func NewRequestWithURLParams(method, path string, params map[string]string) *http.Request {
	return withURLParams(httptest.NewRequest(method, path, nil), params)
}

// NewJSONRequest creates an HTTP request carrying body as JSON, with optional
// chi URL parameters.
func NewJSONRequest(method, path, body string, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return withURLParams(req, params)
}

// NewRequestWithQueryParams creates an HTTP request with query parameters.
// Each key may carry several values, as in ?ticker=IAM&ticker=ATW.
//
// Example:
//
//	req := testutil.NewRequestWithQueryParams(
//	    http.MethodGet,
//	    "/api/stock/prices",
//	    map[string][]string{
//	        "ticker":     {"IAM", "ATW"},
//	        "start_date": {"2024-01-01"},
//	    },
//	)
func NewRequestWithQueryParams(method, path string, queryParams map[string][]string) *http.Request {
	req := httptest.NewRequest(method, path, nil)

	if len(queryParams) > 0 {
		q := req.URL.Query()
		for key, values := range queryParams {
			for _, v := range values {
				q.Add(key, v)
			}
		}
		req.URL.RawQuery = q.Encode()
	}

	return req
}

// AsUser returns req scoped to userID, as middleware.RequireUserID leaves it.
func AsUser(req *http.Request, userID string) *http.Request {
	return req.WithContext(middleware.WithUserID(req.Context(), userID))
}

func withURLParams(req *http.Request, params map[string]string) *http.Request {
	if len(params) == 0 {
		return req
	}
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

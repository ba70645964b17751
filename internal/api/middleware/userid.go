package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/ndewijer/Portfolio-NAV-Backend/internal/api/response"
	"github.com/ndewijer/Portfolio-NAV-Backend/internal/apperrors"
)

// UserIDHeader carries the ID of the calling user.
const UserIDHeader = "X-User-ID"

const maxUserIDLength = 64

type userIDKey struct{}

// RequireUserID rejects requests without a usable X-User-ID header and stores
// the ID in the request context for UserID.
func RequireUserID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(UserIDHeader))
		if userID == "" {
			response.RespondError(w, http.StatusBadRequest, "missing user ID", apperrors.ErrMissingUserID.Error())
			return
		}
		if len(userID) > maxUserIDLength || strings.ContainsAny(userID, " \t\r\n") {
			response.RespondError(w, http.StatusBadRequest, "invalid user ID", "user ID must be at most 64 characters without whitespace")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

// WithUserID returns a copy of ctx carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserID returns the user ID stored by RequireUserID, or "" when there is none.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}

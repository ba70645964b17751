package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/fernet/fernet-go"

	"github.com/ndewijer/Portfolio-NAV-Backend/internal/api/response"
)

// Headers checked by APIKey.
const (
	APIKeyHeader    = "X-API-Key"
	TimeTokenHeader = "X-Time-Token"
)

// timeTokenMessage is the plaintext sealed in every time token.
const timeTokenMessage = "portfolio-nav-internal"

// timeTokenKey derives the fernet key from the API key.
func timeTokenKey(apiKey string) *fernet.Key {
	k := fernet.Key(sha256.Sum256([]byte(apiKey)))
	return &k
}

// GenerateTimeToken returns a fresh time token for apiKey. The token carries
// its creation time and is accepted by APIKey until the configured TTL passes.
// It returns an empty string if the token cannot be sealed.
func GenerateTimeToken(apiKey string) string {
	tok, err := fernet.EncryptAndSign([]byte(timeTokenMessage), timeTokenKey(apiKey))
	if err != nil {
		return ""
	}
	return string(tok)
}

// APIKey returns a middleware guarding internal endpoints. A request must
// carry apiKey in the X-API-Key header and a time token generated from it in
// the X-Time-Token header, no older than ttl.
//
// Responds 401 Unauthorized when either header is missing or wrong, and
// 500 Internal Server Error when apiKey is empty.
func APIKey(apiKey string, ttl time.Duration) func(http.Handler) http.Handler {
	keys := []*fernet.Key{timeTokenKey(apiKey)}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" {
				response.RespondError(w, http.StatusInternalServerError, "internal authentication error", "Authentication not loaded")
				return
			}

			given := r.Header.Get(APIKeyHeader)
			if given == "" {
				response.RespondError(w, http.StatusUnauthorized, "unauthorized", "Missing API key")
				return
			}
			if subtle.ConstantTimeCompare([]byte(given), []byte(apiKey)) != 1 {
				response.RespondError(w, http.StatusUnauthorized, "unauthorized", "Invalid API key")
				return
			}

			token := r.Header.Get(TimeTokenHeader)
			if token == "" {
				response.RespondError(w, http.StatusUnauthorized, "unauthorized", "Missing Time token")
				return
			}
			msg := fernet.VerifyAndDecrypt([]byte(token), ttl, keys)
			if string(msg) != timeTokenMessage {
				response.RespondError(w, http.StatusUnauthorized, "unauthorized", "Time token is invalid or expired")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

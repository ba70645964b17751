package middleware

import (
	"github.com/go-chi/cors"
)

// NewCORS creates a new CORS middleware with the given allowed origins
func NewCORS(allowedOrigins []string) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Content-Type",
			"Authorization",
			UserIDHeader,
			APIKeyHeader,
			TimeTokenHeader,
		},
		ExposedHeaders:   []string{"Content-Type", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

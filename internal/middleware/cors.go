package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// DefaultCORSAllowedMethods is the default set of methods allowed for CORS.
var DefaultCORSAllowedMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}

// DefaultCORSAllowedHeaders is the default set of request headers allowed for CORS.
var DefaultCORSAllowedHeaders = []string{"Accept", "Authorization", "Content-Type"}

// CORS allows the listed origins to call the API with credentials, so a
// separately hosted front end can use the session cookie. With no origins the
// middleware is a no-op and only same-origin requests work.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   DefaultCORSAllowedMethods,
		AllowedHeaders:   DefaultCORSAllowedHeaders,
		AllowCredentials: true,
		MaxAge:           86400,
	})
}

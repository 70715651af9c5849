package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

// CORS returns a CORS middleware with the given allowed origins. Browser
// clients send the identity provider's apikey and x-client-info headers
// along with the bearer token.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Client-Info",
			"Apikey",
			"X-Request-ID",
		},
		ExposedHeaders: []string{
			"X-Request-ID",
		},
		AllowCredentials: !containsWildcard(allowedOrigins),
		MaxAge:           300,
	})
}

// DefaultCORS allows the public app origin plus local dev servers when the
// app itself runs locally. "*" allows any origin without credentials.
func DefaultCORS(appURL string) func(http.Handler) http.Handler {
	allowedOrigins := []string{strings.TrimRight(appURL, "/")}

	if strings.Contains(appURL, "localhost") || strings.Contains(appURL, "127.0.0.1") {
		allowedOrigins = append(allowedOrigins,
			"http://localhost:5173",
			"http://localhost:8080",
			"http://127.0.0.1:5173",
			"http://127.0.0.1:8080",
		)
	}

	return CORS(allowedOrigins)
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

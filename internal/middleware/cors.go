package middleware

import (
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// CORSMiddleware lets the storefront SPA call the API with its cart cookie.
// Development reflects any origin. Production only answers the origins it
// was given; "*" is ignored there because responses carry credentials, and
// with no origins left no CORS headers are sent at all.
func CORSMiddleware(allowedOrigins []string, isDevelopment bool) func(http.Handler) http.Handler {
	if isDevelopment {
		allowedOrigins = []string{"*"}
	} else {
		allowedOrigins = slices.DeleteFunc(slices.Clone(allowedOrigins), func(o string) bool { return o == "*" })
		if len(allowedOrigins) == 0 {
			return func(next http.Handler) http.Handler { return next }
		}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

// DefaultMiddlewareStack returns the middleware every route gets.
// timeout bounds a request, zero disables it.
func DefaultMiddlewareStack(timeout time.Duration) []func(http.Handler) http.Handler {
	stack := []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
	}
	if timeout > 0 {
		stack = append(stack, middleware.Timeout(timeout))
	}
	return stack
}

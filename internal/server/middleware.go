package server

import (
	"net/http"

	e "github.com/Amund211/coalesce/internal/errors"
	"github.com/Amund211/coalesce/internal/logging"
	"github.com/Amund211/coalesce/internal/ratelimiting"
)

// NewRateLimitMiddleware rejects requests whose rate limit bucket is empty
// before they reach the cache, so a hot client cannot monopolize flights.
func NewRateLimitMiddleware(rateLimiter ratelimiting.RequestRateLimiter) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if !rateLimiter.Consume(r) {
				w.Header().Set("Retry-After", "1")
				statusCode := writeErrorResponse(r.Context(), w, e.RatelimitExceededError)
				logging.FromContext(r.Context()).Info(
					"Returning response",
					"statusCode", statusCode,
					"reason", "ratelimit exceeded",
					"limiterKey", rateLimiter.KeyFor(r),
				)
				return
			}

			next(w, r)
		}
	}
}

// ComposeMiddlewares chains middlewares so the first one listed is the
// outermost on the request path.
func ComposeMiddlewares(middlewares ...func(http.HandlerFunc) http.HandlerFunc) func(http.HandlerFunc) http.HandlerFunc {
	return func(handler http.HandlerFunc) http.HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			handler = middlewares[i](handler)
		}
		return handler
	}
}

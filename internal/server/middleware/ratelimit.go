package middleware

import (
	"net/http"

	"github.com/gosuda/aegis/internal/ratelimit"
)

// RateLimitByIP applies per-IP rate limiting for unauthenticated endpoints
// (e.g. login), keyed on r.RemoteAddr. Chain after chi's RealIP middleware.
// The caller owns the limiter's cleanup goroutine lifecycle.
func RateLimitByIP(limiter *ratelimit.Local) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(r.RemoteAddr) {
				http.Error(w, `{"title":"Too Many Requests","status":429,"detail":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

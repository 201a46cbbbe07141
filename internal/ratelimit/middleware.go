package ratelimit

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Middleware rejects over-quota requests with 429 before they reach the
// chat handlers. Admitted requests proceed untouched.
func Middleware(limiter *Limiter) func(http.Handler) http.Handler {
	if limiter == nil {
		panic("ratelimit: limiter required")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(r.Context(), Identifier(r)) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error":  "Rate limit exceeded",
					"detail": fmt.Sprintf("Limit: %d requests per day", limiter.Limit()),
					"reset":  "in 24 hours",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

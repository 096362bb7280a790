package web

import (
	"net/http"
	"strconv"

	"ai-task-orchestrator/internal/infra/metrics"
	"ai-task-orchestrator/internal/infra/ratelimit"
)

// RateLimitMiddleware applies the per-IP limiter first and the per-user
// limiter second; a request passes only when both allow it. Limiter
// backend errors fail open.
func RateLimitMiddleware(ipLimiter, userLimiter *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, check := range []struct {
				limiter *ratelimit.Limiter
				key     string
			}{
				{ipLimiter, clientIP(r)},
				{userLimiter, UserID(r.Context())},
			} {
				if check.limiter == nil || check.key == "" {
					continue
				}
				res, err := check.limiter.Check(r.Context(), check.key)
				if err != nil {
					continue
				}
				if !res.Allowed {
					metrics.IncLimiterRejected(check.limiter.Scope())
					retryAfter := int(res.RetryAfter.Seconds())
					if retryAfter < 1 {
						retryAfter = 1
					}
					w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
					w.Header().Set("X-RateLimit-Remaining", "0")
					w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
					http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
					return
				}
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			}
			next.ServeHTTP(w, r)
		})
	}
}

/**
 * @description
 * This file contains custom middleware for the HTTP router. The webhook ingress
 * carries one custom middleware: a per-merchant fixed-window rate limit backed
 * by Redis, keyed on the merchantId path parameter. When Redis is unreachable
 * the limiter fails open — dropping a legitimate dispute webhook is worse than
 * letting a burst through.
 *
 * @dependencies
 * - context, net/http, strconv, time: Standard Go libraries.
 * - github.com/go-chi/chi/v5: URL parameter extraction.
 */

package api

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// RateLimiter counts one hit for a subject within a fixed window. A zero count
// means limiting is disabled or not applicable.
type RateLimiter interface {
	ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// WebhookRateLimitMiddleware limits webhook deliveries per merchant. A nil
// limiter or non-positive limit disables the middleware.
func WebhookRateLimitMiddleware(limiter RateLimiter, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil || limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			merchantID := chi.URLParam(r, "merchantId")
			count, retryAfter, err := limiter.ConsumeRateLimit(r.Context(), "webhook", merchantID, limit, window)
			if err != nil {
				log.Printf("level=warn component=api middleware=rate_limit msg=\"limiter unavailable; failing open\" merchant_id=%s err=%v", merchantID, err)
				next.ServeHTTP(w, r)
				return
			}

			if count > limit {
				log.Printf("level=warn component=api middleware=rate_limit outcome=throttled merchant_id=%s count=%d limit=%d", merchantID, count, limit)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				http.Error(w, "Too many webhook deliveries; retry later", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

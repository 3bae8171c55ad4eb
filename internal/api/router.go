/**
 * @description
 * This file sets up the HTTP router for the dispute webhook ingress. It defines
 * the API endpoints, associates them with their corresponding handlers, and
 * applies middleware for logging, panic recovery, timeouts, and per-merchant
 * rate limiting.
 *
 * @dependencies
 * - net/http, time: Standard Go libraries.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// WebhookRoutes creates and returns the router for the webhook ingress.
func WebhookRoutes(h *WebhookHandlers, limiter RateLimiter, rateLimit int, rateWindow time.Duration) http.Handler {
	r := chi.NewRouter()

	// Standard middleware for request ids, logging, panic recovery, and timeouts.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// The rate limiter reads the merchantId URL param, so it must sit on a
	// subrouter mounted below the parameter segment.
	r.Route("/webhook/merchant/dispute/{merchantId}", func(r chi.Router) {
		r.Use(WebhookRateLimitMiddleware(limiter, rateLimit, rateWindow))
		r.Post("/", h.DisputeWebhookHandler)
	})

	return r
}

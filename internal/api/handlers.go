/**
 * @description
 * This file contains the HTTP handlers for the dispute webhook ingress. The
 * webhook handler is deliberately thin: it shape-checks the merchant id, rejects
 * unreadable bodies, wraps the raw payload in a queue envelope and publishes it.
 * All parsing, validation, and persistence happen later on the consumer side, so
 * the gateway sees a fast 200 and never retries because of our own slowness.
 *
 * @dependencies
 * - encoding/json, io, log, net, net/http, strings: Standard Go libraries.
 * - github.com/go-chi/chi/v5: URL parameter extraction.
 * - internal/domain: Envelope and merchant id validation.
 * - pkg/rabbitmq: The queue publisher.
 */

package api

import (
	"encoding/json"
	"io"
	"log"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rasagnyaskygoal/dispute-management-system-api/internal/domain"
	"github.com/rasagnyaskygoal/dispute-management-system-api/pkg/rabbitmq"
)

// maxWebhookBodyBytes caps an inbound webhook body; gateway payloads are a few
// KB, so 1 MiB leaves generous headroom.
const maxWebhookBodyBytes = 1 << 20

// WebhookHandlers holds the publisher and queue coordinates the ingress needs.
type WebhookHandlers struct {
	publisher  rabbitmq.Publisher
	exchange   string
	routingKey string
}

// NewWebhookHandlers creates a new instance of WebhookHandlers.
func NewWebhookHandlers(publisher rabbitmq.Publisher, exchange, routingKey string) *WebhookHandlers {
	return &WebhookHandlers{publisher: publisher, exchange: exchange, routingKey: routingKey}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *WebhookHandlers) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: message})
}

// DisputeWebhookHandler accepts a gateway dispute webhook addressed to one
// merchant and enqueues it for asynchronous processing.
func (h *WebhookHandlers) DisputeWebhookHandler(w http.ResponseWriter, r *http.Request) {
	merchantID := chi.URLParam(r, "merchantId")
	if err := domain.ValidateMerchantID(merchantID); err != nil {
		log.Printf("level=warn component=api endpoint=dispute_webhook outcome=reject reason=invalid_merchant_id merchant_id=%s", merchantID)
		h.writeError(w, http.StatusBadRequest, "Invalid merchant id")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
	if err != nil {
		log.Printf("level=warn component=api endpoint=dispute_webhook outcome=reject reason=body_read_failed merchant_id=%s err=%v", merchantID, err)
		h.writeError(w, http.StatusBadRequest, "Unable to read request body")
		return
	}
	if len(body) == 0 || !json.Valid(body) {
		log.Printf("level=warn component=api endpoint=dispute_webhook outcome=reject reason=invalid_json merchant_id=%s", merchantID)
		h.writeError(w, http.StatusBadRequest, "Request body must be valid JSON")
		return
	}

	envelope := domain.WebhookEnvelope{
		MerchantID: merchantID,
		RawPayload: body,
		Headers:    flattenHeaders(r.Header),
		GatewayIP:  clientIP(r),
	}

	if err := h.publisher.Publish(r.Context(), h.exchange, h.routingKey, envelope); err != nil {
		log.Printf("level=error component=api endpoint=dispute_webhook outcome=error reason=publish_failed merchant_id=%s err=%v", merchantID, err)
		h.writeError(w, http.StatusServiceUnavailable, "Unable to accept webhook right now")
		return
	}

	log.Printf("level=info component=api endpoint=dispute_webhook outcome=accepted merchant_id=%s bytes=%d", merchantID, len(body))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// flattenHeaders lowercases header names and keeps the first value, which is
// the shape gateway signature detection expects.
func flattenHeaders(header http.Header) map[string]string {
	flat := make(map[string]string, len(header))
	for name, values := range header {
		if len(values) == 0 {
			continue
		}
		flat[strings.ToLower(name)] = values[0]
	}
	return flat
}

// clientIP prefers the first X-Forwarded-For hop, falling back to the socket
// peer address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.IndexByte(fwd, ','); idx >= 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

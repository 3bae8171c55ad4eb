package gateway

import (
	"encoding/json"
	"strings"
)

// Detect classifies an inbound payload by provider. Header names must already be
// lower-cased by the caller. A provider-specific signature header wins; a body
// whose top-level "event" mentions a dispute is attributed to Razorpay as a
// fallback. Returns Unknown when no rule matches; the caller decides that is a
// fatal, non-retryable condition for the message.
func Detect(headers map[string]string, body []byte) string {
	if headers["x-razorpay-signature"] != "" {
		return Razorpay
	}

	var probe struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(body, &probe); err == nil && strings.Contains(probe.Event, "dispute") {
		return Razorpay
	}

	if headers["x-cashfree-signature"] != "" {
		return Cashfree
	}

	return Unknown
}

/**
 * @description
 * This package classifies inbound webhook payloads by payment gateway and parses
 * each provider's raw payload into provider-agnostic dispute fields. Detection is
 * header-signature based with a content heuristic fallback; parsing is one pure
 * function per provider, dispatched by an explicit gateway constant.
 */

package gateway

import "time"

// Supported payment gateways. Unknown is the zero value returned when no
// detection rule matches; it is a classification result, not an error.
const (
	Razorpay = "razorpay"
	Cashfree = "cashfree"
	Unknown  = ""
)

// ParsedDispute carries the provider-agnostic fields pulled from a raw gateway
// payload before normalization into the canonical envelope.
type ParsedDispute struct {
	Event             string
	DisputeID         string
	PaymentID         string
	Amount            int64
	Currency          string
	StatusUpdatedAt   time.Time
	DueDate           time.Time
	ReasonCode        string
	ReasonDescription string
	Status            string
	State             string
	Type              string
}

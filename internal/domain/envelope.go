/**
 * @description
 * This file defines the two envelopes that cross the pipeline's boundaries: the
 * queue message published by the webhook receiver, and the canonical dispute
 * record produced by normalization. The canonical envelope is schema-checked
 * before any dispute write; validation returns the full list of field errors so
 * the audit log can retain them.
 *
 * @dependencies
 * - encoding/json, fmt, strings, time: Standard Go libraries.
 */

package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// WebhookEnvelope is the JSON message published to the durable queue by the HTTP
// receiver and consumed by the processor. Field names are part of the queue
// contract and must not change.
type WebhookEnvelope struct {
	MerchantID string            `json:"merchantId"`
	RawPayload json.RawMessage   `json:"rawPayload"`
	Headers    map[string]string `json:"headers"`
	GatewayIP  string            `json:"GatewayIP"`
}

// CanonicalDispute is the normalized, gateway-agnostic representation of a
// dispute event used internally after parsing. Status carries the parser-derived
// internal state (e.g. "won", "initiated"), not the lifecycle flag.
type CanonicalDispute struct {
	DisputeID       string    `json:"disputeId"`
	PaymentID       string    `json:"paymentId"`
	Gateway         string    `json:"gateway"`
	IPAddress       string    `json:"ipAddress"`
	Amount          int64     `json:"amount"`
	Currency        string    `json:"currency"`
	ReasonCode      string    `json:"reasonCode"`
	Reason          string    `json:"reason"`
	DisputeStatus   string    `json:"disputeStatus"`
	Event           string    `json:"event"`
	StatusUpdatedAt time.Time `json:"statusUpdatedAt"`
	DueDate         time.Time `json:"dueDate"`
	Type            string    `json:"type"`
	Status          string    `json:"status"`
}

// FieldError describes a single schema violation on the canonical envelope.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationErrors aggregates every schema violation found in one pass.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, fe := range v {
		parts = append(parts, fe.Error())
	}
	return "invalid canonical dispute: " + strings.Join(parts, "; ")
}

// Validate schema-checks the canonical envelope. All fields are required. It
// returns every violation, not just the first, so callers can log the full set.
func (c CanonicalDispute) Validate() error {
	var errs ValidationErrors

	requireString := func(field, value string) {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, FieldError{Field: field, Message: field + " is required"})
		}
	}

	requireString("disputeId", c.DisputeID)
	requireString("paymentId", c.PaymentID)
	requireString("gateway", c.Gateway)
	requireString("ipAddress", c.IPAddress)
	requireString("currency", c.Currency)
	requireString("reasonCode", c.ReasonCode)
	requireString("reason", c.Reason)
	requireString("disputeStatus", c.DisputeStatus)
	requireString("event", c.Event)
	requireString("type", c.Type)
	requireString("status", c.Status)

	if c.Amount <= 0 {
		errs = append(errs, FieldError{Field: "amount", Message: "amount must be positive"})
	}
	if c.StatusUpdatedAt.IsZero() {
		errs = append(errs, FieldError{Field: "statusUpdatedAt", Message: "statusUpdatedAt is required"})
	}
	if c.DueDate.IsZero() {
		errs = append(errs, FieldError{Field: "dueDate", Message: "dueDate is required"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateMerchantID checks the public merchant identifier shape: exactly 15
// characters beginning with the literal prefix "MID".
func ValidateMerchantID(merchantID string) error {
	if strings.TrimSpace(merchantID) == "" {
		return fmt.Errorf("merchantId is required")
	}
	if len(merchantID) != 15 || merchantID[:3] != "MID" {
		return fmt.Errorf("merchantId has invalid format")
	}
	return nil
}

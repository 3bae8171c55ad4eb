/**
 * @description
 * Parser for Razorpay dispute webhooks. Razorpay nests dispute data under
 * payload.dispute.entity and ships epoch-second timestamps; the event kind is
 * the last dot-segment of the top-level event name (e.g.
 * "payment.dispute.created" -> "created").
 *
 * @dependencies
 * - encoding/json, strings, time: Standard Go libraries.
 */

package gateway

import (
	"encoding/json"
	"strings"
	"time"
)

type razorpayWebhook struct {
	Event   string `json:"event"`
	Payload struct {
		Dispute struct {
			Entity struct {
				ID         string `json:"id"`
				PaymentID  string `json:"payment_id"`
				Amount     int64  `json:"amount"`
				Currency   string `json:"currency"`
				ReasonCode string `json:"reason_code"`
				Status     string `json:"status"`
				Phase      string `json:"phase"`
				CreatedAt  int64  `json:"created_at"`
				RespondBy  int64  `json:"respond_by"`
			} `json:"entity"`
		} `json:"dispute"`
	} `json:"payload"`
}

// parseRazorpay pulls the dispute fields out of a raw Razorpay payload.
func parseRazorpay(raw []byte) (*ParsedDispute, error) {
	var hook razorpayWebhook
	if err := json.Unmarshal(raw, &hook); err != nil {
		return nil, err
	}

	entity := hook.Payload.Dispute.Entity

	event := hook.Event
	if segments := strings.Split(hook.Event, "."); len(segments) > 0 {
		event = segments[len(segments)-1]
	}

	disputeType := entity.Phase
	if disputeType == "" {
		disputeType = "chargeback"
	}

	// A missing epoch field stays the zero time rather than becoming the Unix
	// epoch, so schema validation rejects the envelope downstream.
	var statusUpdatedAt, dueDate time.Time
	if entity.CreatedAt > 0 {
		statusUpdatedAt = time.Unix(entity.CreatedAt, 0)
	}
	if entity.RespondBy > 0 {
		dueDate = time.Unix(entity.RespondBy, 0)
	}

	return &ParsedDispute{
		Event:             event,
		DisputeID:         entity.ID,
		PaymentID:         entity.PaymentID,
		Amount:            entity.Amount,
		Currency:          entity.Currency,
		StatusUpdatedAt:   statusUpdatedAt,
		DueDate:           dueDate,
		ReasonCode:        entity.ReasonCode,
		ReasonDescription: humanizeReasonCode(entity.ReasonCode),
		Status:            entity.Status,
		State:             razorpayInternalState(entity.Status),
		Type:              disputeType,
	}, nil
}

// humanizeReasonCode turns a snake_case reason code into a readable description,
// e.g. "goods_or_services_not_received" -> "Goods Or Services Not Received".
func humanizeReasonCode(code string) string {
	if code == "" {
		return ""
	}
	words := strings.Split(code, "_")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

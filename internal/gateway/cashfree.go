/**
 * @description
 * Parser for Cashfree dispute webhooks. Cashfree nests dispute data under
 * data.dispute and data.order_details and ships ISO-8601 timestamps; the event
 * kind is the last underscore-segment of the top-level type (e.g.
 * "DISPUTE_CREATED" -> "created"). Numeric identifiers arrive as JSON numbers
 * and are carried as strings internally.
 *
 * @dependencies
 * - encoding/json, math, strings, time: Standard Go libraries.
 */

package gateway

import (
	"encoding/json"
	"math"
	"strings"
	"time"
)

type cashfreeWebhook struct {
	Type      string `json:"type"`
	EventTime string `json:"event_time"`
	Data      struct {
		Dispute struct {
			DisputeID         json.Number `json:"dispute_id"`
			DisputeAmount     float64     `json:"dispute_amount"`
			Currency          string      `json:"dispute_amount_currency"`
			ReasonCode        string      `json:"reason_code"`
			ReasonDescription string      `json:"reason_description"`
			DisputeStatus     string      `json:"dispute_status"`
			DisputeType       string      `json:"dispute_type"`
			RespondBy         string      `json:"respond_by"`
		} `json:"dispute"`
		OrderDetails struct {
			CfPaymentID json.Number `json:"cf_payment_id"`
		} `json:"order_details"`
	} `json:"data"`
}

// parseCashfree pulls the dispute fields out of a raw Cashfree payload.
func parseCashfree(raw []byte) (*ParsedDispute, error) {
	var hook cashfreeWebhook
	if err := json.Unmarshal(raw, &hook); err != nil {
		return nil, err
	}

	dispute := hook.Data.Dispute

	event := hook.Type
	if segments := strings.Split(hook.Type, "_"); len(segments) > 0 {
		event = segments[len(segments)-1]
	}
	event = strings.ToLower(event)

	statusUpdatedAt, _ := time.Parse(time.RFC3339, hook.EventTime)
	respondBy, _ := time.Parse(time.RFC3339, dispute.RespondBy)

	reason := dispute.ReasonDescription
	if reason == "" {
		reason = humanizeReasonCode(dispute.ReasonCode)
	}

	disputeType := strings.ToLower(dispute.DisputeType)
	if disputeType == "" {
		disputeType = "chargeback"
	}

	return &ParsedDispute{
		Event:             event,
		DisputeID:         dispute.DisputeID.String(),
		PaymentID:         hook.Data.OrderDetails.CfPaymentID.String(),
		Amount:            int64(math.Round(dispute.DisputeAmount)),
		Currency:          dispute.Currency,
		StatusUpdatedAt:   statusUpdatedAt,
		DueDate:           respondBy,
		ReasonCode:        dispute.ReasonCode,
		ReasonDescription: reason,
		Status:            dispute.DisputeStatus,
		State:             cashfreeInternalState(dispute.DisputeStatus),
		Type:              disputeType,
	}, nil
}

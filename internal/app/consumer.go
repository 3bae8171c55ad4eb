package app

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/rasagnyaskygoal/dispute-management-system-api/internal/domain"
)

// processTimeout bounds a single webhook's database work.
const processTimeout = 15 * time.Second

// WebhookConsumer adapts the Processor to the queue's delivery contract: the
// returned boolean decides ack (true) versus reject-without-requeue (false).
type WebhookConsumer struct {
	processor *Processor
}

func NewWebhookConsumer(processor *Processor) *WebhookConsumer {
	return &WebhookConsumer{processor: processor}
}

// HandleMessage processes one queue delivery. Malformed envelopes and every
// class of processing failure return false; none of them are retryable.
func (c *WebhookConsumer) HandleMessage(body []byte) bool {
	var env domain.WebhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		log.Printf("level=error component=webhook_consumer msg=\"envelope unmarshal failed\" err=%v", err)
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
	defer cancel()

	if err := c.processor.Process(ctx, env); err != nil {
		log.Printf("level=error component=webhook_consumer msg=\"webhook processing failed\" merchant_id=%s err=%v", env.MerchantID, err)
		return false
	}
	return true
}

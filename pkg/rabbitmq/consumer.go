/**
 * @description
 * RabbitMQ consumer for the webhook processing queue. Declares the durable
 * direct exchange, the durable queue and its binding, then delivers messages
 * one at a time (prefetch of 1) to a handler. The handler's boolean return
 * drives acknowledgement: true acks, false rejects without requeue so a
 * poison message can never loop. A lost connection is detected via
 * NotifyClose and redialed with capped backoff.
 *
 * @dependencies
 * - context, fmt, log, net/url, strings, time: Standard Go libraries.
 * - github.com/rabbitmq/amqp091-go: The RabbitMQ client library.
 */
package rabbitmq

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	reconnectBaseDelay = 2 * time.Second
	reconnectMaxDelay  = 30 * time.Second
)

// Consumer owns one connection and channel against the broker and runs the
// delivery loop for a single queue.
type Consumer struct {
	url  string
	conn *amqp.Connection
	ch   *amqp.Channel
}

func sanitizeURL(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.Trim(clean, "\"'")
	if !strings.HasSuffix(clean, "/") {
		clean += "/"
	}
	parsed, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
		return "", fmt.Errorf("invalid AMQP scheme: %s", parsed.Scheme)
	}
	return clean, nil
}

func NewConsumer(amqpURL string) (*Consumer, error) {
	cleanURL, err := sanitizeURL(amqpURL)
	if err != nil {
		return nil, err
	}

	c := &Consumer{url: cleanURL}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Consumer) connect() error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}

	c.conn = conn
	c.ch = ch
	return nil
}

// Consume binds queueName to exchange under routingKey and runs the delivery
// loop until ctx is cancelled. The loop survives broker restarts: when the
// connection drops it redials with capped backoff and re-declares the
// topology.
func (c *Consumer) Consume(ctx context.Context, exchange, queueName, routingKey string, handler func([]byte) bool) error {
	if handler == nil {
		return fmt.Errorf("no handler provided")
	}

	delay := reconnectBaseDelay
	for {
		err := c.consumeOnce(ctx, exchange, queueName, routingKey, handler)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			log.Printf("level=warn component=rabbitmq_consumer msg=\"consume loop ended; reconnecting\" queue=%s err=%v", queueName, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > reconnectMaxDelay {
			delay = reconnectMaxDelay
		}

		c.Close()
		if err := c.connect(); err != nil {
			log.Printf("level=warn component=rabbitmq_consumer msg=\"redial failed\" queue=%s err=%v", queueName, err)
			continue
		}
		delay = reconnectBaseDelay
	}
}

func (c *Consumer) consumeOnce(ctx context.Context, exchange, queueName, routingKey string, handler func([]byte) bool) error {
	if err := c.ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		return err
	}

	q, err := c.ch.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		return err
	}

	if err := c.ch.QueueBind(q.Name, routingKey, exchange, false, nil); err != nil {
		return err
	}

	// One unacked message per consumer: a webhook is fully processed before
	// the next is delivered.
	if err := c.ch.Qos(1, 0, false); err != nil {
		return err
	}

	msgs, err := c.ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	closed := c.conn.NotifyClose(make(chan *amqp.Error, 1))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case amqpErr := <-closed:
			if amqpErr == nil {
				return fmt.Errorf("connection closed")
			}
			return amqpErr
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			if handler(d.Body) {
				if err := d.Ack(false); err != nil {
					log.Printf("level=error component=rabbitmq_consumer msg=\"ack failed\" queue=%s err=%v", queueName, err)
				}
			} else {
				// Reject without requeue: all processing failures are
				// terminal for the message.
				log.Printf("level=warn component=rabbitmq_consumer msg=\"handler failed; rejecting without requeue\" queue=%s", queueName)
				if err := d.Nack(false, false); err != nil {
					log.Printf("level=error component=rabbitmq_consumer msg=\"nack failed\" queue=%s err=%v", queueName, err)
				}
			}
		}
	}
}

func (c *Consumer) Close() {
	if c.ch != nil {
		c.ch.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}

// Package queue contains the background consumers fed by RabbitMQ: the
// payment consumer that confirms held seats and the audit consumer that
// appends reservation lifecycle events to a log file.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrRetry marks a handler failure that should be redelivered.  Any other
// error rejects the message without requeueing it.
var ErrRetry = errors.New("retry later")

// Handler processes one message body.
type Handler func(ctx context.Context, body []byte) error

// Subscription names the queue a consumer reads.  When Exchange is set the
// queue is bound to it with each of Keys on a durable topic exchange;
// otherwise the queue is read directly.
type Subscription struct {
	Name     string // log prefix
	URL      string
	Exchange string
	Queue    string
	Keys     []string
	Prefetch int
}

const maxBackoff = 30 * time.Second

// Run consumes sub until ctx is cancelled, reconnecting with exponential
// backoff whenever the broker goes away.  It always returns ctx.Err().
func Run(ctx context.Context, sub Subscription, h Handler) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(sub.URL)
		if err != nil {
			log.Printf("%s: dial broker: %v; retrying in %s", sub.Name, err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < maxBackoff {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consume(ctx, conn, sub, h)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("%s: consume loop ended: %v; reconnecting", sub.Name, err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func consume(ctx context.Context, conn *amqp.Connection, sub Subscription, h Handler) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if sub.Prefetch > 0 {
		if err := ch.Qos(sub.Prefetch, 0, false); err != nil {
			log.Printf("%s: set QoS failed: %v", sub.Name, err)
		}
	}
	if err := declare(ch, sub); err != nil {
		return err
	}
	msgs, err := ch.ConsumeWithContext(ctx, sub.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	for d := range msgs {
		settle(ctx, sub.Name, d, h)
	}
	return errors.New("deliveries channel closed")
}

func declare(ch *amqp.Channel, sub Subscription) error {
	if sub.Exchange != "" {
		if err := ch.ExchangeDeclare(sub.Exchange, "topic", true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare exchange: %w", err)
		}
	}
	q, err := ch.QueueDeclare(sub.Queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	if sub.Exchange == "" {
		return nil
	}
	for _, key := range sub.Keys {
		if err := ch.QueueBind(q.Name, key, sub.Exchange, false, nil); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return nil
}

// settle runs h and acknowledges d according to the result.
func settle(ctx context.Context, name string, d amqp.Delivery, h Handler) {
	err := h(ctx, d.Body)
	switch {
	case err == nil:
		_ = d.Ack(false)
	case errors.Is(err, ErrRetry):
		log.Printf("%s: handle message failed, requeueing: %v", name, err)
		_ = d.Nack(false, true)
	default:
		log.Printf("%s: handle message failed: %v", name, err)
		_ = d.Nack(false, false)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Package queue_publisher publishes reservation lifecycle events to a
// RabbitMQ topic exchange.  Events are queued and sent by a single
// background goroutine so a slow or missing broker never delays the
// request that produced them; events that cannot be queued or sent are
// logged and dropped.
package queue_publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/seatly/internal/model"
)

// Errors returned by Record.
var (
	ErrBufferFull = errors.New("event buffer full")
	ErrClosed     = errors.New("publisher closed")
)

const (
	defaultBuffer      = 256
	defaultDialTimeout = 2 * time.Second
	defaultCooldown    = 5 * time.Second
	publishTimeout     = 5 * time.Second
)

// Option configures a Publisher.
type Option func(*Publisher)

// WithBuffer sets how many events may wait for the broker.
func WithBuffer(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.buffer = n
		}
	}
}

// WithDialTimeout bounds one connection attempt, handshake included.
func WithDialTimeout(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.dialTimeout = d
		}
	}
}

// WithCooldown sets how long the publisher stops dialing after a failed
// attempt.  Events arriving meanwhile are dropped.
func WithCooldown(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.cooldown = d
		}
	}
}

// Publisher sends model.ReservationEvent values to a durable topic exchange
// using the event kind as routing key.  The connection is opened lazily by
// the sending goroutine and re-dialled after any failure.
type Publisher struct {
	url         string
	exchange    string
	buffer      int
	dialTimeout time.Duration
	cooldown    time.Duration

	events    chan model.ReservationEvent
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
	dropped   atomic.Int64

	// owned by run
	conn    *amqp.Connection
	ch      *amqp.Channel
	retryAt time.Time
}

// New starts a publisher for exchange on the broker at url.  Call Close to
// stop it.
func New(url, exchange string, opts ...Option) *Publisher {
	p := &Publisher{
		url:         url,
		exchange:    exchange,
		buffer:      defaultBuffer,
		dialTimeout: defaultDialTimeout,
		cooldown:    defaultCooldown,
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.events = make(chan model.ReservationEvent, p.buffer)
	go p.run()
	return p
}

// Record implements reservation.Recorder.  It only queues ev and never
// blocks.
func (p *Publisher) Record(_ context.Context, ev model.ReservationEvent) error {
	select {
	case <-p.done:
		return ErrClosed
	default:
	}
	select {
	case p.events <- ev:
		return nil
	default:
		p.drop(ev, ErrBufferFull)
		return ErrBufferFull
	}
}

// Dropped returns how many events were never delivered to the broker.
func (p *Publisher) Dropped() int64 { return p.dropped.Load() }

// Close stops the sending goroutine and releases the connection.  Events
// still queued are discarded.
func (p *Publisher) Close() error {
	p.closeOnce.Do(func() { close(p.done) })
	<-p.stopped
	return nil
}

func (p *Publisher) run() {
	defer close(p.stopped)
	defer p.reset()
	for {
		select {
		case <-p.done:
			return
		case ev := <-p.events:
			if err := p.publish(ev); err != nil {
				p.drop(ev, err)
			}
		}
	}
}

func (p *Publisher) publish(ev model.ReservationEvent) error {
	msg, err := message(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.connect(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := p.ch.PublishWithContext(ctx, p.exchange, ev.Kind, false, false, msg); err != nil {
		p.reset()
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

func (p *Publisher) drop(ev model.ReservationEvent, err error) {
	n := p.dropped.Add(1)
	log.Printf("rabbitmq: dropped %s for %s: %v (total %d)", ev.Kind, ev.Reservation.ID, err, n)
}

func (p *Publisher) connect() error {
	if p.ch != nil && !p.ch.IsClosed() {
		return nil
	}
	p.reset()
	if time.Now().Before(p.retryAt) {
		return errors.New("broker unavailable, waiting before next dial")
	}
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(p.dialTimeout),
	})
	if err != nil {
		p.retryAt = time.Now().Add(p.cooldown)
		return fmt.Errorf("dial failed: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		p.retryAt = time.Now().Add(p.cooldown)
		return fmt.Errorf("channel open failed: %w", err)
	}
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		p.retryAt = time.Now().Add(p.cooldown)
		return fmt.Errorf("exchange declare failed: %w", err)
	}
	p.conn, p.ch = conn, ch
	return nil
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

func message(ev model.ReservationEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, err
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.Reservation.ID + ":" + ev.Kind,
		Timestamp:    ev.OccurredAt.UTC(),
		Type:         ev.Kind,
		Body:         body,
	}, nil
}

package queue_publisher

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/seatly/internal/model"
)

func TestMessage(t *testing.T) {
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	ev := model.ReservationEvent{
		Kind:        model.EventHeld,
		Reservation: model.Reservation{ID: "r-1", RouteID: "route-1", SeatNumber: "A1", Status: model.StatusPending},
		OccurredAt:  at,
	}
	msg, err := message(ev)
	if err != nil {
		t.Fatal(err)
	}
	if msg.DeliveryMode != amqp.Persistent {
		t.Fatalf("expected persistent delivery, got %d", msg.DeliveryMode)
	}
	if msg.ContentType != "application/json" || msg.Type != model.EventHeld {
		t.Fatalf("unexpected headers: %q %q", msg.ContentType, msg.Type)
	}
	if msg.MessageId != "r-1:reservation.held" || !msg.Timestamp.Equal(at) {
		t.Fatalf("unexpected id/timestamp: %q %v", msg.MessageId, msg.Timestamp)
	}
	var got model.ReservationEvent
	if err := json.Unmarshal(msg.Body, &got); err != nil {
		t.Fatal(err)
	}
	if got.Kind != ev.Kind || got.Reservation.ID != "r-1" {
		t.Fatalf("expected round-tripped event, got %+v", got)
	}
}

// silentBroker accepts TCP connections and never answers, so every AMQP
// handshake runs into the dial timeout.
func silentBroker(t *testing.T) (string, *atomic.Int64) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	var accepted atomic.Int64
	var mu sync.Mutex
	var conns []net.Conn
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			accepted.Add(1)
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})
	return "amqp://guest:guest@" + ln.Addr().String() + "/", &accepted
}

func TestRecordDoesNotWaitForBroker(t *testing.T) {
	url, accepted := silentBroker(t)
	p := New(url, "seatly.reservations", WithDialTimeout(300*time.Millisecond), WithCooldown(time.Minute))

	const n = 8
	start := time.Now()
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- p.Record(context.Background(), model.ReservationEvent{Kind: model.EventHeld})
		}()
	}
	wg.Wait()
	close(errs)
	if took := time.Since(start); took > 200*time.Millisecond {
		t.Fatalf("expected %d concurrent Record calls to return immediately, took %s", n, took)
	}
	for err := range errs {
		if err != nil {
			t.Fatalf("expected queued event, got %v", err)
		}
	}

	deadline := time.Now().Add(5 * time.Second)
	for p.Dropped() < n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d dropped events, got %d", n, p.Dropped())
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got := accepted.Load(); got != 1 {
		t.Fatalf("expected one dial during the cooldown, got %d", got)
	}

	start = time.Now()
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if took := time.Since(start); took > time.Second {
		t.Fatalf("expected Close to return promptly, took %s", took)
	}
	if err := p.Record(context.Background(), model.ReservationEvent{Kind: model.EventHeld}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed after Close, got %v", err)
	}
}

func TestRecordDropsWhenBufferFull(t *testing.T) {
	url, _ := silentBroker(t)
	p := New(url, "seatly.reservations", WithBuffer(1), WithDialTimeout(time.Second))
	defer p.Close()

	var err error
	for i := 0; i < 3 && err == nil; i++ {
		err = p.Record(context.Background(), model.ReservationEvent{Kind: model.EventHeld})
	}
	if !errors.Is(err, ErrBufferFull) {
		t.Fatalf("expected ErrBufferFull, got %v", err)
	}
	if p.Dropped() < 1 {
		t.Fatalf("expected dropped counter to move, got %d", p.Dropped())
	}
}

package broadcast

import (
	"log"
	"sync"
	"sync/atomic"

	"github.com/iliyamo/seatly/internal/model"
)

// Client is one connected viewer.  Events are queued in a bounded buffer;
// when the buffer is full new events are dropped rather than blocking the
// publisher.  A viewer that missed events re-fetches the seat map.
type Client struct {
	ID string

	out       chan model.SeatEvent
	done      chan struct{}
	closeOnce sync.Once
	dropped   atomic.Int64
}

// NewClient returns a client with room for buffer queued events.
func NewClient(id string, buffer int) *Client {
	if buffer < 1 {
		buffer = 1
	}
	return &Client{
		ID:   id,
		out:  make(chan model.SeatEvent, buffer),
		done: make(chan struct{}),
	}
}

// Events is the stream of events delivered to this client.
func (c *Client) Events() <-chan model.SeatEvent { return c.out }

// Done is closed once the client has been closed.
func (c *Client) Done() <-chan struct{} { return c.done }

// Send queues ev without blocking and reports whether it was queued.
func (c *Client) Send(ev model.SeatEvent) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.out <- ev:
		return true
	default:
		n := c.dropped.Add(1)
		log.Printf("broadcast: client %s buffer full, dropped %s %s (total %d)", c.ID, ev.RouteID, ev.SeatNumber, n)
		return false
	}
}

// Dropped returns how many events were discarded for this client.
func (c *Client) Dropped() int64 { return c.dropped.Load() }

// Close marks the client as gone.  It is safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

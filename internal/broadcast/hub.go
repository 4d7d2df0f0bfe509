// Package broadcast fans seat events out to the viewers of a route.  A Hub
// keeps one subscriber group per route, created on the first join and
// removed when the last member leaves.  Delivery is best effort and
// at-most-once: nothing is persisted or replayed.
package broadcast

import (
	"context"
	"errors"
	"sync"

	"github.com/iliyamo/seatly/internal/model"
)

// ErrHubClosed is returned by Subscribe after Close.
var ErrHubClosed = errors.New("broadcast: hub closed")

type Hub struct {
	mu     sync.RWMutex
	groups map[string]map[*Client]struct{}
	joined map[*Client]map[string]struct{}
	closed bool
}

func NewHub() *Hub {
	return &Hub{
		groups: make(map[string]map[*Client]struct{}),
		joined: make(map[*Client]map[string]struct{}),
	}
}

// Subscribe adds c to the group of routeID.  Joining twice is a no-op.
func (h *Hub) Subscribe(c *Client, routeID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}
	g, ok := h.groups[routeID]
	if !ok {
		g = make(map[*Client]struct{})
		h.groups[routeID] = g
	}
	g[c] = struct{}{}
	routes, ok := h.joined[c]
	if !ok {
		routes = make(map[string]struct{})
		h.joined[c] = routes
	}
	routes[routeID] = struct{}{}
	return nil
}

// Unsubscribe removes c from the group of routeID.
func (h *Hub) Unsubscribe(c *Client, routeID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leave(c, routeID)
}

// UnsubscribeAll removes c from every group.  Transports call it when the
// connection goes away.
func (h *Hub) UnsubscribeAll(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for routeID := range h.joined[c] {
		h.leave(c, routeID)
	}
}

func (h *Hub) leave(c *Client, routeID string) {
	if g, ok := h.groups[routeID]; ok {
		delete(g, c)
		if len(g) == 0 {
			delete(h.groups, routeID)
		}
	}
	if routes, ok := h.joined[c]; ok {
		delete(routes, routeID)
		if len(routes) == 0 {
			delete(h.joined, c)
		}
	}
}

// Publish delivers ev to every current subscriber of routeID.  Slow
// subscribers lose the event; Publish never blocks on them.
func (h *Hub) Publish(ctx context.Context, routeID string, ev model.SeatEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.groups[routeID] {
		c.Send(ev)
	}
}

// Subscribers returns the size of routeID's group.
func (h *Hub) Subscribers(routeID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[routeID])
}

// Groups returns the number of routes with at least one subscriber.
func (h *Hub) Groups() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups)
}

// Close closes every subscribed client and rejects further subscriptions.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for c := range h.joined {
		c.Close()
	}
	h.groups = make(map[string]map[*Client]struct{})
	h.joined = make(map[*Client]map[string]struct{})
}

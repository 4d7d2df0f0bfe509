package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/net/websocket"

	"github.com/iliyamo/seatly/internal/broadcast"
	"github.com/iliyamo/seatly/internal/model"
)

// Socket protocol event names.
const (
	EventJoin        = "join:route"
	EventLeave       = "leave:route"
	EventJoined      = "joined"
	EventLeft        = "left"
	EventSeatUpdated = "seat:updated"
	EventError       = "error"
)

const writeTimeout = 10 * time.Second

// SocketMessage is the envelope used in both directions.
type SocketMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// RouteLookup validates route ids on join.
type RouteLookup interface {
	Route(ctx context.Context, id string) (model.Route, error)
}

// SocketHandler streams seat events to WebSocket clients.  A client joins
// one or more route rooms and receives every seat:updated event published
// for them.  Disconnecting only drops subscriptions; held seats stay held
// until released or expired.
type SocketHandler struct {
	Hub     *broadcast.Hub
	Routes  RouteLookup
	Origins []string
	Buffer  int
}

// NewSocketHandler returns a handler accepting browser connections from
// origins.  "*" allows any origin.
func NewSocketHandler(hub *broadcast.Hub, routes RouteLookup, origins []string, buffer int) *SocketHandler {
	if hub == nil || routes == nil {
		panic("nil dependency passed to NewSocketHandler")
	}
	return &SocketHandler{Hub: hub, Routes: routes, Origins: origins, Buffer: buffer}
}

// Serve handles GET /ws.
func (h *SocketHandler) Serve(c echo.Context) error {
	srv := websocket.Server{Handshake: h.handshake, Handler: h.session}
	srv.ServeHTTP(c.Response(), c.Request())
	return nil
}

func (h *SocketHandler) handshake(cfg *websocket.Config, r *http.Request) error {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return nil
	}
	for _, o := range h.Origins {
		if o == "*" || o == origin {
			var err error
			cfg.Origin, err = websocket.Origin(cfg, r)
			return err
		}
	}
	return errors.New("origin not allowed")
}

func (h *SocketHandler) session(ws *websocket.Conn) {
	defer ws.Close()
	client := broadcast.NewClient(uuid.NewString(), h.Buffer)
	defer func() {
		h.Hub.UnsubscribeAll(client)
		client.Close()
	}()

	var wmu sync.Mutex
	send := func(v outbound) error {
		wmu.Lock()
		defer wmu.Unlock()
		_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
		return websocket.JSON.Send(ws, v)
	}

	go func() {
		for {
			select {
			case ev := <-client.Events():
				if err := send(outbound{Event: EventSeatUpdated, Data: ev}); err != nil {
					_ = ws.Close()
					return
				}
			case <-client.Done():
				return
			}
		}
	}()

	ctx := ws.Request().Context()
	for {
		var msg SocketMessage
		if err := websocket.JSON.Receive(ws, &msg); err != nil {
			return
		}
		var routeID string
		if err := json.Unmarshal(msg.Data, &routeID); err != nil || routeID == "" {
			_ = send(outbound{Event: EventError, Data: "data must be a route id"})
			continue
		}
		switch msg.Event {
		case EventJoin:
			if _, err := h.Routes.Route(ctx, routeID); err != nil {
				_ = send(outbound{Event: EventError, Data: "route not found"})
				continue
			}
			if err := h.Hub.Subscribe(client, routeID); err != nil {
				log.Printf("socket: subscribe %s: %v", client.ID, err)
				return
			}
			_ = send(outbound{Event: EventJoined, Data: routeID})
		case EventLeave:
			h.Hub.Unsubscribe(client, routeID)
			_ = send(outbound{Event: EventLeft, Data: routeID})
		default:
			_ = send(outbound{Event: EventError, Data: "unknown event"})
		}
	}
}

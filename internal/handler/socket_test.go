package handler_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/net/websocket"

	"github.com/iliyamo/seatly/internal/handler"
	"github.com/iliyamo/seatly/internal/model"
)

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func dial(t *testing.T, srv *httptest.Server, origin string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	ws, err := websocket.Dial(url, "", origin)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func read(t *testing.T, ws *websocket.Conn) frame {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f frame
	if err := websocket.JSON.Receive(ws, &f); err != nil {
		t.Fatalf("receive: %v", err)
	}
	return f
}

func send(t *testing.T, ws *websocket.Conn, event, data string) {
	t.Helper()
	raw, _ := json.Marshal(data)
	if err := websocket.JSON.Send(ws, handler.SocketMessage{Event: event, Data: raw}); err != nil {
		t.Fatalf("send: %v", err)
	}
}

func TestSocketJoinReceivesSeatUpdates(t *testing.T) {
	v := newEnv(t)
	srv := httptest.NewServer(v.e)
	defer srv.Close()

	ws := dial(t, srv, "http://localhost:3000")
	send(t, ws, handler.EventJoin, route)
	if f := read(t, ws); f.Event != handler.EventJoined {
		t.Fatalf("expected joined, got %s", f.Event)
	}
	if n := v.hub.Subscribers(route); n != 1 {
		t.Fatalf("expected 1 subscriber, got %d", n)
	}

	if _, err := v.coord.Select(context.Background(), route, "B2", "alice"); err != nil {
		t.Fatal(err)
	}
	f := read(t, ws)
	if f.Event != handler.EventSeatUpdated {
		t.Fatalf("expected seat:updated, got %s", f.Event)
	}
	var ev model.SeatEvent
	if err := json.Unmarshal(f.Data, &ev); err != nil {
		t.Fatal(err)
	}
	if ev.SeatNumber != "B2" || ev.Status != model.SeatReserved || ev.RouteID != route {
		t.Fatalf("unexpected event: %+v", ev)
	}

	send(t, ws, handler.EventJoin, "nowhere")
	if f := read(t, ws); f.Event != handler.EventError {
		t.Fatalf("expected error for unknown route, got %s", f.Event)
	}
	send(t, ws, handler.EventLeave, route)
	if f := read(t, ws); f.Event != handler.EventLeft {
		t.Fatalf("expected left, got %s", f.Event)
	}
	if n := v.hub.Subscribers(route); n != 0 {
		t.Fatalf("expected 0 subscribers after leave, got %d", n)
	}
}

func TestSocketDisconnectKeepsReservations(t *testing.T) {
	v := newEnv(t)
	srv := httptest.NewServer(v.e)
	defer srv.Close()

	ws := dial(t, srv, "http://localhost:3000")
	send(t, ws, handler.EventJoin, route)
	read(t, ws)
	if _, err := v.coord.Select(context.Background(), route, "C1", "alice"); err != nil {
		t.Fatal(err)
	}
	_ = ws.Close()

	deadline := time.Now().Add(2 * time.Second)
	for v.hub.Subscribers(route) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription not dropped after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
	active, err := v.coord.ActiveReservations(context.Background(), route)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 || active[0].SeatNumber != "C1" {
		t.Fatalf("expected C1 still held, got %+v", active)
	}
}

func TestSocketRejectsForeignOrigin(t *testing.T) {
	v := newEnv(t)
	srv := httptest.NewServer(v.e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	if ws, err := websocket.Dial(url, "", "http://evil.example"); err == nil {
		_ = ws.Close()
		t.Fatal("expected handshake to fail for foreign origin")
	}
}

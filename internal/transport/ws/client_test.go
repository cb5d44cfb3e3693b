package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"eduslide-live/internal/app"
	"eduslide-live/internal/domain"
	"eduslide-live/internal/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func TestClientRelaysFramesAndReconnects(t *testing.T) {
	var connections atomic.Int32
	received := make(chan domain.Event, 4)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		n := connections.Add(1)

		var join domain.Event
		if err := conn.ReadJSON(&join); err != nil {
			return
		}
		received <- join

		_ = conn.WriteMessage(websocket.TextMessage, []byte("not json"))
		_ = conn.WriteJSON(map[string]any{"type": "slide_changed", "payload": map[string]int{"page_number": int(n)}})
		if n == 1 {
			// drop the first connection to force a redial
			return
		}
		_, _, _ = conn.ReadMessage()
	}))
	defer server.Close()

	client := Connect(Options{
		URL:             "ws" + strings.TrimPrefix(server.URL, "http"),
		InitialInterval: 5 * time.Millisecond,
		MaxInterval:     20 * time.Millisecond,
	}, logger.Discard())
	defer client.Close()

	ctx := context.Background()
	join := domain.Outbound{Type: "join_session", Payload: map[string]string{"session_code": "ABC123", "name": "ana"}}

	expect(t, client, app.EventConnect)
	if err := client.Emit(ctx, join); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if ev := expect(t, client, app.EventSlideChanged); string(ev.Payload) != `{"page_number":1}` {
		t.Fatalf("unexpected payload %s", ev.Payload)
	}
	expect(t, client, app.EventDisconnect)

	expect(t, client, app.EventConnect)
	if err := client.Emit(ctx, join); err != nil {
		t.Fatalf("emit after reconnect: %v", err)
	}
	if ev := expect(t, client, app.EventSlideChanged); string(ev.Payload) != `{"page_number":2}` {
		t.Fatalf("unexpected payload %s", ev.Payload)
	}

	for i := 0; i < 2; i++ {
		select {
		case got := <-received:
			if got.Type != "join_session" || string(got.Payload) != `{"name":"ana","session_code":"ABC123"}` {
				t.Fatalf("unexpected frame %+v", got)
			}
		case <-time.After(time.Second):
			t.Fatal("server did not receive join")
		}
	}
}

func TestClientCloseEndsStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	client := Connect(Options{URL: "ws" + strings.TrimPrefix(server.URL, "http")}, logger.Discard())
	expect(t, client, app.EventConnect)

	if err := client.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	for range client.Events() {
	}
	if err := client.Emit(context.Background(), domain.Outbound{Type: "x"}); err != domain.ErrClosed {
		t.Fatalf("expected closed, got %v", err)
	}
}

func TestClientEmitBeforeConnect(t *testing.T) {
	client := Connect(Options{
		URL:             "ws://127.0.0.1:1/nowhere",
		InitialInterval: time.Millisecond,
		MaxElapsed:      50 * time.Millisecond,
	}, logger.Discard())
	defer client.Close()

	if err := client.Emit(context.Background(), domain.Outbound{Type: "x"}); err != domain.ErrNotConnected {
		t.Fatalf("expected not connected, got %v", err)
	}
	select {
	case _, ok := <-client.Events():
		if ok {
			t.Fatal("expected no events from an unreachable server")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("client did not give up")
	}
}

func expect(t *testing.T, c *Client, typ string) domain.Event {
	t.Helper()
	select {
	case ev, ok := <-c.Events():
		if !ok {
			t.Fatalf("stream closed waiting for %s", typ)
		}
		if ev.Type != typ {
			t.Fatalf("expected %s, got %s", typ, ev.Type)
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", typ)
	}
	return domain.Event{}
}

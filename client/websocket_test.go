package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWSTransportStreamsEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		var req DebateRequest
		if err := conn.ReadJSON(&req); err != nil {
			t.Errorf("failed to read request: %v", err)
			return
		}
		if req.Claim != "cats are liquid" {
			t.Errorf("got claim %q", req.Claim)
		}

		conn.WriteJSON(StreamEvent{Type: EventStart, Claim: req.Claim})
		// A garbage frame must be dropped, not fatal.
		conn.WriteMessage(websocket.TextMessage, []byte("{not json"))
		conn.WriteJSON(StreamEvent{Type: EventMessage, Speaker: "pro", Message: "obviously", Round: 1})
		conn.WriteJSON(StreamEvent{Type: EventComplete, TotalExchanges: 1})
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
	}))
	defer srv.Close()

	tr := NewWSTransport(wsURL(srv))
	events := make(chan *StreamEvent, 16)
	handle, err := tr.Open(context.Background(), &DebateRequest{Claim: "cats are liquid"}, Handlers{
		OnEvent: func(ev *StreamEvent) { events <- ev },
	})
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer handle.Close()

	wantTypes := []string{EventStart, EventMessage, EventComplete}
	for i, want := range wantTypes {
		ev := collectEvent(t, events)
		if ev.Type != want {
			t.Fatalf("event %d: got type %q, want %q", i, ev.Type, want)
		}
	}

	// Normal close must not synthesize an error event.
	select {
	case ev := <-events:
		t.Fatalf("unexpected trailing event %q", ev.Type)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWSTransportDialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	tr := NewWSTransport(wsURL(srv))
	events := make(chan *StreamEvent, 1)
	handle, err := tr.Open(context.Background(), &DebateRequest{Claim: "x"}, Handlers{
		OnEvent: func(ev *StreamEvent) { events <- ev },
	})
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer handle.Close()

	if ev := collectEvent(t, events); ev.Type != EventError {
		t.Fatalf("got %q, want synthetic error event", ev.Type)
	}
}

func TestWSTransportRejectsEmptyClaim(t *testing.T) {
	tr := NewWSTransport("ws://127.0.0.1:0")
	if _, err := tr.Open(context.Background(), &DebateRequest{}, Handlers{}); err != ErrEmptyClaim {
		t.Errorf("got %v, want ErrEmptyClaim", err)
	}
}

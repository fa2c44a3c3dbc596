package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSSEDecoderSplitAcrossChunks(t *testing.T) {
	dec := &sseDecoder{}

	got := dec.feed([]byte(`data: {"type":"mess`))
	if len(got) != 0 {
		t.Fatalf("partial line must not be parsed prematurely, got %d payloads", len(got))
	}

	got = dec.feed([]byte(`age","speaker":"pro","message":"hi"}` + "\n"))
	if len(got) != 1 {
		t.Fatalf("expected exactly one payload after completing the line, got %d", len(got))
	}

	ev, err := DecodeEvent(got[0])
	if err != nil {
		t.Fatalf("payload did not decode: %v", err)
	}
	if ev.Type != EventMessage || ev.Message != "hi" {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestSSEDecoderMultipleLinesPerChunk(t *testing.T) {
	dec := &sseDecoder{}
	chunk := "data: {\"type\":\"start\",\"claim\":\"x\"}\n" +
		"\n" +
		"event: noise\n" +
		"data: {\"type\":\"complete\"}\r\n" +
		"data: {\"type\":\"trunc" // trailing partial, carried over

	got := dec.feed([]byte(chunk))
	if len(got) != 2 {
		t.Fatalf("expected 2 payloads, got %d", len(got))
	}
	if got := dec.feed([]byte("ated\"}\n")); len(got) != 1 {
		t.Fatalf("carried-over partial line should complete to 1 payload, got %d", len(got))
	}
}

func sseLine(t *testing.T, ev StreamEvent) string {
	t.Helper()
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return "data: " + string(data) + "\n"
}

func collectEvent(t *testing.T, events <-chan *StreamEvent) *StreamEvent {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestSSETransportStreamsEventsInOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/debate/run-stream" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fl := w.(http.Flusher)
		for _, ev := range []StreamEvent{
			{Type: EventStart, Claim: "pineapple belongs on pizza"},
			{Type: EventMessage, Speaker: "pro", Message: "yes", Round: 1},
			{Type: EventMessage, Speaker: "con", Message: "no", Round: 2},
			{Type: EventComplete, TotalExchanges: 2},
		} {
			fmt.Fprint(w, sseLine(t, ev))
			fl.Flush()
		}
	}))
	defer srv.Close()

	tr := NewSSETransport(srv.URL)
	events := make(chan *StreamEvent, 16)
	handle, err := tr.Open(context.Background(), &DebateRequest{Claim: "pineapple belongs on pizza"}, Handlers{
		OnEvent: func(ev *StreamEvent) { events <- ev },
	})
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer handle.Close()

	wantTypes := []string{EventStart, EventMessage, EventMessage, EventComplete}
	for i, want := range wantTypes {
		ev := collectEvent(t, events)
		if ev.Type != want {
			t.Fatalf("event %d: got type %q, want %q", i, ev.Type, want)
		}
	}
}

func TestSSETransportDropsUndecodableFrames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fl := w.(http.Flusher)
		fmt.Fprint(w, sseLine(t, StreamEvent{Type: EventStart, Claim: "x"}))
		fmt.Fprint(w, "data: {broken json\n")
		fmt.Fprint(w, sseLine(t, StreamEvent{Type: EventComplete}))
		fl.Flush()
	}))
	defer srv.Close()

	tr := NewSSETransport(srv.URL)
	events := make(chan *StreamEvent, 16)
	handle, err := tr.Open(context.Background(), &DebateRequest{Claim: "x"}, Handlers{
		OnEvent: func(ev *StreamEvent) { events <- ev },
	})
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer handle.Close()

	if ev := collectEvent(t, events); ev.Type != EventStart {
		t.Fatalf("got %q, want start", ev.Type)
	}
	// The broken frame is dropped, not surfaced as an error event.
	if ev := collectEvent(t, events); ev.Type != EventComplete {
		t.Fatalf("got %q, want complete", ev.Type)
	}
}

func TestSSETransportConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	tr := NewSSETransport(srv.URL)
	events := make(chan *StreamEvent, 16)
	handle, err := tr.Open(context.Background(), &DebateRequest{Claim: "x"}, Handlers{
		OnEvent: func(ev *StreamEvent) { events <- ev },
	})
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer handle.Close()

	ev := collectEvent(t, events)
	if ev.Type != EventError {
		t.Fatalf("got %q, want synthetic error event", ev.Type)
	}

	select {
	case extra := <-events:
		t.Fatalf("expected no events after terminal error, got %q", extra.Type)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSSETransportCloseStopsDelivery(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fl := w.(http.Flusher)
		fmt.Fprint(w, sseLine(t, StreamEvent{Type: EventStart, Claim: "x"}))
		fl.Flush()
		<-release
		fmt.Fprint(w, sseLine(t, StreamEvent{Type: EventMessage, Speaker: "pro", Message: "late"}))
		fl.Flush()
	}))
	defer srv.Close()
	defer close(release)

	tr := NewSSETransport(srv.URL)
	events := make(chan *StreamEvent, 16)
	handle, err := tr.Open(context.Background(), &DebateRequest{Claim: "x"}, Handlers{
		OnEvent: func(ev *StreamEvent) { events <- ev },
	})
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	if ev := collectEvent(t, events); ev.Type != EventStart {
		t.Fatalf("got %q, want start", ev.Type)
	}

	handle.Close()
	handle.Close() // idempotent

	release <- struct{}{}
	select {
	case ev := <-events:
		t.Fatalf("received event %q after close", ev.Type)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestSSETransportRejectsEmptyClaim(t *testing.T) {
	tr := NewSSETransport("http://127.0.0.1:0")
	if _, err := tr.Open(context.Background(), &DebateRequest{Claim: "  "}, Handlers{}); err != ErrEmptyClaim {
		t.Errorf("got %v, want ErrEmptyClaim", err)
	}
}

func TestRunOnceSynthesizesCompleteEvent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/debate/run" {
			http.NotFound(w, r)
			return
		}
		var req DebateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		json.NewEncoder(w).Encode(runResponse{
			Claim:          req.Claim,
			TotalExchanges: 2,
			ConversationHistory: []HistoryEntry{
				{Speaker: "Proponent", Response: "yes", Round: 1},
				{Speaker: "Opponent", Response: "no", Round: 2},
			},
			Success: true,
		})
	}))
	defer srv.Close()

	tr := NewSSETransport(srv.URL)
	ev, err := tr.RunOnce(context.Background(), &DebateRequest{Claim: "x", MaxRounds: 2})
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if ev.Type != EventComplete {
		t.Errorf("got type %q, want complete", ev.Type)
	}
	if len(ev.ConversationHistory) != 2 || ev.TotalExchanges != 2 {
		t.Errorf("unexpected history: %+v", ev)
	}
}

func TestRunOnceUnsuccessfulResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(runResponse{Success: false})
	}))
	defer srv.Close()

	tr := NewSSETransport(srv.URL)
	if _, err := tr.RunOnce(context.Background(), &DebateRequest{Claim: "x"}); err == nil {
		t.Error("expected error for unsuccessful run")
	}
}

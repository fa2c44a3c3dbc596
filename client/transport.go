package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ErrEmptyClaim is returned when a request is opened without a claim.
var ErrEmptyClaim = errors.New("debate claim must not be empty")

// Handlers receives decoded events from a transport, one at a time, in
// arrival order.
type Handlers struct {
	OnEvent func(*StreamEvent)
}

// Handle controls one open stream. Close releases the underlying
// connection, is safe to call multiple times, and suppresses delivery of
// any events still in flight.
type Handle interface {
	Close()
}

// Transport opens a logical debate event stream. Connection
// establishment is asynchronous: Open returns a handle immediately and
// connection failures arrive as a synthetic error event.
type Transport interface {
	Open(ctx context.Context, req *DebateRequest, h Handlers) (Handle, error)
}

// FallbackRunner performs a single request/response debate call for when
// streaming cannot be established.
type FallbackRunner interface {
	RunOnce(ctx context.Context, req *DebateRequest) (*StreamEvent, error)
}

// streamHandle is the shared handle implementation for both transports.
type streamHandle struct {
	mu     sync.Mutex
	closed bool
	stop   func()
}

func (s *streamHandle) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	stop := s.stop
	s.mu.Unlock()
	if stop != nil {
		stop()
	}
}

// bind attaches the connection teardown. If the handle was closed before
// the connection existed, the teardown runs immediately.
func (s *streamHandle) bind(stop func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		stop()
		return
	}
	s.stop = stop
	s.mu.Unlock()
}

func (s *streamHandle) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// deliver hands an event to the handlers unless the handle is closed.
// Reports whether delivery happened.
func (s *streamHandle) deliver(h Handlers, ev *StreamEvent) bool {
	if s.isClosed() {
		return false
	}
	if h.OnEvent != nil {
		h.OnEvent(ev)
	}
	return true
}

// sseDecoder splits a raw byte stream into the JSON payloads of complete
// "data: " lines. A trailing line with no terminating newline is carried
// over until a later chunk completes it.
type sseDecoder struct {
	buf []byte
}

const ssePrefix = "data: "

// feed appends one chunk and returns the payload of every complete data
// line accumulated so far. Blank lines and lines without the data prefix
// are skipped.
func (d *sseDecoder) feed(chunk []byte) [][]byte {
	d.buf = append(d.buf, chunk...)

	var payloads [][]byte
	for {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			return payloads
		}
		line := bytes.TrimSuffix(d.buf[:i], []byte("\r"))
		rest := make([]byte, len(d.buf)-i-1)
		copy(rest, d.buf[i+1:])
		d.buf = rest

		if !bytes.HasPrefix(line, []byte(ssePrefix)) {
			continue
		}
		payload := bytes.TrimSpace(line[len(ssePrefix):])
		if len(payload) == 0 {
			continue
		}
		payloads = append(payloads, payload)
	}
}

// SSETransport streams debate events from the chunked run-stream
// endpoint and doubles as the non-streaming fallback runner.
type SSETransport struct {
	BaseURL string
	Client  *http.Client
}

// NewSSETransport creates a transport pointing at the backend base URL,
// e.g. http://127.0.0.1:8000.
func NewSSETransport(baseURL string) *SSETransport {
	return &SSETransport{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{},
	}
}

func (t *SSETransport) Open(ctx context.Context, req *DebateRequest, h Handlers) (Handle, error) {
	if req == nil || strings.TrimSpace(req.Claim) == "" {
		return nil, ErrEmptyClaim
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode debate request: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	handle := &streamHandle{stop: cancel}
	go t.run(ctx, handle, body, h)
	return handle, nil
}

func (t *SSETransport) run(ctx context.Context, handle *streamHandle, body []byte, h Handlers) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.BaseURL+"/debate/run-stream", bytes.NewReader(body))
	if err != nil {
		handle.deliver(h, syntheticError("invalid stream request: "+err.Error()))
		return
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := t.Client.Do(httpReq)
	if err != nil {
		if handle.isClosed() {
			return
		}
		handle.deliver(h, syntheticError("connection failed: "+err.Error()))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		handle.deliver(h, syntheticError(fmt.Sprintf("stream request rejected: status %d", resp.StatusCode)))
		return
	}

	dec := &sseDecoder{}
	chunk := make([]byte, 4096)
	for {
		n, readErr := resp.Body.Read(chunk)
		if n > 0 {
			for _, payload := range dec.feed(chunk[:n]) {
				ev, decErr := DecodeEvent(payload)
				if decErr != nil {
					log.Printf("sse: dropping undecodable frame: %v", decErr)
					continue
				}
				if !handle.deliver(h, ev) {
					return
				}
			}
		}
		if readErr != nil {
			if readErr == io.EOF || handle.isClosed() {
				return
			}
			handle.deliver(h, syntheticError("stream read failed: "+readErr.Error()))
			return
		}
	}
}

// runResponse is the body of the non-streaming run endpoint.
type runResponse struct {
	Claim               string         `json:"claim"`
	TotalExchanges      int            `json:"total_exchanges"`
	ConversationHistory []HistoryEntry `json:"conversation_history"`
	Success             bool           `json:"success"`
}

// RunOnce performs the single request/response debate call and
// synthesizes the terminal complete event from the response body.
func (t *SSETransport) RunOnce(ctx context.Context, req *DebateRequest) (*StreamEvent, error) {
	if req == nil || strings.TrimSpace(req.Claim) == "" {
		return nil, ErrEmptyClaim
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode debate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.BaseURL+"/debate/run", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("debate run failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("debate run rejected: status %d", resp.StatusCode)
	}

	var r runResponse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode run response: %w", err)
	}
	if !r.Success {
		return nil, errors.New("backend reported an unsuccessful debate run")
	}

	return &StreamEvent{
		Type:                EventComplete,
		Claim:               r.Claim,
		ConversationHistory: r.ConversationHistory,
		TotalExchanges:      r.TotalExchanges,
		Timestamp:           time.Now().Format(time.RFC3339),
	}, nil
}

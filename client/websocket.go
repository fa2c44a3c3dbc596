package client

import (
	"context"
	"log"
	"strings"

	"github.com/gorilla/websocket"
)

// WSTransport streams debate events over a WebSocket connection. The
// debate request is sent as the first message after the dial; every
// subsequent server message is one JSON-encoded StreamEvent.
type WSTransport struct {
	URL    string
	Dialer *websocket.Dialer
}

// NewWSTransport creates a transport for the given ws:// or wss://
// endpoint.
func NewWSTransport(url string) *WSTransport {
	return &WSTransport{
		URL:    url,
		Dialer: websocket.DefaultDialer,
	}
}

func (t *WSTransport) Open(ctx context.Context, req *DebateRequest, h Handlers) (Handle, error) {
	if req == nil || strings.TrimSpace(req.Claim) == "" {
		return nil, ErrEmptyClaim
	}

	ctx, cancel := context.WithCancel(ctx)
	handle := &streamHandle{stop: cancel}
	go t.run(ctx, cancel, handle, req, h)
	return handle, nil
}

func (t *WSTransport) run(ctx context.Context, cancel context.CancelFunc, handle *streamHandle, req *DebateRequest, h Handlers) {
	conn, resp, err := t.Dialer.DialContext(ctx, t.URL, nil)
	if err != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		if handle.isClosed() {
			return
		}
		handle.deliver(h, syntheticError("connection failed: "+err.Error()))
		return
	}

	// From here on Close tears down the socket as well as the context,
	// which unblocks any pending read.
	handle.bind(func() {
		cancel()
		conn.Close()
	})
	defer conn.Close()

	if err := conn.WriteJSON(req); err != nil {
		handle.deliver(h, syntheticError("failed to send debate request: "+err.Error()))
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if handle.isClosed() {
				return
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			handle.deliver(h, syntheticError("websocket read failed: "+err.Error()))
			return
		}

		ev, decErr := DecodeEvent(data)
		if decErr != nil {
			log.Printf("ws: dropping undecodable message: %v", decErr)
			continue
		}
		if !handle.deliver(h, ev) {
			return
		}
	}
}

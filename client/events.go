package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Speaker identifies which side of the debate produced a turn.
type Speaker string

const (
	SpeakerPro Speaker = "pro"
	SpeakerCon Speaker = "con"
)

// Event types carried in the "type" field of a StreamEvent.
const (
	EventStart    = "start"
	EventMessage  = "message"
	EventComplete = "complete"
	EventError    = "error"
)

// ErrMalformedEvent marks a well-formed JSON frame that is missing
// required fields for its event type.
var ErrMalformedEvent = errors.New("malformed event")

// StreamEvent is one decoded unit of the debate event stream. Fields are
// populated depending on Type: start carries Claim, message carries
// Speaker/Message/Round/Timestamp, complete may carry the canonical
// ConversationHistory, error carries Message.
type StreamEvent struct {
	Type                string         `json:"type"`
	Claim               string         `json:"claim,omitempty"`
	Speaker             string         `json:"speaker,omitempty"`
	Message             string         `json:"message,omitempty"`
	Round               int            `json:"round,omitempty"`
	Timestamp           string         `json:"timestamp,omitempty"`
	ConversationHistory []HistoryEntry `json:"conversation_history,omitempty"`
	TotalExchanges      int            `json:"total_exchanges,omitempty"`
}

// HistoryEntry is one turn of the canonical history carried by a complete
// event or the non-streaming run response.
type HistoryEntry struct {
	Speaker  string `json:"speaker"`
	Response string `json:"response"`
	Round    int    `json:"round"`
}

// DebateRequest is the debate-start request sent to the backend.
type DebateRequest struct {
	Claim        string `json:"claim"`
	MaxRounds    int    `json:"max_rounds"`
	IncludeAudio bool   `json:"include_audio"`
	ProVoice     string `json:"pro_voice,omitempty"`
	ConVoice     string `json:"con_voice,omitempty"`
	DebateMode   string `json:"debate_mode,omitempty"`
}

// DecodeEvent parses one raw frame into a StreamEvent. Unknown event
// types are rejected so untyped payloads never cross the transport
// boundary.
func DecodeEvent(data []byte) (*StreamEvent, error) {
	var ev StreamEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	switch ev.Type {
	case EventStart, EventMessage, EventComplete, EventError:
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformedEvent, ev.Type)
	}
	return &ev, nil
}

// Validate checks the type-specific required fields. A message event
// must carry both a speaker and non-empty text.
func (e *StreamEvent) Validate() error {
	if e.Type == EventMessage {
		if e.Speaker == "" {
			return fmt.Errorf("%w: message without speaker", ErrMalformedEvent)
		}
		if strings.TrimSpace(e.Message) == "" {
			return fmt.Errorf("%w: message without text", ErrMalformedEvent)
		}
	}
	return nil
}

// NormalizeSpeaker maps a backend speaker label onto one of the two
// debate sides. Labels synonymous with the proponent map to SpeakerPro;
// every other label, recognized or not, maps to SpeakerCon so history
// entries are never dropped.
func NormalizeSpeaker(label string) Speaker {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "pro", "proponent":
		return SpeakerPro
	}
	return SpeakerCon
}

// parseEventTime parses a message timestamp, falling back to receipt
// time when the field is absent or unparseable.
func parseEventTime(ts string) time.Time {
	if ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			return t
		}
	}
	return time.Now()
}

func syntheticError(msg string) *StreamEvent {
	return &StreamEvent{Type: EventError, Message: msg}
}

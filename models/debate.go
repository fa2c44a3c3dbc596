package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DebateRequest is the body of the debate start endpoints.
type DebateRequest struct {
	Claim        string `json:"claim"`
	MaxRounds    int    `json:"max_rounds"`
	IncludeAudio bool   `json:"include_audio"`
	ProVoice     string `json:"pro_voice"`
	ConVoice     string `json:"con_voice"`
	DebateMode   string `json:"debate_mode"`
}

// HistoryEntry is one generated turn in a debate's conversation history.
type HistoryEntry struct {
	Speaker   string `json:"speaker" bson:"speaker"`
	Response  string `json:"response" bson:"response"`
	Round     int    `json:"round" bson:"round"`
	ShowText  bool   `json:"show_text,omitempty" bson:"showText,omitempty"`
	PlayAudio bool   `json:"play_audio,omitempty" bson:"playAudio,omitempty"`
}

// StreamEvent is one unit of the debate event stream as emitted by the
// server, over SSE or WebSocket.
type StreamEvent struct {
	Type                string         `json:"type"`
	DebateID            string         `json:"debate_id,omitempty"`
	Claim               string         `json:"claim,omitempty"`
	Speaker             string         `json:"speaker,omitempty"`
	Message             string         `json:"message,omitempty"`
	Round               int            `json:"round,omitempty"`
	Timestamp           string         `json:"timestamp,omitempty"`
	ConversationHistory []HistoryEntry `json:"conversation_history,omitempty"`
	TotalExchanges      int            `json:"total_exchanges,omitempty"`
}

// DebateRecord is a completed debate persisted for transcript retrieval.
type DebateRecord struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Claim          string             `json:"claim" bson:"claim"`
	MaxRounds      int                `json:"maxRounds" bson:"maxRounds"`
	DebateMode     string             `json:"debateMode" bson:"debateMode"`
	History        []HistoryEntry     `json:"history" bson:"history"`
	TotalExchanges int                `json:"totalExchanges" bson:"totalExchanges"`
	CreatedAt      time.Time          `json:"createdAt" bson:"createdAt"`
}

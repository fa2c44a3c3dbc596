package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"claimscope/config"
	"claimscope/db"
	"claimscope/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Speaker labels used in conversation history entries and wire events.
const (
	ProLabel = "Proponent"
	ConLabel = "Opponent"

	ProWire = "pro"
	ConWire = "con"
)

// Debate modes accepted in requests.
const (
	ModeTextOnly = "text_only"
	ModeBoth     = "both"
)

const (
	defaultMaxRounds = 4
	maxRoundsCap     = 12
)

// Voices is the enumerated set of voice identifiers accepted for audio
// playback.
var Voices = []string{"Rachel", "Adam", "Bella", "Josh"}

const (
	defaultProVoice = "Rachel"
	defaultConVoice = "Adam"
)

// Generator produces one model response for a prompt.
type Generator func(ctx context.Context, prompt string) (string, error)

// DebateEngine generates alternating pro/con debate turns for a claim.
type DebateEngine struct {
	generate Generator
}

// Global engine instance, wired to Gemini by InitDebateService.
var debateEngine *DebateEngine

// InitDebateService initializes the Gemini client and the shared debate
// engine using the API key and model from the config.
func InitDebateService(cfg *config.Config) error {
	client, err := initGemini(cfg.Gemini.ApiKey)
	if err != nil {
		return fmt.Errorf("failed to initialize gemini client: %w", err)
	}
	geminiClient = client
	if cfg.Gemini.Model != "" {
		geminiModel = cfg.Gemini.Model
	}
	debateEngine = NewDebateEngine()
	return nil
}

// Engine returns the shared debate engine.
func Engine() *DebateEngine {
	return debateEngine
}

// SetEngine replaces the shared engine. Used by tests.
func SetEngine(e *DebateEngine) {
	debateEngine = e
}

// NewDebateEngine creates an engine backed by the shared Gemini client.
func NewDebateEngine() *DebateEngine {
	return &DebateEngine{generate: generateDefaultModelText}
}

// NewDebateEngineWithGenerator creates an engine with a custom text
// generator. Used by tests and alternative model providers.
func NewDebateEngineWithGenerator(g Generator) *DebateEngine {
	return &DebateEngine{generate: g}
}

// ValidateRequest normalizes a debate request in place, applying
// defaults and rejecting values outside the accepted sets.
func ValidateRequest(req *models.DebateRequest) error {
	req.Claim = strings.TrimSpace(req.Claim)
	if req.Claim == "" {
		return fmt.Errorf("claim is required")
	}
	if req.MaxRounds <= 0 {
		req.MaxRounds = defaultMaxRounds
	}
	if req.MaxRounds > maxRoundsCap {
		req.MaxRounds = maxRoundsCap
	}
	if req.DebateMode == "" {
		req.DebateMode = ModeBoth
	}
	if req.DebateMode != ModeTextOnly && req.DebateMode != ModeBoth {
		return fmt.Errorf("invalid debate_mode %q", req.DebateMode)
	}
	if req.ProVoice == "" {
		req.ProVoice = defaultProVoice
	}
	if req.ConVoice == "" {
		req.ConVoice = defaultConVoice
	}
	if !validVoice(req.ProVoice) {
		return fmt.Errorf("unknown pro_voice %q", req.ProVoice)
	}
	if !validVoice(req.ConVoice) {
		return fmt.Errorf("unknown con_voice %q", req.ConVoice)
	}
	return nil
}

func validVoice(name string) bool {
	for _, v := range Voices {
		if v == name {
			return true
		}
	}
	return false
}

// EmitFunc receives debate events in generation order. Returning an
// error aborts the run (e.g. the client went away).
type EmitFunc func(models.StreamEvent) error

// RunStream generates the debate turn by turn, invoking emit for the
// start event, one message event per turn, and the terminal complete
// event carrying the canonical history. The proponent opens on round 1
// and the sides alternate; the round counter advances on every turn.
func (e *DebateEngine) RunStream(ctx context.Context, debateID string, req *models.DebateRequest, emit EmitFunc) ([]models.HistoryEntry, error) {
	if emit == nil {
		emit = func(models.StreamEvent) error { return nil }
	}

	if err := emit(models.StreamEvent{
		Type:     "start",
		DebateID: debateID,
		Claim:    req.Claim,
	}); err != nil {
		return nil, err
	}

	showText := req.DebateMode == ModeTextOnly || req.DebateMode == ModeBoth
	playAudio := req.IncludeAudio && req.DebateMode == ModeBoth

	var history []models.HistoryEntry
	for round := 1; round <= req.MaxRounds; round++ {
		label, wire := ConLabel, ConWire
		if round%2 == 1 {
			label, wire = ProLabel, ProWire
		}

		prompt := buildDebatePrompt(req.Claim, label, round, req.MaxRounds, history)
		text, err := e.generate(ctx, prompt)
		if err != nil {
			genErr := fmt.Errorf("failed to generate %s turn %d: %w", wire, round, err)
			emit(models.StreamEvent{
				Type:     "error",
				DebateID: debateID,
				Message:  genErr.Error(),
			})
			return history, genErr
		}

		entry := models.HistoryEntry{
			Speaker:   label,
			Response:  text,
			Round:     round,
			ShowText:  showText,
			PlayAudio: playAudio,
		}
		history = append(history, entry)

		if playAudio {
			Audio().MarkPlaying()
		}

		if err := emit(models.StreamEvent{
			Type:      "message",
			DebateID:  debateID,
			Speaker:   wire,
			Message:   text,
			Round:     round,
			Timestamp: time.Now().Format(time.RFC3339),
		}); err != nil {
			return history, err
		}
	}

	if err := emit(models.StreamEvent{
		Type:                "complete",
		DebateID:            debateID,
		ConversationHistory: history,
		TotalExchanges:      len(history),
	}); err != nil {
		return history, err
	}
	return history, nil
}

// Run generates the full debate without streaming.
func (e *DebateEngine) Run(ctx context.Context, req *models.DebateRequest) ([]models.HistoryEntry, error) {
	return e.RunStream(ctx, "", req, nil)
}

// SaveCompletedDebate persists a finished run when a database is
// configured. Persistence failures are logged, never surfaced to the
// stream.
func SaveCompletedDebate(debateID string, req *models.DebateRequest, history []models.HistoryEntry) {
	if !db.Connected() {
		return
	}
	record := &models.DebateRecord{
		Claim:          req.Claim,
		MaxRounds:      req.MaxRounds,
		DebateMode:     req.DebateMode,
		History:        history,
		TotalExchanges: len(history),
	}
	if debateID != "" {
		if oid, err := primitive.ObjectIDFromHex(debateID); err == nil {
			record.ID = oid
		}
	}
	if _, err := db.SaveDebateRecord(record); err != nil {
		log.Printf("failed to persist debate transcript: %v", err)
	}
}

// buildDebatePrompt assembles the per-turn prompt: claim, round
// position, and the exchanges so far, with instructions keeping the
// model concise and responsive to the opponent.
func buildDebatePrompt(claim, position string, round, maxRounds int, history []models.HistoryEntry) string {
	var sb strings.Builder
	if len(history) > 0 {
		sb.WriteString("Previous exchanges:\n")
		for _, entry := range history {
			sb.WriteString(fmt.Sprintf("%s: %s\n", entry.Speaker, entry.Response))
		}
	}

	stance := "in favor of"
	if position == ConLabel {
		stance = "against"
	}

	return fmt.Sprintf(`You are the %s in a structured debate, arguing %s the claim.

DEBATE TOPIC: %q

ROUND: %d/%d

%s
INSTRUCTIONS:
1. State only your facts and reasoning; keep sycophancy minimal.
2. Address any points made by the opposing side.
3. Be extremely concise and cite evidence where possible.

Your %s response:`,
		position, stance, claim, round, maxRounds, sb.String(), position)
}

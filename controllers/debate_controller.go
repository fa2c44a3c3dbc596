package controllers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"claimscope/db"
	"claimscope/internal/relay"
	"claimscope/models"
	"claimscope/services"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DebateRunResponse is the body of the non-streaming run endpoint.
type DebateRunResponse struct {
	Claim               string                `json:"claim"`
	TotalExchanges      int                   `json:"total_exchanges"`
	ConversationHistory []models.HistoryEntry `json:"conversation_history"`
	Success             bool                  `json:"success"`
}

// RunDebate generates a full debate synchronously and returns the
// conversation history in one response.
func RunDebate(c *gin.Context) {
	var req models.DebateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	if err := services.ValidateRequest(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	debateID := primitive.NewObjectID().Hex()
	history, err := services.Engine().RunStream(c.Request.Context(), debateID, &req, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to run debate: " + err.Error()})
		return
	}

	services.SaveCompletedDebate(debateID, &req, history)
	c.JSON(http.StatusOK, DebateRunResponse{
		Claim:               req.Claim,
		TotalExchanges:      len(history),
		ConversationHistory: history,
		Success:             true,
	})
}

// RunDebateStream generates a debate and streams it as Server-Sent
// Events: one "data: {json}" line per event, flushed as it is produced.
func RunDebateStream(c *gin.Context) {
	var req models.DebateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	if err := services.ValidateRequest(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	debateID := primitive.NewObjectID().Hex()
	log.Printf("debate %s stream started: %q", debateID, req.Claim)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)

	flusher, _ := c.Writer.(http.Flusher)
	emit := func(ev models.StreamEvent) error {
		if relay.Available() {
			if err := relay.PublishEvent(debateID, &ev); err != nil {
				log.Printf("failed to relay event for debate %s: %v", debateID, err)
			}
		}
		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(c.Writer, "data: %s\n", data); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	}

	history, err := services.Engine().RunStream(c.Request.Context(), debateID, &req, emit)
	if err != nil {
		log.Printf("debate %s stream ended with error: %v", debateID, err)
		return
	}
	services.SaveCompletedDebate(debateID, &req, history)
}

// StopAudio halts any currently playing audio.
func StopAudio(c *gin.Context) {
	services.Audio().Stop()
	c.JSON(http.StatusOK, gin.H{"message": "Audio stopped successfully", "success": true})
}

// PauseAudio pauses currently playing audio.
func PauseAudio(c *gin.Context) {
	if err := services.Audio().Pause(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error(), "success": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Audio paused successfully", "success": true})
}

// ResumeAudio resumes paused audio.
func ResumeAudio(c *gin.Context) {
	if err := services.Audio().Resume(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error(), "success": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Audio resumed successfully", "success": true})
}

// TestAudioConnection reports audio controller readiness and the
// accepted voice set.
func TestAudioConnection(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "audio controller ready",
		"state":   services.Audio().State(),
		"voices":  services.Voices,
	})
}

// ListTranscripts returns recent persisted debates, newest first.
func ListTranscripts(c *gin.Context) {
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}

	records, err := db.ListDebateRecords(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transcripts": records})
}

// GetTranscript returns one persisted debate by ID.
func GetTranscript(c *gin.Context) {
	record, err := db.GetDebateRecord(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, record)
}

package websocket

import (
	"log"
	"net/http"
	"sync"
	"time"

	"claimscope/internal/relay"
	"claimscope/models"
	"claimscope/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var upgrader = websocket.Upgrader{
	// In production, adjust the CheckOrigin function to allow only trusted origins.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const requestReadTimeout = 30 * time.Second

// DebateStreamHandler runs a debate over a WebSocket connection. The
// client sends the debate request as its first message; the server
// answers with one JSON-encoded StreamEvent per message, ending with a
// complete or error event and a normal close.
func DebateStreamHandler(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(requestReadTimeout))
	var req models.DebateRequest
	if err := conn.ReadJSON(&req); err != nil {
		conn.WriteJSON(models.StreamEvent{Type: "error", Message: "invalid debate request: " + err.Error()})
		return
	}
	conn.SetReadDeadline(time.Time{})

	if err := services.ValidateRequest(&req); err != nil {
		conn.WriteJSON(models.StreamEvent{Type: "error", Message: err.Error()})
		return
	}

	debateID := primitive.NewObjectID().Hex()
	log.Printf("websocket debate %s started: %q", debateID, req.Claim)

	var writeMu sync.Mutex
	emit := func(ev models.StreamEvent) error {
		if relay.Available() {
			if err := relay.PublishEvent(debateID, &ev); err != nil {
				log.Printf("failed to relay event for debate %s: %v", debateID, err)
			}
		}
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(ev)
	}

	history, err := services.Engine().RunStream(c.Request.Context(), debateID, &req, emit)
	if err != nil {
		log.Printf("websocket debate %s aborted: %v", debateID, err)
		return
	}

	services.SaveCompletedDebate(debateID, &req, history)
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}

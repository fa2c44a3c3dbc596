package websocket

import (
	"log"
	"net/http"
	"sync"

	"claimscope/internal/relay"
	"claimscope/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// DebateHub manages spectator connections per debate, fed from the
// Redis relay so any server instance can serve watchers.
type DebateHub struct {
	mu    sync.RWMutex
	rooms map[string]*spectatorRoom
}

type spectatorRoom struct {
	debateID string
	mu       sync.RWMutex
	clients  map[*websocket.Conn]*spectator
	consumer *relay.Consumer
}

type spectator struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

var hub = NewDebateHub()

// NewDebateHub creates an empty hub.
func NewDebateHub() *DebateHub {
	return &DebateHub{rooms: make(map[string]*spectatorRoom)}
}

// Register adds a spectator connection for a debate, creating the room
// and starting its relay consumer on first join.
func (h *DebateHub) Register(debateID string, conn *websocket.Conn) {
	h.mu.Lock()
	room, exists := h.rooms[debateID]
	if !exists {
		room = &spectatorRoom{
			debateID: debateID,
			clients:  make(map[*websocket.Conn]*spectator),
			consumer: relay.NewConsumer(h),
		}
		h.rooms[debateID] = room
		if room.consumer != nil {
			if err := room.consumer.Start(debateID); err != nil {
				log.Printf("failed to start relay consumer for debate %s: %v", debateID, err)
			}
		}
	}
	h.mu.Unlock()

	room.mu.Lock()
	room.clients[conn] = &spectator{conn: conn}
	count := len(room.clients)
	room.mu.Unlock()

	log.Printf("spectator joined debate %s (%d connected)", debateID, count)
}

// Unregister removes a spectator connection, tearing the room down when
// the last one leaves.
func (h *DebateHub) Unregister(debateID string, conn *websocket.Conn) {
	h.mu.Lock()
	room, exists := h.rooms[debateID]
	if !exists {
		h.mu.Unlock()
		return
	}

	room.mu.Lock()
	delete(room.clients, conn)
	count := len(room.clients)
	room.mu.Unlock()

	if count == 0 {
		room.consumer.Stop()
		delete(h.rooms, debateID)
	}
	h.mu.Unlock()

	log.Printf("spectator left debate %s (%d connected)", debateID, count)
}

// BroadcastToDebate sends an event to every spectator of a debate.
// Connections that fail to write are dropped.
func (h *DebateHub) BroadcastToDebate(debateID string, event *models.StreamEvent) {
	h.mu.RLock()
	room, exists := h.rooms[debateID]
	h.mu.RUnlock()
	if !exists {
		return
	}

	room.mu.RLock()
	clients := make([]*spectator, 0, len(room.clients))
	for _, client := range room.clients {
		clients = append(clients, client)
	}
	room.mu.RUnlock()

	for _, client := range clients {
		client.writeMu.Lock()
		err := client.conn.WriteJSON(event)
		client.writeMu.Unlock()
		if err != nil {
			h.Unregister(debateID, client.conn)
			client.conn.Close()
		}
	}
}

// WatchDebateHandler upgrades a spectator connection and follows the
// debate's event stream until the client disconnects.
func WatchDebateHandler(c *gin.Context) {
	debateID := c.Param("id")
	if debateID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing debate id"})
		return
	}
	if !relay.Available() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "spectator mode requires redis"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	hub.Register(debateID, conn)
	defer func() {
		hub.Unregister(debateID, conn)
		conn.Close()
	}()

	// Spectators are read-only; the loop exists to observe disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

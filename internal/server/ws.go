package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/mudra/internal/pose"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// MatchesHandler broadcasts per-frame pose rankings via WebSocket.
// Rankings are pushed through Publish by the detection pipeline.
type MatchesHandler struct {
	clients map[*websocket.Conn]bool
	mu      sync.RWMutex
}

// NewMatchesHandler creates a MatchesHandler with no connected clients.
func NewMatchesHandler() *MatchesHandler {
	return &MatchesHandler{
		clients: make(map[*websocket.Conn]bool),
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *MatchesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Publish sends a ranking to all connected clients. Safe to call with no
// clients connected.
func (h *MatchesHandler) Publish(r pose.Ranking) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.clients) == 0 {
		return
	}

	msg, err := json.Marshal(map[string]any{
		"ranking":   r,
		"timestamp": time.Now().UnixMilli(),
	})
	if err != nil {
		return
	}

	for conn := range h.clients {
		conn.WriteMessage(websocket.TextMessage, msg)
	}
}

package handler

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/CageChen/inlineh/internal/site"
	"github.com/CageChen/inlineh/internal/watcher"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local preview
	},
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// RebuildPayload is sent to clients after each build attempt.
type RebuildPayload struct {
	Pages   int      `json:"pages"`
	Changed []string `json:"changed,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// WSHandler handles WebSocket connections for live reload
type WSHandler struct {
	clients map[*websocket.Conn]bool
	mu      sync.RWMutex

	// writeMu serializes writes; a conn allows one concurrent writer.
	writeMu sync.Mutex
}

// NewWSHandler creates a new WebSocket handler
func NewWSHandler() *WSHandler {
	return &WSHandler{
		clients: make(map[*websocket.Conn]bool),
	}
}

// HandleWS handles WebSocket upgrade and connection
func (h *WSHandler) HandleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer func() {
		h.removeClient(conn)
		_ = conn.Close()
	}()

	h.addClient(conn)

	// Keep connection alive until the client goes away
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			break
		}
	}
}

// OnRebuild tells clients a build finished. A failed build is reported
// with type "buildError" so pages are not reloaded into a broken state.
func (h *WSHandler) OnRebuild(events []watcher.Event, res *site.Result, buildErr error) {
	payload := RebuildPayload{}
	for _, e := range events {
		payload.Changed = append(payload.Changed, e.Type.String()+" "+e.Path)
	}

	msg := WSMessage{Type: "rebuild", Payload: &payload}
	if buildErr != nil {
		msg.Type = "buildError"
		payload.Error = buildErr.Error()
	} else if res != nil {
		payload.Pages = res.Pages
	}

	h.broadcast(msg)
}

// ClientCount returns the number of connected clients.
func (h *WSHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *WSHandler) addClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = true
}

func (h *WSHandler) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, conn)
}

func (h *WSHandler) broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	h.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	for _, client := range clients {
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			h.removeClient(client)
		}
	}
}

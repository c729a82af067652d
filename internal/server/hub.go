package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Hub fans live-ticker frames out to connected WebSocket clients.
type Hub struct {
	logger     *slog.Logger
	clients    map[*wsClient]bool
	broadcast  chan []byte
	register   chan *wsClient
	unregister chan *wsClient
	// shutdown is closed when Run returns so pump goroutines never
	// block on an unattended channel.
	shutdown chan struct{}
	mu       sync.RWMutex
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:     logger,
		clients:    make(map[*wsClient]bool),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		shutdown:   make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until done is closed, then
// disconnects every remaining client.
func (h *Hub) Run(done <-chan struct{}) {
	defer func() {
		close(h.shutdown)
		h.mu.Lock()
		for client := range h.clients {
			close(client.send)
			delete(h.clients, client)
		}
		h.mu.Unlock()
	}()
	for {
		select {
		case <-done:
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow or gone, drop it
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastTicker sends a typed ticker frame to every client.
func (h *Hub) BroadcastTicker(payload any) {
	frame, err := json.Marshal(map[string]any{"type": "ticker", "payload": payload})
	if err != nil {
		h.logger.Error("failed to marshal ticker frame", "error", err)
		return
	}
	select {
	case h.broadcast <- frame:
	default:
		h.logger.Warn("broadcast channel full, dropping ticker frame")
	}
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true }, // local dashboard
}

// handleWS upgrades the connection and pumps broadcast frames to it.
func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	client := &wsClient{conn: conn, send: make(chan []byte, 16)}
	select {
	case h.register <- client:
	case <-h.shutdown:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump(h)
}

func (c *wsClient) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump discards inbound frames; it exists to detect disconnects.
func (c *wsClient) readPump(h *Hub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.shutdown:
			// Run already released (or will release) this client
		}
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

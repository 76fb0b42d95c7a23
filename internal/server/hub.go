package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/FocuswithJustin/CanonScope/internal/logging"
	"github.com/FocuswithJustin/CanonScope/internal/pipeline"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Local analysis tool, not an internet-facing service.
		return true
	},
}

// Event is one progress update streamed to WebSocket clients.
type Event struct {
	// Type is "progress", "complete", or "error".
	Type string `json:"type"`

	// Progress is the pipeline snapshot behind this event.
	Progress pipeline.Progress `json:"progress"`

	// Error carries the failure message for "error" events.
	Error string `json:"error,omitempty"`

	// Timestamp is an RFC 3339 UTC timestamp.
	Timestamp string `json:"timestamp"`
}

// client is one WebSocket subscriber.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub fans pipeline progress out to WebSocket subscribers. Clients that
// cannot keep up are dropped rather than blocking the pipeline.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	done       chan struct{}
	mu         sync.RWMutex
}

// NewHub creates a hub. Call Run before publishing.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
	}
}

// Run handles registration and broadcasting until ctx is canceled.
// Connections arriving after Run returns are closed instead of left
// blocked on registration.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			n := len(h.clients)
			h.mu.Unlock()
			logging.Debug("ws_client_connected", "clients", n)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			logging.Debug("ws_client_disconnected", "clients", n)

		case message := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- message:
				default:
					// Slow client, disconnect.
					close(c.send)
					delete(h.clients, c)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Publish broadcasts an event to all subscribers. Events are dropped
// when the broadcast queue is full; progress is advisory.
func (h *Hub) Publish(event Event) {
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	data, err := json.Marshal(event)
	if err != nil {
		logging.Error("marshal progress event", "error", err.Error())
		return
	}
	select {
	case h.broadcast <- data:
	default:
		logging.Warn("broadcast queue full, dropping event")
	}
}

// PublishProgress broadcasts a pipeline snapshot as a "progress" event,
// or "complete" when the snapshot reports the done stage. Its signature
// matches pipeline.Options.Progress.
func (h *Hub) PublishProgress(p pipeline.Progress) {
	typ := "progress"
	if p.Stage == pipeline.StageDone {
		typ = "complete"
	}
	h.Publish(Event{Type: typ, Progress: p})
}

// PublishError broadcasts a run failure.
func (h *Hub) PublishError(runID string, err error) {
	h.Publish(Event{
		Type:     "error",
		Progress: pipeline.Progress{RunID: runID},
		Error:    err.Error(),
	})
}

// ServeWS upgrades the request and subscribes the connection to hub
// events.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error("websocket upgrade failed", "error", err.Error())
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, 256)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Error("websocket unexpected close", "error", err.Error())
			}
			break
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

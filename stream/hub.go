package stream

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// Hello is sent to each client when it connects.
type Hello struct {
	Type  string  `json:"type"`
	Width float64 `json:"w"`
	Depth float64 `json:"d"`
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// Hub fans frames out to every connected client. Publish never blocks the
// caller; frames are dropped while the broadcast queue is full.
type Hub struct {
	width, depth float64

	frames chan Frame

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHub creates a hub for a world of the given size.
func NewHub(width, depth float64) *Hub {
	return &Hub{
		width:   width,
		depth:   depth,
		frames:  make(chan Frame, 10),
		clients: make(map[*client]struct{}),
	}
}

// Publish queues a frame for broadcast. Returns false if it was dropped.
func (h *Hub) Publish(f Frame) bool {
	select {
	case h.frames <- f:
		return true
	default:
		return false
	}
}

// Run broadcasts queued frames until ctx is done, then disconnects all clients.
func (h *Hub) Run(ctx context.Context) {
	defer h.closeAll()
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-h.frames:
			h.broadcast(f)
		}
	}
}

func (h *Hub) broadcast(f Frame) {
	h.mu.Lock()
	list := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		list = append(list, c)
	}
	h.mu.Unlock()

	for _, c := range list {
		if err := c.send(f); err != nil {
			slog.Debug("stream_send_failed", "error", err)
			h.drop(c)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request to a websocket and keeps the client
// registered until it disconnects. Incoming messages are ignored.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("stream_upgrade_failed", "error", err)
		return
	}
	c := &client{conn: conn}
	if err := c.send(Hello{Type: "config", Width: h.width, Depth: h.depth}); err != nil {
		conn.Close()
		return
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.drop(c)
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		c.conn.Close()
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	list := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		list = append(list, c)
	}
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for _, c := range list {
		c.conn.Close()
	}
}

package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

// Hub tracks dashboard websocket clients and fans status messages out to them.
type Hub struct {
	log *slog.Logger

	mu         sync.RWMutex
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

// NewHub returns an idle hub; call Run to start it.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		log:        log,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 1),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run serves registrations and broadcasts until ctx is cancelled, then
// closes every client.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			return nil

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			h.log.Debug("websocket client registered", slog.String("remote", c.remote))

		case c := <-h.unregister:
			h.mu.Lock()
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
				h.log.Debug("websocket client unregistered", slog.String("remote", c.remote))
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Slow reader: drop it rather than stall the others.
					delete(h.clients, c)
					close(c.send)
					h.log.Warn("websocket client too slow, removed", slog.String("remote", c.remote))
				}
			}
			h.mu.Unlock()
		}
	}
}

// add registers c. It reports false once the hub has stopped.
func (h *Hub) add(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// remove unregisters c; a no-op once the hub has stopped.
func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues v, encoded as {"type": kind, "payload": v}, for every
// client. A message still waiting from the previous call is replaced, so
// callers never block.
func (h *Hub) Broadcast(kind string, v any) {
	msg, err := json.Marshal(map[string]any{"type": kind, "payload": v})
	if err != nil {
		h.log.Error("websocket broadcast marshal failed", slog.String("error", err.Error()))
		return
	}
	for {
		select {
		case h.broadcast <- msg:
			return
		default:
		}
		select {
		case <-h.broadcast:
		default:
		}
	}
}

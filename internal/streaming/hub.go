// Package streaming fans live pipeline outcomes out to SSE clients.
package streaming

import (
	"sync"
	"time"
)

// EventType represents the type of SSE event.
type EventType string

const (
	EventTypeOutcome   EventType = "outcome"
	EventTypeHeartbeat EventType = "heartbeat"
)

// Event is one server-sent event.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// OutcomeEvent mirrors a processed-file outcome for streaming clients.
type OutcomeEvent struct {
	Filename  string   `json:"filename"`
	FileType  string   `json:"fileType"`
	BackedUp  bool     `json:"backedUp"`
	Sanitized bool     `json:"sanitized"`
	FinalPath string   `json:"finalPath,omitempty"`
	Errors    []string `json:"errors,omitempty"`
}

// Client is one connected SSE consumer.
type Client struct {
	Events chan Event
}

// NewClient creates a client with a small buffer; the hub drops events for
// clients that fall behind rather than blocking the pipeline.
func NewClient() *Client {
	return &Client{Events: make(chan Event, 10)}
}

// Hub broadcasts events to all registered clients.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*Client]bool
	stopped  bool
	stopOnce sync.Once
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]bool)}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		close(client.Events)
		return
	}
	h.clients[client] = true
}

// Unregister removes a client and closes its channel.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		if !h.stopped {
			close(client.Events)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast delivers the event to every client that has buffer space. Slow
// clients miss events; the sender never blocks.
func (h *Hub) Broadcast(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.stopped {
		return
	}
	for client := range h.clients {
		select {
		case client.Events <- event:
		default:
		}
	}
}

// Stop closes all client channels exactly once. Broadcast and Register become
// no-ops afterwards.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.stopped = true
		for client := range h.clients {
			close(client.Events)
			delete(h.clients, client)
		}
	})
}

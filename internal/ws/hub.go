package ws

import (
	"sync"
)

// Hub tracks connected clients and fans pre-encoded frames out to them.
// The attach callback observes client-count transitions so the refresh
// loop can suspend itself when nobody is watching.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client

	onCountChange func(count int)
}

// NewHub creates an empty hub. onCountChange may be nil.
func NewHub(onCountChange func(count int)) *Hub {
	return &Hub{
		clients:       make(map[string]*Client),
		onCountChange: onCountChange,
	}
}

// Add registers a client.
func (h *Hub) Add(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	count := len(h.clients)
	h.mu.Unlock()

	if h.onCountChange != nil {
		h.onCountChange(count)
	}
}

// Remove deregisters a client. Safe to call more than once.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.ID)
	count := len(h.clients)
	h.mu.Unlock()

	if h.onCountChange != nil {
		h.onCountChange(count)
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends one pre-encoded frame to every connected client.
func (h *Hub) Broadcast(data []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if c.IsClosed() {
			continue
		}
		c.SendPreEncoded(data)
	}
}

// CloseAll disconnects every client, used during shutdown.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Close()
	}
}

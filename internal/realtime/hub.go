// internal/realtime/hub.go

package realtime

import (
	"errors"
	"log"
	"sync"
)

// ErrNotConnected is returned when a user has no live connection.
var ErrNotConnected = errors.New("user not connected")

// Hub is the concurrency-safe registry of live connections, one per user.
type Hub struct {
	clients map[int64]*Client
	mu      sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[int64]*Client),
	}
}

// Register records a user's live connection, closing any previous one for
// the same user.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	if old, exists := h.clients[client.userID]; exists {
		old.Close()
	}
	h.clients[client.userID] = client
	total := len(h.clients)
	h.mu.Unlock()

	liveConnections.Set(float64(total))
	log.Printf("user %d connected, %d live connections", client.userID, total)
}

// Unregister drops a user's connection if it is still the registered one.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	current, exists := h.clients[client.userID]
	if exists && current == client {
		delete(h.clients, client.userID)
		client.Close()
	}
	total := len(h.clients)
	h.mu.Unlock()

	if exists && current == client {
		liveConnections.Set(float64(total))
		log.Printf("user %d disconnected, %d live connections", client.userID, total)
	}
}

// Send queues a frame on the user's live connection. ErrNotConnected when
// there is none; a connection whose outbound queue is stuck is deregistered
// and the send reported as failed.
func (h *Hub) Send(userID int64, frame []byte) error {
	h.mu.RLock()
	client, exists := h.clients[userID]
	h.mu.RUnlock()

	if !exists {
		return ErrNotConnected
	}

	if err := client.trySend(frame); err != nil {
		h.Unregister(client)
		return err
	}
	return nil
}

// IsOnline reports whether a user has a live connection.
func (h *Hub) IsOnline(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, exists := h.clients[userID]
	return exists
}

// Shutdown closes every live connection.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, client := range h.clients {
		client.Close()
	}
	h.clients = make(map[int64]*Client)
	liveConnections.Set(0)
}

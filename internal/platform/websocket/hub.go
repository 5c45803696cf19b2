// Package websocket streams newly delivered notifications to connected
// clients. A connection belongs to the authenticated user and only ever
// receives that user's notifications.
package websocket

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/diaguide/diaguide/internal/platform/notification"
)

// EventNotification is the only event type sent today.
const EventNotification = "notification"

// Event is the JSON frame written to clients.
type Event struct {
	Type         string                     `json:"type"`
	Notification *notification.Notification `json:"notification"`
}

// Client is one open connection.
type Client struct {
	UserID uuid.UUID
	Send   chan []byte
}

// Hub tracks open connections per user.
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]map[*Client]struct{}
	logger  zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[uuid.UUID]map[*Client]struct{}),
		logger:  logger,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[c.UserID] == nil {
		h.clients[c.UserID] = make(map[*Client]struct{})
	}
	h.clients[c.UserID][c] = struct{}{}
}

// Unregister removes c and closes its Send channel. Calling it twice is a
// no-op.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.clients[c.UserID]
	if !ok {
		return
	}
	if _, ok := conns[c]; !ok {
		return
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(h.clients, c.UserID)
	}
	close(c.Send)
}

// Publish sends n to every connection of its recipient. Slow clients whose
// buffer is full miss the frame; the inbox still has it.
func (h *Hub) Publish(n *notification.Notification) {
	data, err := json.Marshal(Event{Type: EventNotification, Notification: n})
	if err != nil {
		h.logger.Error().Err(err).Msg("marshal live notification")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients[n.RecipientID] {
		select {
		case c.Send <- data:
		default:
			h.logger.Debug().Str("user_id", n.RecipientID.String()).Msg("live client buffer full")
		}
	}
}

// ClientCount returns the number of open connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, conns := range h.clients {
		n += len(conns)
	}
	return n
}

// UserCount returns the number of open connections for one user.
func (h *Hub) UserCount(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

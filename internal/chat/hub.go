package chat

import (
	"sync"
)

// Sender delivers an event to a single connection.
type Sender interface {
	Send(connectionID string, evt Outbound) bool
}

// Hub indexes live sessions by connection id so the router can address
// broadcast recipients resolved from the room registry.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{sessions: make(map[string]*Session)}
}

// Register adds a session.
func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[s.ID()] = s
}

// Unregister removes a session.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, s.ID())
}

// Send queues an event on the addressed session. Unknown connections are a
// normal race with disconnect and report false.
func (h *Hub) Send(connectionID string, evt Outbound) bool {
	h.mu.RLock()
	s, ok := h.sessions[connectionID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	return s.Send(evt)
}

// Count returns the number of live sessions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

package events

import (
	"time"

	"github.com/spec-kit/ticket-chat/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated  EventType = "ticket_created"
	EventMessageAdded   EventType = "ticket_message_added"
	EventStatusChanged  EventType = "ticket_status_changed"
	EventAgentAssigned  EventType = "ticket_agent_assigned"
	EventTicketClosed   EventType = "ticket_closed"
	EventMessagesMarked EventType = "ticket_messages_read"
)

// Event represents a domain event emitted by the realtime core.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id"`
	ActorID   string    `json:"actor_id,omitempty"`
	ActorName string    `json:"actor_name,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketNumber string                `json:"ticket_number"`
	Subject      string                `json:"subject"`
	Category     domain.TicketCategory `json:"category"`
	Priority     domain.TicketPriority `json:"priority"`
}

// MessageAddedPayload payload.
type MessageAddedPayload struct {
	MessageID   string            `json:"message_id"`
	SenderType  domain.SenderType `json:"sender_type"`
	BodyPreview string            `json:"body_preview"`
}

// StatusChangedPayload payload.
type StatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// AgentAssignedPayload payload.
type AgentAssignedPayload struct {
	AgentID   string `json:"agent_id"`
	AgentName string `json:"agent_name"`
}

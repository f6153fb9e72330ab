package chat

import (
	"encoding/json"
	"time"

	"github.com/spec-kit/ticket-chat/internal/domain"
)

// Inbound event names.
const (
	EventJoinTicket   = "join_ticket"
	EventLeaveTicket  = "leave_ticket"
	EventSendMessage  = "send_message"
	EventTyping       = "typing"
	EventStatusChange = "ticket_status_change"
	EventAssignAgent  = "assign_agent"
	EventMarkAsRead   = "mark_as_read"
)

// Outbound event names.
const (
	EventMessageReceived = "message_received"
	EventTypingIndicator = "typing_indicator"
	EventTicketUpdated   = "ticket_updated"
	EventTicketDeleted   = "ticket_deleted"
	EventUserJoined      = "user_joined"
	EventUserLeft        = "user_left"
	EventAgentAssigned   = "agent_assigned"
	EventMessagesRead    = "messages_read"
	EventError           = "error"
)

// Envelope frames every inbound message. The data shape depends on the
// event name; payloads are decoded into the matching struct below rather
// than into a free-form map.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Outbound frames every message sent to a client.
type Outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// JoinTicketPayload is the join_ticket event body.
type JoinTicketPayload struct {
	TicketID string `json:"ticketId"`
	UserID   string `json:"userId"`
	UserType string `json:"userType"`
	UserName string `json:"userName"`
}

// LeaveTicketPayload is the leave_ticket event body.
type LeaveTicketPayload struct {
	TicketID string `json:"ticketId"`
	UserID   string `json:"userId"`
}

// SendMessagePayload is the send_message event body.
type SendMessagePayload struct {
	TicketID    string              `json:"ticketId"`
	SenderID    string              `json:"senderId"`
	SenderType  string              `json:"senderType"`
	SenderName  string              `json:"senderName"`
	Content     string              `json:"content"`
	Attachments []domain.Attachment `json:"attachments,omitempty"`
}

// TypingPayload is the typing event body.
type TypingPayload struct {
	TicketID   string `json:"ticketId"`
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName"`
	IsTyping   bool   `json:"isTyping"`
}

// StatusChangePayload is the ticket_status_change event body.
type StatusChangePayload struct {
	TicketID      string `json:"ticketId"`
	Status        string `json:"status"`
	ChangedBy     string `json:"changedBy"`
	ChangedByName string `json:"changedByName"`
}

// AssignAgentPayload is the assign_agent event body.
type AssignAgentPayload struct {
	TicketID   string `json:"ticketId"`
	AgentID    string `json:"agentId"`
	AgentName  string `json:"agentName"`
	AssignedBy string `json:"assignedBy"`
}

// MarkAsReadPayload is the mark_as_read event body.
type MarkAsReadPayload struct {
	TicketID string `json:"ticketId"`
	UserID   string `json:"userId"`
}

// MessageData is the wire shape of a persisted message.
type MessageData struct {
	ID          string              `json:"id"`
	TicketID    string              `json:"ticketId"`
	SenderID    string              `json:"senderId"`
	SenderType  domain.SenderType   `json:"senderType"`
	SenderName  string              `json:"senderName"`
	Content     string              `json:"content"`
	Attachments []domain.Attachment `json:"attachments"`
	IsRead      bool                `json:"isRead"`
	CreatedAt   time.Time           `json:"createdAt"`
}

// NewMessageData converts a domain message to its wire shape.
func NewMessageData(msg *domain.Message) MessageData {
	attachments := msg.Attachments
	if attachments == nil {
		attachments = []domain.Attachment{}
	}
	return MessageData{
		ID:          msg.ID,
		TicketID:    msg.TicketID,
		SenderID:    msg.SenderID,
		SenderType:  msg.SenderType,
		SenderName:  msg.SenderName,
		Content:     msg.Content,
		Attachments: attachments,
		IsRead:      msg.IsRead,
		CreatedAt:   msg.CreatedAt,
	}
}

// MessageReceivedData is the message_received event body.
type MessageReceivedData struct {
	Message  MessageData `json:"message"`
	TicketID string      `json:"ticketId"`
}

// TypingIndicatorData is the typing_indicator event body.
type TypingIndicatorData struct {
	TicketID   string `json:"ticketId"`
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName"`
	IsTyping   bool   `json:"isTyping"`
}

// TicketUpdatedData is the ticket_updated event body.
type TicketUpdatedData struct {
	TicketID      string    `json:"ticketId"`
	Status        string    `json:"status"`
	ChangedBy     string    `json:"changedBy"`
	ChangedByName string    `json:"changedByName"`
	Timestamp     time.Time `json:"timestamp"`
}

// TicketDeletedData is the ticket_deleted event body.
type TicketDeletedData struct {
	TicketID      string    `json:"ticketId"`
	DeletedBy     string    `json:"deletedBy"`
	DeletedByName string    `json:"deletedByName"`
	Timestamp     time.Time `json:"timestamp"`
}

// UserJoinedData is the user_joined event body.
type UserJoinedData struct {
	TicketID  string    `json:"ticketId"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	UserType  string    `json:"userType"`
	Timestamp time.Time `json:"timestamp"`
}

// UserLeftData is the user_left event body.
type UserLeftData struct {
	TicketID  string    `json:"ticketId"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	Timestamp time.Time `json:"timestamp"`
}

// AgentAssignedData is the agent_assigned event body.
type AgentAssignedData struct {
	TicketID  string    `json:"ticketId"`
	AgentID   string    `json:"agentId"`
	AgentName string    `json:"agentName"`
	Timestamp time.Time `json:"timestamp"`
}

// MessagesReadData is the messages_read event body.
type MessagesReadData struct {
	TicketID string `json:"ticketId"`
	UserID   string `json:"userId"`
}

// ErrorData is the error event body, delivered only to the connection that
// triggered the failure.
type ErrorData struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

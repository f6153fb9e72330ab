package dto

import (
	"time"

	"github.com/spec-kit/ticket-chat/internal/chat"
	"github.com/spec-kit/ticket-chat/internal/domain"
)

// CreateTicketRequest is the POST /tickets body.
type CreateTicketRequest struct {
	UserID      string `json:"userId"`
	UserName    string `json:"userName"`
	Subject     string `json:"subject"`
	Category    string `json:"category"`
	Priority    string `json:"priority"`
	Description string `json:"description"`
}

// TicketResponse is the wire shape of a ticket.
type TicketResponse struct {
	ID           string                `json:"id"`
	TicketNumber string                `json:"ticketNumber"`
	UserID       string                `json:"userId"`
	AgentID      *string               `json:"agentId"`
	Subject      string                `json:"subject"`
	Category     domain.TicketCategory `json:"category"`
	Status       domain.TicketStatus   `json:"status"`
	Priority     domain.TicketPriority `json:"priority"`
	LastMessage  *string               `json:"lastMessage"`
	UnreadCount  int                   `json:"unreadCount"`
	CreatedAt    time.Time             `json:"createdAt"`
	UpdatedAt    time.Time             `json:"updatedAt"`
}

// TicketDetailResponse adds the live room membership to a ticket.
type TicketDetailResponse struct {
	TicketResponse
	ActiveUsers []chat.Participant `json:"activeUsers"`
}

// MessagePage is the paginated message listing.
type MessagePage struct {
	Data       []chat.MessageData `json:"data"`
	Pagination Pagination         `json:"pagination"`
}

// Pagination describes a page window.
type Pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int64 `json:"totalPages"`
}

// NewTicketResponse converts a domain ticket.
func NewTicketResponse(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:           ticket.ID,
		TicketNumber: ticket.TicketNumber,
		UserID:       ticket.UserID,
		AgentID:      ticket.AgentID,
		Subject:      ticket.Subject,
		Category:     ticket.Category,
		Status:       ticket.Status,
		Priority:     ticket.Priority,
		LastMessage:  ticket.LastMessage,
		UnreadCount:  ticket.UnreadCount,
		CreatedAt:    ticket.CreatedAt,
		UpdatedAt:    ticket.UpdatedAt,
	}
}

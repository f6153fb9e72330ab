package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/ticket-chat/internal/chat"
	"github.com/spec-kit/ticket-chat/internal/domain"
	"github.com/spec-kit/ticket-chat/internal/events"
	"github.com/spec-kit/ticket-chat/internal/repository"
	"github.com/spec-kit/ticket-chat/pkg/util/errorutil"
)

// TicketService backs the REST boundary used by the surrounding
// application: ticket creation (which owns ticket numbering) and read
// access enriched with live presence.
type TicketService struct {
	tickets    repository.TicketRepository
	messages   repository.MessageRepository
	registry   *chat.RoomRegistry
	dispatcher events.Dispatcher
}

// TicketDependencies bundles collaborators for the service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	MessageRepo repository.MessageRepository
	Registry    *chat.RoomRegistry
	Dispatcher  events.Dispatcher
}

// TicketCreateInput describes the ticket creation payload.
type TicketCreateInput struct {
	UserID      string
	UserName    string
	Subject     string
	Category    domain.TicketCategory
	Priority    domain.TicketPriority
	Description string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		messages:   deps.MessageRepo,
		registry:   deps.Registry,
		dispatcher: deps.Dispatcher,
	}
}

// CreateTicket creates a ticket, assigns its ticket number, and records the
// optional opening description as the first message.
func (s *TicketService) CreateTicket(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
	if strings.TrimSpace(input.UserID) == "" || strings.TrimSpace(input.Subject) == "" {
		return nil, errorutil.NewValidationError("userId and subject are required", nil)
	}
	if _, err := uuid.Parse(input.UserID); err != nil {
		return nil, errorutil.NewInvalidID(errorutil.CodeInvalidUserID, "Invalid user ID format")
	}

	ticket := &domain.Ticket{
		UserID:   input.UserID,
		Subject:  strings.TrimSpace(input.Subject),
		Category: input.Category,
		Priority: input.Priority,
		Status:   domain.TicketStatusOpen,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}

	if desc := strings.TrimSpace(input.Description); desc != "" {
		msg := &domain.Message{
			TicketID:   ticket.ID,
			SenderID:   input.UserID,
			SenderType: domain.SenderTypeUser,
			SenderName: senderName(input.UserName),
			Content:    desc,
		}
		if err := s.messages.Create(ctx, msg); err != nil {
			return nil, err
		}
		if err := s.tickets.SetLastMessage(ctx, ticket.ID, desc); err == nil {
			preview := domain.MessagePreview(desc)
			ticket.LastMessage = &preview
		}
	}

	s.publish(ctx, events.Event{
		Type:      events.EventTicketCreated,
		TicketID:  ticket.ID,
		ActorID:   input.UserID,
		ActorName: input.UserName,
		Payload: events.TicketCreatedPayload{
			TicketNumber: ticket.TicketNumber,
			Subject:      ticket.Subject,
			Category:     ticket.Category,
			Priority:     ticket.Priority,
		},
	})
	return ticket, nil
}

// GetTicketWithPresence fetches a ticket together with the room's live
// participants.
func (s *TicketService) GetTicketWithPresence(ctx context.Context, ticketID string) (*domain.Ticket, []chat.Participant, error) {
	if _, err := uuid.Parse(ticketID); err != nil {
		return nil, nil, errorutil.NewInvalidID(errorutil.CodeInvalidTicketID, "Invalid ticket ID format")
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}
	return ticket, s.registry.MembersOf(ticketID), nil
}

// ListMessages returns one page of the ticket's message log in creation
// order, plus the total count for pagination.
func (s *TicketService) ListMessages(ctx context.Context, ticketID string, page, limit int) ([]domain.Message, int64, error) {
	if _, err := uuid.Parse(ticketID); err != nil {
		return nil, 0, errorutil.NewInvalidID(errorutil.CodeInvalidTicketID, "Invalid ticket ID format")
	}
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		return nil, 0, err
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}

	msgs, err := s.messages.ListByTicket(ctx, ticketID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.messages.CountByTicket(ctx, ticketID)
	if err != nil {
		return nil, 0, err
	}
	return msgs, total, nil
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func senderName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "User"
	}
	return name
}

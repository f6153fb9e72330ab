package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-chat/internal/chat"
	"github.com/spec-kit/ticket-chat/internal/domain"
	"github.com/spec-kit/ticket-chat/internal/events"
	"github.com/spec-kit/ticket-chat/internal/repository"
	"github.com/spec-kit/ticket-chat/pkg/util/errorutil"
)

type stubTicketRepo struct {
	byID map[string]*domain.Ticket
	seq  int64
}

var _ repository.TicketRepository = (*stubTicketRepo)(nil)

func newStubTicketRepo() *stubTicketRepo {
	return &stubTicketRepo{byID: make(map[string]*domain.Ticket)}
}

func (s *stubTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	if err := ticket.Validate(); err != nil {
		return errorutil.NewValidationError(err.Error(), nil)
	}
	ticket.ID = uuid.NewString()
	if ticket.TicketNumber == "" {
		number, err := s.NextTicketNumber(ctx)
		if err != nil {
			return err
		}
		ticket.TicketNumber = number
	}
	if ticket.Category == "" {
		ticket.Category = domain.CategoryGeneral
	}
	copied := *ticket
	s.byID[ticket.ID] = &copied
	return nil
}

func (s *stubTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, ok := s.byID[id]
	if !ok {
		return nil, errorutil.NewTicketNotFound()
	}
	copied := *ticket
	return &copied, nil
}

func (s *stubTicketRepo) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) (*domain.Ticket, error) {
	ticket, ok := s.byID[id]
	if !ok {
		return nil, errorutil.NewTicketNotFound()
	}
	ticket.Status = status
	copied := *ticket
	return &copied, nil
}

func (s *stubTicketRepo) AssignAgent(ctx context.Context, id, agentID string) (*domain.Ticket, error) {
	ticket, ok := s.byID[id]
	if !ok {
		return nil, errorutil.NewTicketNotFound()
	}
	ticket.AgentID = &agentID
	ticket.Status = domain.TicketStatusPending
	copied := *ticket
	return &copied, nil
}

func (s *stubTicketRepo) RecordMessage(ctx context.Context, id, preview string) error {
	ticket, ok := s.byID[id]
	if !ok {
		return errorutil.NewTicketNotFound()
	}
	p := domain.MessagePreview(preview)
	ticket.LastMessage = &p
	ticket.UnreadCount++
	return nil
}

func (s *stubTicketRepo) SetLastMessage(ctx context.Context, id, preview string) error {
	ticket, ok := s.byID[id]
	if !ok {
		return errorutil.NewTicketNotFound()
	}
	p := domain.MessagePreview(preview)
	ticket.LastMessage = &p
	return nil
}

func (s *stubTicketRepo) ResetUnread(ctx context.Context, id string) error {
	if ticket, ok := s.byID[id]; ok {
		ticket.UnreadCount = 0
	}
	return nil
}

func (s *stubTicketRepo) NextTicketNumber(ctx context.Context) (string, error) {
	s.seq++
	return fmt.Sprintf("TKT-%06d", s.seq), nil
}

func (s *stubTicketRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for _, ticket := range s.byID {
		if ticket.UserID == userID {
			result = append(result, *ticket)
		}
	}
	return result, nil
}

type stubMessageRepo struct {
	msgs []domain.Message
}

var _ repository.MessageRepository = (*stubMessageRepo)(nil)

func (s *stubMessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	if err := msg.Validate(); err != nil {
		return errorutil.NewValidationError(err.Error(), nil)
	}
	msg.ID = uuid.NewString()
	s.msgs = append(s.msgs, *msg)
	return nil
}

func (s *stubMessageRepo) ListByTicket(ctx context.Context, ticketID string, limit, offset int) ([]domain.Message, error) {
	var matched []domain.Message
	for _, msg := range s.msgs {
		if msg.TicketID == ticketID {
			matched = append(matched, msg)
		}
	}
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *stubMessageRepo) CountByTicket(ctx context.Context, ticketID string) (int64, error) {
	var total int64
	for _, msg := range s.msgs {
		if msg.TicketID == ticketID {
			total++
		}
	}
	return total, nil
}

func (s *stubMessageRepo) MarkRead(ctx context.Context, ticketID, excludingSenderID string) (int64, error) {
	return 0, nil
}

func newService() (*TicketService, *stubTicketRepo, *stubMessageRepo, *chat.RoomRegistry, events.Dispatcher) {
	tickets := newStubTicketRepo()
	messages := &stubMessageRepo{}
	registry := chat.NewRoomRegistry()
	dispatcher := events.NewInMemoryDispatcher()
	svc := NewTicketService(TicketDependencies{
		TicketRepo:  tickets,
		MessageRepo: messages,
		Registry:    registry,
		Dispatcher:  dispatcher,
	})
	return svc, tickets, messages, registry, dispatcher
}

func TestCreateTicketAssignsNumberAndOpeningMessage(t *testing.T) {
	svc, _, messages, _, dispatcher := newService()

	var created []events.Event
	dispatcher.Subscribe(events.EventTicketCreated, func(ctx context.Context, evt events.Event) error {
		created = append(created, evt)
		return nil
	})

	userID := uuid.NewString()
	ticket, err := svc.CreateTicket(context.Background(), TicketCreateInput{
		UserID:      userID,
		UserName:    "Sara",
		Subject:     "  الحجز لم يكتمل  ",
		Category:    domain.CategoryBooking,
		Description: "دفعت ولم يصلني رقم الحجز",
	})
	require.NoError(t, err)

	assert.Equal(t, "TKT-000001", ticket.TicketNumber)
	assert.Equal(t, "الحجز لم يكتمل", ticket.Subject)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)

	require.Len(t, messages.msgs, 1)
	opening := messages.msgs[0]
	assert.Equal(t, ticket.ID, opening.TicketID)
	assert.Equal(t, domain.SenderTypeUser, opening.SenderType)
	assert.Equal(t, "Sara", opening.SenderName)
	require.NotNil(t, ticket.LastMessage)
	assert.Equal(t, "دفعت ولم يصلني رقم الحجز", *ticket.LastMessage)

	require.Len(t, created, 1)
	payload, ok := created[0].Payload.(events.TicketCreatedPayload)
	require.True(t, ok)
	assert.Equal(t, "TKT-000001", payload.TicketNumber)

	// Numbers are monotonic per store.
	second, err := svc.CreateTicket(context.Background(), TicketCreateInput{
		UserID:  uuid.NewString(),
		Subject: "another",
	})
	require.NoError(t, err)
	assert.Equal(t, "TKT-000002", second.TicketNumber)
}

func TestCreateTicketWithoutDescription(t *testing.T) {
	svc, _, messages, _, _ := newService()

	ticket, err := svc.CreateTicket(context.Background(), TicketCreateInput{
		UserID:  uuid.NewString(),
		Subject: "سؤال عام",
	})
	require.NoError(t, err)

	assert.Empty(t, messages.msgs)
	assert.Nil(t, ticket.LastMessage)
	assert.Equal(t, domain.CategoryGeneral, ticket.Category)
}

func TestCreateTicketValidation(t *testing.T) {
	svc, _, _, _, _ := newService()

	_, err := svc.CreateTicket(context.Background(), TicketCreateInput{Subject: "x"})
	de := errorutil.ToDomainError(err)
	require.NotNil(t, de)
	assert.Equal(t, errorutil.CodeValidation, de.Code)

	_, err = svc.CreateTicket(context.Background(), TicketCreateInput{UserID: "not-a-uuid", Subject: "x"})
	de = errorutil.ToDomainError(err)
	require.NotNil(t, de)
	assert.Equal(t, errorutil.CodeInvalidUserID, de.Code)
}

func TestGetTicketWithPresence(t *testing.T) {
	svc, _, _, registry, _ := newService()

	userID := uuid.NewString()
	ticket, err := svc.CreateTicket(context.Background(), TicketCreateInput{UserID: userID, Subject: "x"})
	require.NoError(t, err)

	registry.Join(ticket.ID, chat.Participant{ConnectionID: "c1", UserID: userID, UserName: "Sara"})

	got, active, err := svc.GetTicketWithPresence(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, got.ID)
	require.Len(t, active, 1)
	assert.Equal(t, "Sara", active[0].UserName)

	_, _, err = svc.GetTicketWithPresence(context.Background(), "not-a-uuid")
	assert.Equal(t, errorutil.CodeInvalidTicketID, errorutil.ToDomainError(err).Code)

	_, _, err = svc.GetTicketWithPresence(context.Background(), uuid.NewString())
	assert.True(t, errorutil.IsNotFound(err))
}

func TestListMessagesPagination(t *testing.T) {
	svc, _, messages, _, _ := newService()

	userID := uuid.NewString()
	ticket, err := svc.CreateTicket(context.Background(), TicketCreateInput{UserID: userID, Subject: "x"})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, messages.Create(context.Background(), &domain.Message{
			TicketID:   ticket.ID,
			SenderID:   userID,
			SenderType: domain.SenderTypeUser,
			Content:    fmt.Sprintf("رسالة %d", i),
		}))
	}

	page, total, err := svc.ListMessages(context.Background(), ticket.ID, 2, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	require.Len(t, page, 2)
	assert.Equal(t, "رسالة 2", page[0].Content)

	_, _, err = svc.ListMessages(context.Background(), uuid.NewString(), 1, 10)
	assert.True(t, errorutil.IsNotFound(err))
}

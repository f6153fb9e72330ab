package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-chat/internal/domain"
	"github.com/spec-kit/ticket-chat/internal/events"
	"github.com/spec-kit/ticket-chat/internal/observability"
	"github.com/spec-kit/ticket-chat/internal/repository"
	"github.com/spec-kit/ticket-chat/pkg/util/errorutil"
)

const (
	systemSenderName = "System"
	defaultActorName = "مستخدم"
	defaultAgentName = "وكيل"
)

// Client is the router's view of the originating connection.
type Client interface {
	ID() string
	Send(evt Outbound) bool
}

// Router validates inbound events, applies the ticket business rules,
// persists side effects, and fans results out to the room's current
// participants. Errors go only to the originating connection, never to the
// room and never up the stack: a failing event must not kill the connection.
type Router struct {
	tickets    repository.TicketRepository
	messages   repository.MessageRepository
	registry   *RoomRegistry
	sender     Sender
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// RouterDependencies bundles collaborators for the router.
type RouterDependencies struct {
	TicketRepo  repository.TicketRepository
	MessageRepo repository.MessageRepository
	Registry    *RoomRegistry
	Sender      Sender
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// NewRouter constructs the router.
func NewRouter(deps RouterDependencies) *Router {
	return &Router{
		tickets:    deps.TicketRepo,
		messages:   deps.MessageRepo,
		registry:   deps.Registry,
		sender:     deps.Sender,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}
}

// Dispatch decodes one inbound frame and runs the matching handler. Unknown
// event names are ignored.
func (r *Router) Dispatch(ctx context.Context, client Client, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		r.replyError(client, "", errorutil.NewDomainError(errorutil.CodeInvalidPayload, "Malformed event frame", 0, nil))
		return
	}

	r.metrics.RecordEvent(env.Event)

	var err error
	switch env.Event {
	case EventJoinTicket:
		var payload JoinTicketPayload
		if err = decode(env.Data, &payload); err == nil {
			err = r.handleJoin(ctx, client, payload)
		}
	case EventLeaveTicket:
		var payload LeaveTicketPayload
		if err = decode(env.Data, &payload); err == nil {
			r.handleLeave(client, payload)
		}
	case EventSendMessage:
		var payload SendMessagePayload
		if err = decode(env.Data, &payload); err == nil {
			err = r.handleSendMessage(ctx, client, payload)
		}
	case EventTyping:
		var payload TypingPayload
		if err = decode(env.Data, &payload); err == nil {
			r.handleTyping(client, payload)
		}
	case EventStatusChange:
		var payload StatusChangePayload
		if err = decode(env.Data, &payload); err == nil {
			err = r.handleStatusChange(ctx, client, payload)
		}
	case EventAssignAgent:
		var payload AssignAgentPayload
		if err = decode(env.Data, &payload); err == nil {
			err = r.handleAssignAgent(ctx, client, payload)
		}
	case EventMarkAsRead:
		var payload MarkAsReadPayload
		if err = decode(env.Data, &payload); err == nil {
			err = r.handleMarkAsRead(ctx, client, payload)
		}
	default:
		r.logger.Debug("ignoring unknown event",
			zap.String("event", env.Event),
			zap.String("connection_id", client.ID()))
		return
	}

	if err != nil {
		r.replyError(client, env.Event, err)
	}
}

// HandleDisconnect runs the terminal cleanup for a dead connection: every
// ticket it had joined gets exactly one leave with a user_left broadcast to
// the remaining members.
func (r *Router) HandleDisconnect(client Client) {
	departures := r.registry.LeaveAllForConnection(client.ID())
	for _, dep := range departures {
		r.broadcast(dep.Remaining, Outbound{Event: EventUserLeft, Data: UserLeftData{
			TicketID:  dep.TicketID,
			UserID:    dep.Left.UserID,
			UserName:  dep.Left.UserName,
			Timestamp: time.Now().UTC(),
		}})
	}
	if len(departures) > 0 {
		r.logger.Info("connection cleanup complete",
			zap.String("connection_id", client.ID()),
			zap.Int("tickets_left", len(departures)))
	}
}

func (r *Router) handleJoin(ctx context.Context, client Client, payload JoinTicketPayload) error {
	if payload.TicketID == "" || payload.UserID == "" {
		return missingFields()
	}
	if !validID(payload.TicketID) {
		return errorutil.NewInvalidID(errorutil.CodeInvalidTicketID, "Invalid ticket ID format")
	}

	if _, err := r.tickets.GetByID(ctx, payload.TicketID); err != nil {
		return err
	}

	newJoin, others := r.registry.Join(payload.TicketID, Participant{
		ConnectionID: client.ID(),
		UserID:       payload.UserID,
		UserName:     payload.UserName,
		UserType:     payload.UserType,
		JoinedAt:     time.Now().UTC(),
	})

	if newJoin {
		r.broadcast(others, Outbound{Event: EventUserJoined, Data: UserJoinedData{
			TicketID:  payload.TicketID,
			UserID:    payload.UserID,
			UserName:  payload.UserName,
			UserType:  payload.UserType,
			Timestamp: time.Now().UTC(),
		}})
	}

	r.logger.Info("user joined ticket",
		zap.String("ticket_id", payload.TicketID),
		zap.String("user_id", payload.UserID),
		zap.Bool("new_join", newJoin))
	return nil
}

func (r *Router) handleLeave(client Client, payload LeaveTicketPayload) {
	left, remaining, ok := r.registry.Leave(payload.TicketID, payload.UserID)
	if !ok {
		return
	}
	r.broadcast(remaining, Outbound{Event: EventUserLeft, Data: UserLeftData{
		TicketID:  payload.TicketID,
		UserID:    payload.UserID,
		UserName:  left.UserName,
		Timestamp: time.Now().UTC(),
	}})
	r.logger.Info("user left ticket",
		zap.String("ticket_id", payload.TicketID),
		zap.String("user_id", payload.UserID))
}

func (r *Router) handleSendMessage(ctx context.Context, client Client, payload SendMessagePayload) error {
	if payload.TicketID == "" || payload.SenderID == "" || payload.Content == "" {
		return missingFields()
	}
	if !validID(payload.TicketID) {
		return errorutil.NewInvalidID(errorutil.CodeInvalidTicketID, "Invalid ticket ID format")
	}
	if !validID(payload.SenderID) {
		return errorutil.NewInvalidID(errorutil.CodeInvalidSenderID, "Invalid sender ID format")
	}
	if utf8.RuneCountInString(payload.Content) > domain.MaxContentLen {
		return errorutil.NewDomainError(errorutil.CodeInvalidPayload, "Message content too long", 0, nil)
	}
	// System messages are synthesized here, never accepted from a client.
	if domain.SenderType(payload.SenderType) == domain.SenderTypeSystem {
		return errorutil.NewDomainError(errorutil.CodeInvalidPayload, "Reserved sender type", 0, nil)
	}

	ticket, err := r.tickets.GetByID(ctx, payload.TicketID)
	if err != nil {
		return err
	}
	if ticket.Status.Terminal() {
		return errorutil.NewTicketClosed()
	}

	msg := &domain.Message{
		TicketID:    payload.TicketID,
		SenderID:    payload.SenderID,
		SenderType:  domain.SenderType(payload.SenderType),
		SenderName:  payload.SenderName,
		Content:     payload.Content,
		Attachments: payload.Attachments,
	}
	if err := r.messages.Create(ctx, msg); err != nil {
		return err
	}

	// Denormalized counters are best effort: the message is already durable,
	// a stale preview is acceptable.
	if err := r.tickets.RecordMessage(ctx, payload.TicketID, payload.Content); err != nil {
		r.logger.Warn("ticket denormalization update failed",
			zap.String("ticket_id", payload.TicketID),
			zap.Error(err))
	}

	// Delivered to every member including the sender: the broadcast echo is
	// the send confirmation, there is no separate ack path.
	r.broadcast(r.registry.MembersOf(payload.TicketID), Outbound{
		Event: EventMessageReceived,
		Data:  MessageReceivedData{Message: NewMessageData(msg), TicketID: payload.TicketID},
	})

	r.publish(ctx, events.Event{
		Type:      events.EventMessageAdded,
		TicketID:  payload.TicketID,
		ActorID:   payload.SenderID,
		ActorName: payload.SenderName,
		Payload: events.MessageAddedPayload{
			MessageID:   msg.ID,
			SenderType:  msg.SenderType,
			BodyPreview: domain.MessagePreview(msg.Content),
		},
	})

	r.logger.Info("message sent",
		zap.String("ticket_id", payload.TicketID),
		zap.String("sender_id", payload.SenderID))
	return nil
}

func (r *Router) handleTyping(client Client, payload TypingPayload) {
	// Best effort, no persistence, peers only.
	members := membersExcept(r.registry.MembersOf(payload.TicketID), payload.SenderID)
	r.broadcast(members, Outbound{Event: EventTypingIndicator, Data: TypingIndicatorData{
		TicketID:   payload.TicketID,
		SenderID:   payload.SenderID,
		SenderName: payload.SenderName,
		IsTyping:   payload.IsTyping,
	}})
}

func (r *Router) handleStatusChange(ctx context.Context, client Client, payload StatusChangePayload) error {
	if payload.TicketID == "" || payload.Status == "" || payload.ChangedBy == "" {
		return missingFields()
	}
	if !validID(payload.TicketID) {
		return errorutil.NewInvalidID(errorutil.CodeInvalidTicketID, "Invalid ticket ID format")
	}
	if !validID(payload.ChangedBy) {
		return errorutil.NewInvalidID(errorutil.CodeInvalidUserID, "Invalid user ID format")
	}

	status := domain.TicketStatus(payload.Status)
	switch status {
	case domain.TicketStatusOpen, domain.TicketStatusPending, domain.TicketStatusResolved, domain.TicketStatusClosed:
	default:
		return errorutil.NewDomainError(errorutil.CodeInvalidPayload, "Unknown ticket status", 0, nil)
	}

	// Closing is destructive to live state: members get a deletion notice
	// and all presence tracking for the ticket is dropped. The row keeps its
	// terminal status so later writes still surface TICKET_CLOSED, but no
	// system message or ticket_updated is produced for this path.
	if status == domain.TicketStatusClosed {
		if _, err := r.tickets.UpdateStatus(ctx, payload.TicketID, status); err != nil {
			return err
		}
		members := r.registry.PurgeTicket(payload.TicketID)
		r.broadcast(members, Outbound{Event: EventTicketDeleted, Data: TicketDeletedData{
			TicketID:      payload.TicketID,
			DeletedBy:     payload.ChangedBy,
			DeletedByName: actorName(payload.ChangedByName),
			Timestamp:     time.Now().UTC(),
		}})
		r.publish(ctx, events.Event{
			Type:      events.EventTicketClosed,
			TicketID:  payload.TicketID,
			ActorID:   payload.ChangedBy,
			ActorName: payload.ChangedByName,
		})
		r.logger.Info("ticket closed, room purged",
			zap.String("ticket_id", payload.TicketID),
			zap.String("changed_by", payload.ChangedBy))
		return nil
	}

	ticket, err := r.tickets.UpdateStatus(ctx, payload.TicketID, status)
	if err != nil {
		return err
	}

	content := fmt.Sprintf("تم تغيير حالة التذكرة إلى \"%s\" بواسطة %s",
		domain.StatusLabel(status), actorName(payload.ChangedByName))
	systemMsg, err := r.createSystemMessage(ctx, payload.TicketID, payload.ChangedBy, content)
	if err != nil {
		return err
	}

	members := r.registry.MembersOf(payload.TicketID)
	r.broadcast(members, Outbound{Event: EventTicketUpdated, Data: TicketUpdatedData{
		TicketID:      payload.TicketID,
		Status:        string(ticket.Status),
		ChangedBy:     payload.ChangedBy,
		ChangedByName: payload.ChangedByName,
		Timestamp:     time.Now().UTC(),
	}})
	r.broadcast(members, Outbound{
		Event: EventMessageReceived,
		Data:  MessageReceivedData{Message: NewMessageData(systemMsg), TicketID: payload.TicketID},
	})

	r.publish(ctx, events.Event{
		Type:      events.EventStatusChanged,
		TicketID:  payload.TicketID,
		ActorID:   payload.ChangedBy,
		ActorName: payload.ChangedByName,
		Payload:   events.StatusChangedPayload{NewStatus: ticket.Status},
	})

	r.logger.Info("ticket status changed",
		zap.String("ticket_id", payload.TicketID),
		zap.String("status", payload.Status))
	return nil
}

func (r *Router) handleAssignAgent(ctx context.Context, client Client, payload AssignAgentPayload) error {
	if payload.TicketID == "" || payload.AgentID == "" || payload.AssignedBy == "" {
		return missingFields()
	}
	if !validID(payload.TicketID) {
		return errorutil.NewInvalidID(errorutil.CodeInvalidTicketID, "Invalid ticket ID format")
	}
	if !validID(payload.AgentID) {
		return errorutil.NewInvalidID(errorutil.CodeInvalidAgentID, "Invalid agent ID format")
	}
	if !validID(payload.AssignedBy) {
		return errorutil.NewInvalidID(errorutil.CodeInvalidUserID, "Invalid user ID format")
	}

	if _, err := r.tickets.AssignAgent(ctx, payload.TicketID, payload.AgentID); err != nil {
		return err
	}

	content := fmt.Sprintf("تم تعيين الوكيل %s لهذه التذكرة", agentName(payload.AgentName))
	systemMsg, err := r.createSystemMessage(ctx, payload.TicketID, payload.AssignedBy, content)
	if err != nil {
		return err
	}

	members := r.registry.MembersOf(payload.TicketID)
	r.broadcast(members, Outbound{Event: EventAgentAssigned, Data: AgentAssignedData{
		TicketID:  payload.TicketID,
		AgentID:   payload.AgentID,
		AgentName: payload.AgentName,
		Timestamp: time.Now().UTC(),
	}})
	r.broadcast(members, Outbound{
		Event: EventMessageReceived,
		Data:  MessageReceivedData{Message: NewMessageData(systemMsg), TicketID: payload.TicketID},
	})

	r.publish(ctx, events.Event{
		Type:     events.EventAgentAssigned,
		TicketID: payload.TicketID,
		ActorID:  payload.AssignedBy,
		Payload: events.AgentAssignedPayload{
			AgentID:   payload.AgentID,
			AgentName: payload.AgentName,
		},
	})

	r.logger.Info("agent assigned",
		zap.String("ticket_id", payload.TicketID),
		zap.String("agent_id", payload.AgentID))
	return nil
}

func (r *Router) handleMarkAsRead(ctx context.Context, client Client, payload MarkAsReadPayload) error {
	if payload.TicketID == "" || payload.UserID == "" {
		return missingFields()
	}
	if !validID(payload.TicketID) {
		return errorutil.NewInvalidID(errorutil.CodeInvalidTicketID, "Invalid ticket ID format")
	}
	if !validID(payload.UserID) {
		return errorutil.NewInvalidID(errorutil.CodeInvalidUserID, "Invalid user ID format")
	}

	// Safe against nonexistent tickets: both writes no-op on zero rows.
	// Persistence failures are logged but never surfaced for this event.
	if _, err := r.messages.MarkRead(ctx, payload.TicketID, payload.UserID); err != nil {
		r.logger.Error("mark read failed", zap.String("ticket_id", payload.TicketID), zap.Error(err))
		return nil
	}
	if err := r.tickets.ResetUnread(ctx, payload.TicketID); err != nil {
		r.logger.Error("unread reset failed", zap.String("ticket_id", payload.TicketID), zap.Error(err))
		return nil
	}

	members := membersExcept(r.registry.MembersOf(payload.TicketID), payload.UserID)
	r.broadcast(members, Outbound{Event: EventMessagesRead, Data: MessagesReadData{
		TicketID: payload.TicketID,
		UserID:   payload.UserID,
	}})

	r.publish(ctx, events.Event{
		Type:     events.EventMessagesMarked,
		TicketID: payload.TicketID,
		ActorID:  payload.UserID,
	})
	return nil
}

func (r *Router) createSystemMessage(ctx context.Context, ticketID, actorID, content string) (*domain.Message, error) {
	msg := &domain.Message{
		TicketID:   ticketID,
		SenderID:   actorID,
		SenderType: domain.SenderTypeSystem,
		SenderName: systemSenderName,
		Content:    content,
	}
	if err := r.messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	if err := r.tickets.SetLastMessage(ctx, ticketID, content); err != nil {
		r.logger.Warn("ticket preview update failed",
			zap.String("ticket_id", ticketID),
			zap.Error(err))
	}
	return msg, nil
}

func (r *Router) broadcast(members []Participant, evt Outbound) {
	for _, m := range members {
		r.sender.Send(m.ConnectionID, evt)
	}
}

// replyError converts any handler failure into an error event on the
// originating connection. Unexpected failures are logged with context and
// reported under the event-specific generic code without leaking internals.
func (r *Router) replyError(client Client, event string, err error) {
	de := errorutil.ToDomainError(err)
	code := de.Code
	message := de.Message
	if code == errorutil.CodeInternalError || code == errorutil.CodeNotFound {
		if code == errorutil.CodeInternalError {
			r.logger.Error("event handler failed",
				zap.String("event", event),
				zap.String("connection_id", client.ID()),
				zap.Error(de))
			code = fallbackCode(event)
			message = fallbackMessage(event)
		} else {
			code = errorutil.CodeTicketNotFound
			message = "Ticket not found"
		}
	}
	r.metrics.RecordEventError(event, code)
	client.Send(Outbound{Event: EventError, Data: ErrorData{Message: message, Code: code}})
}

func (r *Router) publish(ctx context.Context, event events.Event) {
	if r.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_ = r.dispatcher.Publish(ctx, event)
}

func decode(data json.RawMessage, out any) error {
	if len(data) == 0 {
		return errorutil.NewDomainError(errorutil.CodeInvalidPayload, "Missing event data", 0, nil)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errorutil.NewDomainError(errorutil.CodeInvalidPayload, "Malformed event data", 0, nil)
	}
	return nil
}

func missingFields() error {
	return errorutil.NewDomainError(errorutil.CodeInvalidPayload, "Missing required fields", 0, nil)
}

func validID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

func membersExcept(members []Participant, userID string) []Participant {
	filtered := make([]Participant, 0, len(members))
	for _, m := range members {
		if m.UserID == userID {
			continue
		}
		filtered = append(filtered, m)
	}
	return filtered
}

func actorName(name string) string {
	if name == "" {
		return defaultActorName
	}
	return name
}

func agentName(name string) string {
	if name == "" {
		return defaultAgentName
	}
	return name
}

func fallbackCode(event string) string {
	switch event {
	case EventJoinTicket:
		return errorutil.CodeJoinError
	case EventSendMessage:
		return errorutil.CodeMessageError
	case EventStatusChange:
		return errorutil.CodeStatusError
	case EventAssignAgent:
		return errorutil.CodeAssignError
	}
	return errorutil.CodeInternalError
}

func fallbackMessage(event string) string {
	switch event {
	case EventJoinTicket:
		return "Failed to join ticket"
	case EventSendMessage:
		return "Failed to send message"
	case EventStatusChange:
		return "Failed to update ticket status"
	case EventAssignAgent:
		return "Failed to assign agent"
	}
	return "internal server error"
}

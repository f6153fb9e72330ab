package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-chat/internal/config"
	"github.com/spec-kit/ticket-chat/internal/events"
)

// NotificationQueue accepts serialized notification jobs for out-of-process
// delivery workers (email, push).
type NotificationQueue interface {
	Enqueue(ctx context.Context, queue string, payload []byte) error
}

// NotificationService turns domain events into queued notification jobs so
// participants who are not connected still hear about activity. Strictly
// best effort: a queue failure is logged and never reaches the event path.
type NotificationService struct {
	dispatcher events.Dispatcher
	queue      NotificationQueue
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, queue NotificationQueue, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		queue:      queue,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to the events worth notifying about.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.enqueue)
	n.dispatcher.Subscribe(events.EventMessageAdded, n.enqueue)
	n.dispatcher.Subscribe(events.EventStatusChanged, n.enqueue)
	n.dispatcher.Subscribe(events.EventAgentAssigned, n.enqueue)
	n.dispatcher.Subscribe(events.EventTicketClosed, n.enqueue)
}

func (n *NotificationService) enqueue(ctx context.Context, event events.Event) error {
	if n.queue == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.Error("notification job marshal failed",
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		return nil
	}
	if err := n.queue.Enqueue(ctx, n.cfg.QueueKey, payload); err != nil {
		n.logger.Warn("notification enqueue failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
		return nil
	}
	n.logger.Debug("notification job queued",
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID))
	return nil
}

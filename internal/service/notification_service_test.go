package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-chat/internal/config"
	"github.com/spec-kit/ticket-chat/internal/events"
)

type stubQueue struct {
	jobs    map[string][][]byte
	failure error
}

func newStubQueue() *stubQueue {
	return &stubQueue{jobs: make(map[string][][]byte)}
}

func (q *stubQueue) Enqueue(ctx context.Context, queue string, payload []byte) error {
	if q.failure != nil {
		return q.failure
	}
	q.jobs[queue] = append(q.jobs[queue], payload)
	return nil
}

func TestNotificationServiceQueuesJobs(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	queue := newStubQueue()
	cfg := config.NotificationConfig{QueueKey: "notify:test"}
	NewNotificationService(dispatcher, queue, zap.NewNop(), cfg).RegisterHandlers()

	err := dispatcher.Publish(context.Background(), events.Event{
		ID:       "evt-1",
		Type:     events.EventMessageAdded,
		TicketID: "t1",
		ActorID:  "u1",
	})
	require.NoError(t, err)

	require.Len(t, queue.jobs["notify:test"], 1)
	var job events.Event
	require.NoError(t, json.Unmarshal(queue.jobs["notify:test"][0], &job))
	assert.Equal(t, events.EventMessageAdded, job.Type)
	assert.Equal(t, "t1", job.TicketID)
}

func TestNotificationServiceIgnoresReadReceipts(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	queue := newStubQueue()
	NewNotificationService(dispatcher, queue, zap.NewNop(), config.NotificationConfig{QueueKey: "q"}).RegisterHandlers()

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{
		Type:     events.EventMessagesMarked,
		TicketID: "t1",
	}))

	assert.Empty(t, queue.jobs["q"])
}

func TestNotificationServiceSwallowsQueueFailures(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	queue := newStubQueue()
	queue.failure = errors.New("redis down")
	NewNotificationService(dispatcher, queue, zap.NewNop(), config.NotificationConfig{QueueKey: "q"}).RegisterHandlers()

	err := dispatcher.Publish(context.Background(), events.Event{
		Type:     events.EventTicketClosed,
		TicketID: "t1",
	})
	assert.NoError(t, err)
	assert.Empty(t, queue.jobs["q"])
}

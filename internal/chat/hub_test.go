package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-chat/internal/config"
)

func TestHubRoutesByConnectionID(t *testing.T) {
	hub := NewHub()
	session := NewSession(nil, config.WebSocketConfig{SendBufferSize: 4}, zap.NewNop())

	hub.Register(session)
	assert.Equal(t, 1, hub.Count())

	require.True(t, hub.Send(session.ID(), Outbound{Event: EventMessagesRead}))
	assert.False(t, hub.Send("unknown-conn", Outbound{Event: EventMessagesRead}))

	hub.Unregister(session)
	assert.Zero(t, hub.Count())
	assert.False(t, hub.Send(session.ID(), Outbound{Event: EventMessagesRead}))
}

func TestSessionSendDropsWhenQueueFull(t *testing.T) {
	// No writer goroutine is draining the queue, so the buffer fills and the
	// overflow event is dropped instead of blocking the broadcaster.
	session := NewSession(nil, config.WebSocketConfig{SendBufferSize: 1}, zap.NewNop())

	assert.True(t, session.Send(Outbound{Event: EventTypingIndicator}))
	assert.False(t, session.Send(Outbound{Event: EventTypingIndicator}))
}

package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherDeliversToSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()

	var got []Event
	d.Subscribe(EventMessageAdded, func(ctx context.Context, evt Event) error {
		got = append(got, evt)
		return nil
	})
	d.Subscribe(EventMessageAdded, func(ctx context.Context, evt Event) error {
		got = append(got, evt)
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventMessageAdded, TicketID: "t1"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "t1", got[0].TicketID)
}

func TestDispatcherIgnoresUnmatchedTypes(t *testing.T) {
	d := NewInMemoryDispatcher()

	called := false
	d.Subscribe(EventTicketClosed, func(ctx context.Context, evt Event) error {
		called = true
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventMessageAdded}))
	assert.False(t, called)
}

func TestDispatcherSwallowsHandlerErrors(t *testing.T) {
	d := NewInMemoryDispatcher()

	var order []string
	d.Subscribe(EventTicketCreated, func(ctx context.Context, evt Event) error {
		order = append(order, "first")
		return errors.New("boom")
	})
	d.Subscribe(EventTicketCreated, func(ctx context.Context, evt Event) error {
		order = append(order, "second")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTicketCreated})
	assert.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, order)
}

package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/taskdesk/pkg/channels/gochannel"
	"github.com/dukex/taskdesk/pkg/eventbus"
	"github.com/dukex/taskdesk/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus(t *testing.T) eventbus.EventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)

	t.Cleanup(func() {
		_ = bus.Close()
	})

	return bus
}

func TestWatermillEventBus_DeliversTaskAssigned(t *testing.T) {
	bus := newTestBus(t)
	received := make(chan *events.TaskAssigned, 1)

	require.NoError(t, bus.Handle(events.TaskAssignedEvent, func(_ context.Context, event any) error {
		received <- event.(*events.TaskAssigned)

		return nil
	}))
	require.NoError(t, bus.Subscribe(t.Context()))

	event := events.NewTaskAssigned("task-1", "Payroll", []string{"u1", "u2"})
	require.NoError(t, bus.Publish(t.Context(), "task-1", event))

	select {
	case got := <-received:
		assert.Equal(t, "task-1", got.TaskID)
		assert.Equal(t, []string{"u1", "u2"}, got.UserIDs)
	case <-time.After(5 * time.Second):
		t.Fatal("task.assigned was not delivered")
	}
}

func TestWatermillEventBus_IgnoresUnhandledTypes(t *testing.T) {
	bus := newTestBus(t)
	received := make(chan any, 2)

	require.NoError(t, bus.Handle(events.TaskDeletedEvent, func(_ context.Context, event any) error {
		received <- event

		return nil
	}))
	require.NoError(t, bus.Subscribe(t.Context()))

	require.NoError(t, bus.Publish(t.Context(), "task-1", events.NewTaskAssigned("task-1", "Payroll", []string{"u1"})))
	require.NoError(t, bus.Publish(t.Context(), "task-1", events.NewTaskDeleted("task-1")))

	select {
	case got := <-received:
		assert.IsType(t, &events.TaskDeleted{}, got)
	case <-time.After(5 * time.Second):
		t.Fatal("task.deleted was not delivered")
	}

	assert.Empty(t, received)
}

package eventbus

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planward/planward/pkg/channels/gochannel"
	"github.com/planward/planward/pkg/events"
	"github.com/planward/planward/pkg/models"
)

func newTestBus(t *testing.T) EventBus {
	t.Helper()

	logger := watermill.NewSlogLogger(slog.Default())

	pub, sub, err := gochannel.CreateTestChannel(logger)
	require.NoError(t, err)

	return NewWatermillEventBus(pub, sub)
}

func TestWatermillEventBus_PublishReachesRegisteredHandler(t *testing.T) {
	bus := newTestBus(t)

	var (
		mu       sync.Mutex
		received []*events.NodeFlagged
	)

	err := bus.Handle(events.NodeFlaggedEvent, func(_ context.Context, event interface{}) error {
		flagged, ok := event.(*events.NodeFlagged)
		if !ok {
			return nil
		}

		mu.Lock()
		received = append(received, flagged)
		mu.Unlock()

		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Subscribe(t.Context()))

	flagged := events.NodeFlagged{
		BaseEvent: events.NewBaseEvent(events.NodeFlaggedEvent, "session-1"),
		NodeID:    "n1",
		Status:    models.NodeStatusWarning,
		Reason:    "no predecessor",
	}
	require.NoError(t, bus.Publish(t.Context(), "session-1", flagged))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(received) == 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, "n1", received[0].NodeID)
	assert.Equal(t, models.NodeStatusWarning, received[0].Status)
	assert.Equal(t, "session-1", received[0].SessionID)
}

func TestWatermillEventBus_UnhandledEventTypesAreAcked(t *testing.T) {
	bus := newTestBus(t)

	require.NoError(t, bus.Subscribe(t.Context()))

	summary := events.CheckSummarized{
		BaseEvent: events.NewBaseEvent(events.CheckSummarizedEvent, "session-1"),
		Summary:   "looks consistent",
	}

	// No handler registered for this type; publish must still succeed.
	assert.NoError(t, bus.Publish(t.Context(), "session-1", summary))
}

func TestWatermillEventBus_GenerateIDIsUnique(t *testing.T) {
	bus := newTestBus(t)

	assert.NotEqual(t, bus.GenerateID(), bus.GenerateID())
}

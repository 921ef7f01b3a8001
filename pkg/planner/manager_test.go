package planner

import (
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/planward/planward/pkg/agent"
	gochannelchannel "github.com/planward/planward/pkg/channels/gochannel"
	"github.com/planward/planward/pkg/eventbus"
	"github.com/planward/planward/pkg/events"
	"github.com/planward/planward/pkg/mocks"
	"github.com/planward/planward/pkg/models"
	"github.com/planward/planward/pkg/persistence/file"
)

func testManager(t *testing.T, config ManagerConfig) *Manager {
	t.Helper()

	return NewManager(Dependencies{
		Agent:       &mocks.MockAgent{},
		Persistence: file.NewPersistence(t.TempDir()),
		Logger:      testLogger(),
	}, config)
}

func TestManager_CreateAndGet(t *testing.T) {
	manager := testManager(t, ManagerConfig{})

	session, err := manager.Create(t.Context())
	require.NoError(t, err)
	require.NotEmpty(t, session.ID())

	state := session.State()
	assert.Equal(t, models.PhaseIdle, state.Phase)
	assert.Empty(t, state.Nodes)
	assert.False(t, state.CreatedAt.IsZero())

	found, err := manager.Get(t.Context(), session.ID())
	require.NoError(t, err)
	assert.Same(t, session, found)
}

func TestManager_Get_NotFound(t *testing.T) {
	manager := testManager(t, ManagerConfig{})

	_, err := manager.Get(t.Context(), "nope")
	require.ErrorIs(t, err, ErrSessionNotFound)
	assert.True(t, IsSessionNotFound(err))
}

func TestManager_Get_RehydratesInterruptedCheck(t *testing.T) {
	storage := file.NewPersistence(t.TempDir())

	record := &models.Session{
		ID:       "restored-1",
		PlanText: "Throw a launch party",
		Phase:    models.PhaseChecking,
		Nodes: []*models.GraphNode{
			{ID: "venue", Label: "Book venue"},
			{ID: "cake", Label: "Order cake"},
		},
		Edges: []*models.GraphEdge{},
		Baseline: &models.Snapshot{
			Nodes: []models.SnapshotNode{{ID: "venue", Label: "Book venue"}},
		},
		Annotations: map[string]*models.Annotation{
			"venue": {Status: models.NodeStatusOK, Reasons: []string{"fine"}},
		},
		CheckCount: 3,
	}
	require.NoError(t, storage.SaveSession(t.Context(), record))

	manager := NewManager(Dependencies{
		Agent:       &mocks.MockAgent{},
		Persistence: storage,
		Logger:      testLogger(),
	}, ManagerConfig{})

	session, err := manager.Get(t.Context(), "restored-1")
	require.NoError(t, err)

	// The check that was in flight died with the previous process.
	state := session.State()
	assert.Equal(t, models.PhaseEditing, state.Phase)
	require.NotNil(t, state.Failure)
	assert.Equal(t, models.FailureKindGeneric, state.Failure.Kind)
	assert.True(t, state.HasChanges, "recomputed against the stored baseline")
	assert.Equal(t, 3, state.CheckCount)
	assert.Contains(t, state.Annotations, "venue")
	assert.Equal(t, 0, session.UndoDepth(), "undo history does not survive a restart")

	// Later lookups reuse the resident instance.
	again, err := manager.Get(t.Context(), "restored-1")
	require.NoError(t, err)
	assert.Same(t, session, again)
}

func TestManager_Get_RehydratesInterruptedGeneration(t *testing.T) {
	storage := file.NewPersistence(t.TempDir())

	record := &models.Session{
		ID:       "restored-2",
		PlanText: "Plan a wedding",
		Phase:    models.PhaseGenerating,
	}
	require.NoError(t, storage.SaveSession(t.Context(), record))

	manager := NewManager(Dependencies{
		Agent:       &mocks.MockAgent{},
		Persistence: storage,
		Logger:      testLogger(),
	}, ManagerConfig{})

	session, err := manager.Get(t.Context(), "restored-2")
	require.NoError(t, err)

	state := session.State()
	assert.Equal(t, models.PhaseIdle, state.Phase)
	require.NotNil(t, state.Failure)
	assert.NotNil(t, state.Nodes, "nil slices from storage are repaired")
}

func TestManager_Delete(t *testing.T) {
	manager := testManager(t, ManagerConfig{})

	session, err := manager.Create(t.Context())
	require.NoError(t, err)

	require.NoError(t, manager.Delete(t.Context(), session.ID()))

	_, err = manager.Get(t.Context(), session.ID())
	require.ErrorIs(t, err, ErrSessionNotFound)

	err = manager.Delete(t.Context(), session.ID())
	require.ErrorIs(t, err, ErrSessionNotFound)

	// A handle that survived the deletion cannot write the record back.
	_, err = session.AddNode(t.Context(), AddNodeRequest{Label: "Ghost"})
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_EventsFeedFromBus(t *testing.T) {
	publisher, subscriber, err := gochannelchannel.CreateTestChannel(watermill.NewSlogLogger(testLogger()))
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(publisher, subscriber)
	defer bus.Close()

	mockAgent := &mocks.MockAgent{}
	mockAgent.On("ProposeGraph", mock.Anything, mock.Anything).Return(&agent.ProposedGraph{
		Nodes: []agent.ProposedNode{{ID: "venue", Label: "Book venue"}},
	}, nil)

	manager := NewManager(Dependencies{
		Agent:       mockAgent,
		Persistence: file.NewPersistence(t.TempDir()),
		EventBus:    bus,
		Logger:      testLogger(),
	}, ManagerConfig{})
	require.NoError(t, manager.Start(t.Context()))
	defer manager.Stop(t.Context())

	session, err := manager.Create(t.Context())
	require.NoError(t, err)

	require.NoError(t, session.Generate(t.Context(), "Throw a launch party"))
	waitForPhase(t, session, models.PhaseEditing)

	// Bus delivery is asynchronous; poll the feed until both lifecycle
	// events have landed.
	var entries []JournalEntry

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		entries, err = manager.Events(t.Context(), session.ID(), 0)
		require.NoError(t, err)

		if len(entries) >= 2 {
			break
		}

		time.Sleep(10 * time.Millisecond)
	}

	require.Len(t, entries, 2)
	assert.Equal(t, events.GenerationStartedEvent, entries[0].Type)
	assert.Equal(t, events.GenerationCompletedEvent, entries[1].Type)
	assert.Equal(t, uint64(1), entries[0].Seq)

	// The cursor filters out what the client already saw.
	later, err := manager.Events(t.Context(), session.ID(), entries[0].Seq)
	require.NoError(t, err)
	require.Len(t, later, 1)
	assert.Equal(t, events.GenerationCompletedEvent, later[0].Type)
}

func TestManager_Events_UnknownSession(t *testing.T) {
	manager := testManager(t, ManagerConfig{})

	_, err := manager.Events(t.Context(), "nope", 0)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_SweepExpiresIdleSessions(t *testing.T) {
	manager := testManager(t, ManagerConfig{SessionTTL: 50 * time.Millisecond})

	session, err := manager.Create(t.Context())
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)

	manager.sweep()

	_, err = manager.Get(t.Context(), session.ID())
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_SweepSparesBusySessions(t *testing.T) {
	release := make(chan struct{})

	mockAgent := &mocks.MockAgent{}
	mockAgent.On("ProposeGraph", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(&agent.ProposedGraph{
			Nodes: []agent.ProposedNode{{ID: "venue", Label: "Book venue"}},
		}, nil)

	manager := NewManager(Dependencies{
		Agent:       mockAgent,
		Persistence: file.NewPersistence(t.TempDir()),
		Logger:      testLogger(),
	}, ManagerConfig{SessionTTL: time.Nanosecond})

	session, err := manager.Create(t.Context())
	require.NoError(t, err)
	require.NoError(t, session.Generate(t.Context(), "Throw a launch party"))

	manager.sweep()

	// Generating sessions stay resident regardless of age.
	found, err := manager.Get(t.Context(), session.ID())
	require.NoError(t, err)
	assert.Same(t, session, found)

	close(release)
	waitForPhase(t, session, models.PhaseEditing)
}

func TestManager_HealthCheck_ReportsStorageFailure(t *testing.T) {
	persistenceMock := &mocks.MockPersistence{}
	persistenceMock.On("HealthCheck", mock.Anything).
		Return(errors.New("connection refused")).
		Once()

	manager := NewManager(Dependencies{
		Agent:       &mocks.MockAgent{},
		Persistence: persistenceMock,
		Logger:      testLogger(),
	}, ManagerConfig{})

	err := manager.HealthCheck(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	persistenceMock.AssertExpectations(t)
}

package planner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/planward/planward/pkg/agent"
	"github.com/planward/planward/pkg/eventbus"
	"github.com/planward/planward/pkg/events"
	"github.com/planward/planward/pkg/graph"
	"github.com/planward/planward/pkg/metrics"
	"github.com/planward/planward/pkg/models"
)

const (
	defaultSessionTTL      = 24 * time.Hour
	defaultJanitorSchedule = "@every 10m"
)

// ManagerConfig configures the session manager: the per-cycle timeouts
// plus housekeeping of idle sessions.
type ManagerConfig struct {
	Config

	// SessionTTL is how long a session may sit untouched before the
	// janitor removes it, from memory and from storage.
	SessionTTL time.Duration

	// JanitorSchedule is a cron expression for the cleanup pass.
	JanitorSchedule string
}

func (c ManagerConfig) withDefaults() ManagerConfig {
	c.Config = c.Config.withDefaults()

	if c.SessionTTL <= 0 {
		c.SessionTTL = defaultSessionTTL
	}

	if c.JanitorSchedule == "" {
		c.JanitorSchedule = defaultJanitorSchedule
	}

	return c
}

// journalEventTypes is every event the per-session journal records.
var journalEventTypes = []events.EventType{
	events.GenerationStartedEvent,
	events.GenerationCompletedEvent,
	events.GenerationFailedEvent,
	events.CheckStartedEvent,
	events.NodeFlaggedEvent,
	events.InsightAddedEvent,
	events.CheckSummarizedEvent,
	events.CheckCompletedEvent,
	events.CheckFailedEvent,
}

// Manager owns the resident set of planning sessions. Sessions are
// created here, found here, and eventually expired here; everything else
// goes through the *Session handle. Lookups rehydrate from storage, so a
// restart loses in-flight agent work and undo history but nothing else.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	deps    Dependencies
	config  ManagerConfig
	journal *journal
	logger  *slog.Logger
	cron    *cron.Cron
}

func NewManager(deps Dependencies, config ManagerConfig) *Manager {
	deps = deps.withDefaults()

	return &Manager{
		sessions: make(map[string]*Session),
		deps:     deps,
		config:   config.withDefaults(),
		journal:  newJournal(journalLimit),
		logger:   deps.Logger.With("module", "planner"),
	}
}

// Start wires the journal into the event bus and begins the janitor.
func (m *Manager) Start(ctx context.Context) error {
	if m.deps.EventBus != nil {
		for _, eventType := range journalEventTypes {
			err := m.deps.EventBus.Handle(eventType, m.recordEvent(eventType))
			if err != nil {
				return fmt.Errorf("register journal handler for %s: %w", eventType, err)
			}
		}

		err := m.deps.EventBus.Subscribe(ctx)
		if err != nil {
			return fmt.Errorf("subscribe to event bus: %w", err)
		}
	}

	return m.startJanitor()
}

// Stop halts the janitor. Sessions stay usable; the event bus is owned
// and closed by the caller.
func (m *Manager) Stop(ctx context.Context) {
	if m.cron != nil {
		m.cron.Stop()
	}
}

func (m *Manager) recordEvent(eventType events.EventType) eventbus.EventHandler {
	return func(_ context.Context, event any) error {
		m.journal.record(eventType, event)

		return nil
	}
}

// Create mints an empty idle session and makes it resident.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	record := &models.Session{
		ID:    uuid.New().String(),
		Phase: models.PhaseIdle,
		Nodes: []*models.GraphNode{},
		Edges: []*models.GraphEdge{},
	}

	if m.deps.Persistence != nil {
		err := m.deps.Persistence.SaveSession(ctx, record)
		if err != nil {
			return nil, fmt.Errorf("save new session: %w", err)
		}
	}

	session := newSession(record, m.deps, m.config.Config)

	m.mu.Lock()
	m.sessions[record.ID] = session
	active := len(m.sessions)
	m.mu.Unlock()

	metrics.ActiveSessions.Set(float64(active))
	m.logger.InfoContext(ctx, "Created planning session", "session_id", record.ID)

	return session, nil
}

// Get returns the resident session or rehydrates it from storage.
// ErrSessionNotFound means it exists in neither place.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	session, ok := m.sessions[id]
	m.mu.Unlock()

	if ok {
		return session, nil
	}

	if m.deps.Persistence == nil {
		return nil, ErrSessionNotFound
	}

	record, err := m.deps.Persistence.SessionByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}

	if record == nil {
		return nil, ErrSessionNotFound
	}

	reviveRecord(record)

	session = newSession(record, m.deps, m.config.Config)

	m.mu.Lock()

	if existing, ok := m.sessions[id]; ok {
		// A concurrent lookup won the rehydration race.
		m.mu.Unlock()

		return existing, nil
	}

	m.sessions[id] = session
	active := len(m.sessions)

	m.mu.Unlock()

	metrics.ActiveSessions.Set(float64(active))
	m.logger.InfoContext(ctx, "Rehydrated planning session", "session_id", id, "phase", record.Phase)

	return session, nil
}

// reviveRecord repairs a stored session for a fresh process. An agent
// cycle that was in flight when the previous process died cannot be
// resumed, so the phase falls back and the loss is reported as a failure
// the user can dismiss.
func reviveRecord(record *models.Session) {
	if record.Nodes == nil {
		record.Nodes = []*models.GraphNode{}
	}

	if record.Edges == nil {
		record.Edges = []*models.GraphEdge{}
	}

	interrupted := models.CheckFailure{
		Kind:    models.FailureKindGeneric,
		Message: agent.FailureMessage(models.FailureKindGeneric),
	}

	switch record.Phase {
	case models.PhaseGenerating:
		record.Phase = models.PhaseIdle
		record.Failure = &interrupted
	case models.PhaseChecking:
		record.Phase = models.PhaseEditing
		record.Failure = &interrupted

		current := graph.Take(record.Nodes, record.Edges)
		record.HasChanges = len(graph.Diff(record.Baseline, current)) > 0
	case models.PhaseIdle, models.PhaseEditing:
	}
}

// Delete removes a session everywhere: the resident set, its event feed
// and storage. In-flight agent work for it is orphaned.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	session, resident := m.sessions[id]
	delete(m.sessions, id)
	active := len(m.sessions)
	m.mu.Unlock()

	metrics.ActiveSessions.Set(float64(active))

	if resident {
		session.invalidate()
	} else if m.deps.Persistence != nil {
		record, err := m.deps.Persistence.SessionByID(ctx, id)
		if err != nil {
			return fmt.Errorf("load session %s: %w", id, err)
		}

		if record == nil {
			return ErrSessionNotFound
		}
	} else {
		return ErrSessionNotFound
	}

	m.journal.drop(id)

	if m.deps.Persistence != nil {
		err := m.deps.Persistence.DeleteSession(ctx, id)
		if err != nil {
			return fmt.Errorf("delete session %s: %w", id, err)
		}
	}

	m.logger.InfoContext(ctx, "Deleted planning session", "session_id", id)

	return nil
}

// Events returns the session's journal entries newer than seq.
func (m *Manager) Events(ctx context.Context, sessionID string, seq uint64) ([]JournalEntry, error) {
	_, err := m.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return m.journal.after(sessionID, seq), nil
}

// HealthCheck reports whether the storage backend is reachable.
func (m *Manager) HealthCheck(ctx context.Context) error {
	if m.deps.Persistence == nil {
		return nil
	}

	return m.deps.Persistence.HealthCheck(ctx)
}

func (m *Manager) startJanitor() error {
	runner := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	_, err := runner.AddFunc(m.config.JanitorSchedule, m.sweep)
	if err != nil {
		return fmt.Errorf("invalid janitor schedule %q: %w", m.config.JanitorSchedule, err)
	}

	runner.Start()
	m.cron = runner

	return nil
}

// sweep evicts resident sessions that have gone quiet and expires stored
// ones past the TTL. Sessions with an agent cycle in flight are left
// alone no matter how old they look.
func (m *Manager) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().UTC().Add(-m.config.SessionTTL)

	m.mu.Lock()

	for id, session := range m.sessions {
		state := session.State()
		if state.Phase == models.PhaseGenerating || state.Phase == models.PhaseChecking {
			continue
		}

		if state.UpdatedAt.Before(cutoff) {
			delete(m.sessions, id)
			m.journal.drop(id)
		}
	}

	active := len(m.sessions)

	m.mu.Unlock()

	metrics.ActiveSessions.Set(float64(active))

	if m.deps.Persistence == nil {
		return
	}

	removed, err := m.deps.Persistence.DeleteSessionsInactiveSince(ctx, cutoff)
	if err != nil {
		m.logger.ErrorContext(ctx, "Failed to expire stored sessions", "error", err)

		return
	}

	if removed > 0 {
		m.logger.InfoContext(ctx, "Expired inactive sessions", "count", removed, "cutoff", cutoff)
	}
}

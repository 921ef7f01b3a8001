package planner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/planward/planward/pkg/agent"
	"github.com/planward/planward/pkg/annotation"
	"github.com/planward/planward/pkg/eventbus"
	"github.com/planward/planward/pkg/events"
	"github.com/planward/planward/pkg/graph"
	"github.com/planward/planward/pkg/layout"
	"github.com/planward/planward/pkg/metrics"
	"github.com/planward/planward/pkg/models"
	"github.com/planward/planward/pkg/otelhelper"
)

// Session is the live, single-owner handle for one planning session. It
// sequences the three phases (generate, edit, check), owns the confirmed
// baseline and the undo history, and reconciles the agent's asynchronous
// tool calls back onto the graph. Every method is safe for concurrent
// use; edits keep working while a check is in flight.
type Session struct {
	id string

	mu         sync.Mutex
	record     *models.Session
	history    *history
	reconciler *annotation.Reconciler

	// summarized is the success marker for the current check: set when
	// the agent calls the terminal summary tool. A conversation that
	// ends without it is a failure, not a silent pass.
	summarized bool

	// cycle numbers generate/check initiations. Workers and tool calls
	// carry the cycle they belong to; anything arriving with an older
	// number is stale and is discarded instead of touching state.
	cycle uint64

	// closed is set when the session is deleted. A closed session refuses
	// operations and never writes to storage again, so a handle that
	// outlived the deletion cannot resurrect the record.
	closed bool

	deps   Dependencies
	config Config
	logger *slog.Logger
	tracer trace.Tracer
}

func newSession(record *models.Session, deps Dependencies, config Config) *Session {
	session := &Session{
		id:         record.ID,
		record:     record,
		history:    newHistory(historyLimit),
		reconciler: annotation.NewReconciler(),
		deps:       deps,
		config:     config,
		logger:     deps.Logger.With("session_id", record.ID),
		tracer:     otel.Tracer("planward/planner"),
	}

	session.reconciler.Load(record.Annotations)

	return session
}

// ID returns the session's stable identifier.
func (s *Session) ID() string {
	return s.id
}

// State returns an independent copy of the session, including the
// annotations accumulated so far in a running check.
func (s *Session) State() *models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.record.Annotations = s.reconciler.Snapshot()

	return s.record.Clone()
}

// UndoDepth returns how many undo steps are currently available.
func (s *Session) UndoDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.history.depth()
}

// Generate starts a fresh graph construction from planText. The current
// graph and the confirmed baseline are cleared immediately; the agent
// call runs in the background and the session stays responsive. A new
// generation may be started at any time — the latest initiation wins and
// results from superseded ones are dropped.
func (s *Session) Generate(ctx context.Context, planText string) error {
	planText = strings.TrimSpace(planText)
	if planText == "" {
		return ErrEmptyPlan
	}

	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()

		return ErrSessionNotFound
	}

	s.cycle++
	token := s.cycle

	s.record.PlanText = planText
	s.record.Phase = models.PhaseGenerating
	s.record.Nodes = []*models.GraphNode{}
	s.record.Edges = []*models.GraphEdge{}
	s.record.Baseline = nil
	s.record.HasChanges = false
	s.record.Insights = nil
	s.record.Summary = ""
	s.record.Failure = nil
	s.reconciler.Reset()
	s.summarized = false

	s.persistLocked(ctx)

	started := events.GenerationStarted{
		BaseEvent: events.NewBaseEvent(events.GenerationStartedEvent, s.id),
		PlanText:  planText,
	}

	s.mu.Unlock()

	s.publish(ctx, started)

	go s.runGeneration(token, planText)

	return nil
}

func (s *Session) runGeneration(token uint64, planText string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.GenerateTimeout)
	defer cancel()

	ctx, span := s.tracer.Start(ctx, "planner.generate",
		trace.WithAttributes(attribute.String(otelhelper.SessionIDKey, s.id)))
	defer span.End()

	started := time.Now()
	proposed, err := s.deps.Agent.ProposeGraph(ctx, planText)
	metrics.AgentRequestDuration.WithLabelValues("propose_graph").Observe(time.Since(started).Seconds())

	if err == nil && len(proposed.Nodes) == 0 {
		err = agent.ErrNoProposal
	}

	saveCtx := context.WithoutCancel(ctx)

	s.mu.Lock()

	if token != s.cycle {
		s.mu.Unlock()
		s.logger.InfoContext(ctx, "Discarding superseded generation result")

		return
	}

	if err != nil {
		failure := agent.Classify(err)

		s.record.Phase = models.PhaseIdle
		s.record.Failure = &failure
		s.persistLocked(saveCtx)

		failed := events.GenerationFailed{
			BaseEvent: events.NewBaseEvent(events.GenerationFailedEvent, s.id),
			Failure:   failure,
		}

		s.mu.Unlock()

		otelhelper.SetError(span, err)
		metrics.GenerationsTotal.WithLabelValues("failure").Inc()
		s.logger.ErrorContext(ctx, "Graph generation failed", "kind", failure.Kind, "error", err)
		s.publish(saveCtx, failed)

		return
	}

	nodes, edges := buildGraph(proposed)
	placed := layout.Apply(nodes, edges, layout.DefaultConfig())

	s.record.Nodes = placed
	s.record.Edges = edges
	s.record.Baseline = graph.Take(placed, edges)
	s.record.Phase = models.PhaseEditing
	s.record.HasChanges = false
	s.persistLocked(saveCtx)

	completed := events.GenerationCompleted{
		BaseEvent: events.NewBaseEvent(events.GenerationCompletedEvent, s.id),
		NodeCount: len(placed),
		EdgeCount: len(edges),
	}

	s.mu.Unlock()

	metrics.GenerationsTotal.WithLabelValues("success").Inc()
	s.logger.InfoContext(ctx, "Graph generation completed", "nodes", len(placed), "edges", len(edges))
	s.publish(saveCtx, completed)
}

// buildGraph turns a construction proposal into live graph records. The
// agent's arguments are trusted beyond basic shape repairs: duplicate
// node IDs keep their first occurrence and edges naming unknown nodes
// are dropped, because a confirmed snapshot must never hold either.
func buildGraph(proposed *agent.ProposedGraph) ([]*models.GraphNode, []*models.GraphEdge) {
	nodes := make([]*models.GraphNode, 0, len(proposed.Nodes))
	seen := make(map[string]struct{}, len(proposed.Nodes))

	for _, node := range proposed.Nodes {
		if node.ID == "" {
			continue
		}

		if _, duplicate := seen[node.ID]; duplicate {
			continue
		}

		seen[node.ID] = struct{}{}

		nodes = append(nodes, &models.GraphNode{ID: node.ID, Label: node.Label})
	}

	edges := make([]*models.GraphEdge, 0, len(proposed.Edges))

	for _, edge := range proposed.Edges {
		if _, ok := seen[edge.Source]; !ok {
			continue
		}

		if _, ok := seen[edge.Target]; !ok {
			continue
		}

		edges = append(edges, &models.GraphEdge{
			ID:     uuid.New().String(),
			Source: edge.Source,
			Target: edge.Target,
		})
	}

	return nodes, edges
}

// Check sends the changes since the confirmed baseline to the agent for
// review. It is refused while another check or a generation is running
// and when the graph is structurally identical to the baseline. The
// returned number identifies the check within this session.
//
// The baseline that a successful check confirms is the snapshot taken
// here, at initiation. Edits made while the check runs stay on the live
// graph but are not diffed for this cycle.
func (s *Session) Check(ctx context.Context) (int, error) {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()

		return 0, ErrSessionNotFound
	}

	switch s.record.Phase {
	case models.PhaseChecking:
		s.mu.Unlock()

		return 0, ErrCheckInFlight
	case models.PhaseIdle, models.PhaseGenerating:
		s.mu.Unlock()

		return 0, fmt.Errorf("%w: session is %s", ErrNotEditable, s.record.Phase)
	case models.PhaseEditing:
	}

	start := graph.Take(s.record.Nodes, s.record.Edges)

	changes := graph.Diff(s.record.Baseline, start)
	if len(changes) == 0 {
		s.mu.Unlock()

		return 0, ErrNoChanges
	}

	s.cycle++
	token := s.cycle

	s.record.CheckCount++
	check := s.record.CheckCount

	s.record.Phase = models.PhaseChecking
	s.record.Insights = nil
	s.record.Summary = ""
	s.record.Failure = nil
	s.reconciler.Reset()
	s.summarized = false

	request := agent.ValidationRequest{
		SessionID: s.id,
		Check:     check,
		Prompt:    buildValidationPrompt(s.id, check, s.record.PlanText, s.record.Baseline, start, changes),
	}

	s.persistLocked(ctx)

	base := events.NewBaseEvent(events.CheckStartedEvent, s.id)
	base.Check = check
	startedEvent := events.CheckStarted{BaseEvent: base, Changes: changes}

	s.mu.Unlock()

	s.publish(ctx, startedEvent)

	go s.runCheck(token, check, start, request)

	return check, nil
}

func (s *Session) runCheck(token uint64, check int, start *models.Snapshot, request agent.ValidationRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.CheckTimeout)
	defer cancel()

	ctx, span := s.tracer.Start(ctx, "planner.check", trace.WithAttributes(
		attribute.String(otelhelper.SessionIDKey, s.id),
		attribute.Int(otelhelper.CheckNumberKey, check),
	))
	defer span.End()

	tools := &checkTools{session: s, token: token, check: check}

	started := time.Now()
	err := s.deps.Agent.ValidateChanges(ctx, request, tools)
	metrics.AgentRequestDuration.WithLabelValues("validate_changes").Observe(time.Since(started).Seconds())

	saveCtx := context.WithoutCancel(ctx)

	s.mu.Lock()

	if token != s.cycle {
		s.mu.Unlock()
		s.logger.InfoContext(ctx, "Discarding superseded check result", "check", check)

		return
	}

	if err == nil && !s.summarized {
		err = errNoSummary
	}

	if err != nil {
		failure := agent.Classify(err)

		// Partial findings stay visible; only the baseline is left alone
		// so the same changes can be checked again.
		s.record.Phase = models.PhaseEditing
		s.record.Failure = &failure
		s.refreshChangesLocked()
		s.persistLocked(saveCtx)

		base := events.NewBaseEvent(events.CheckFailedEvent, s.id)
		base.Check = check
		failed := events.CheckFailed{BaseEvent: base, Failure: failure}

		s.mu.Unlock()

		otelhelper.SetError(span, err)
		metrics.ChecksTotal.WithLabelValues("failure").Inc()
		s.logger.ErrorContext(ctx, "Check failed", "check", check, "kind", failure.Kind, "error", err)
		s.publish(saveCtx, failed)

		return
	}

	// The snapshot taken at initiation becomes the confirmed baseline;
	// hasChanges is assigned, not recomputed, so edits made while the
	// check ran surface only on the next edit's diff.
	s.record.Phase = models.PhaseEditing
	s.record.Baseline = start
	s.record.HasChanges = false
	s.persistLocked(saveCtx)

	base := events.NewBaseEvent(events.CheckCompletedEvent, s.id)
	base.Check = check
	completed := events.CheckCompleted{
		BaseEvent:      base,
		AnnotatedNodes: len(s.record.Annotations),
		Insights:       len(s.record.Insights),
	}

	s.mu.Unlock()

	metrics.ChecksTotal.WithLabelValues("success").Inc()
	s.logger.InfoContext(ctx, "Check completed", "check", check,
		"annotated_nodes", completed.AnnotatedNodes, "insights", completed.Insights)
	s.publish(saveCtx, completed)
}

// AddNodeRequest carries the user's new step: its label (which may be
// empty) and where it was dropped on the canvas.
type AddNodeRequest struct {
	Label    string
	Position models.Position
}

// UpdateNodeRequest carries a partial node edit: a new label, a new
// position, or both.
type UpdateNodeRequest struct {
	Label    *string
	Position *models.Position
}

// AddEdgeRequest carries a new dependency between two existing nodes.
type AddEdgeRequest struct {
	Source string
	Target string
}

// AddNode appends a new node to the live graph.
func (s *Session) AddNode(ctx context.Context, req AddNodeRequest) (*models.GraphNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editableLocked(); err != nil {
		return nil, err
	}

	s.pushHistoryLocked()

	node := &models.GraphNode{
		ID:       uuid.New().String(),
		Label:    req.Label,
		Position: req.Position,
	}

	s.record.Nodes = append(s.record.Nodes, node)
	s.refreshChangesLocked()
	s.persistLocked(ctx)

	copied := *node

	return &copied, nil
}

// UpdateNode moves and/or relabels a node. Both kinds of edit push an
// undo entry, but neither shows up in a diff: positions are not part of
// the snapshot and labels are not part of node identity.
func (s *Session) UpdateNode(ctx context.Context, nodeID string, req UpdateNodeRequest) (*models.GraphNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editableLocked(); err != nil {
		return nil, err
	}

	node := s.record.Node(nodeID)
	if node == nil {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}

	s.pushHistoryLocked()

	if req.Label != nil {
		node.Label = *req.Label
	}

	if req.Position != nil {
		node.Position = *req.Position
	}

	s.refreshChangesLocked()
	s.persistLocked(ctx)

	copied := *node

	return &copied, nil
}

// DeleteNode removes a node and every edge touching it.
func (s *Session) DeleteNode(ctx context.Context, nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editableLocked(); err != nil {
		return err
	}

	if s.record.Node(nodeID) == nil {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}

	s.pushHistoryLocked()

	nodes := make([]*models.GraphNode, 0, len(s.record.Nodes))

	for _, node := range s.record.Nodes {
		if node.ID != nodeID {
			nodes = append(nodes, node)
		}
	}

	edges := make([]*models.GraphEdge, 0, len(s.record.Edges))

	for _, edge := range s.record.Edges {
		if edge.Source != nodeID && edge.Target != nodeID {
			edges = append(edges, edge)
		}
	}

	s.record.Nodes = nodes
	s.record.Edges = edges
	s.refreshChangesLocked()
	s.persistLocked(ctx)

	return nil
}

// AddEdge connects two existing nodes with a new dependency. Parallel
// edges between the same pair are allowed; the diff collapses them.
func (s *Session) AddEdge(ctx context.Context, req AddEdgeRequest) (*models.GraphEdge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editableLocked(); err != nil {
		return nil, err
	}

	if s.record.Node(req.Source) == nil {
		return nil, fmt.Errorf("%w: source %q", ErrUnknownEndpoint, req.Source)
	}

	if s.record.Node(req.Target) == nil {
		return nil, fmt.Errorf("%w: target %q", ErrUnknownEndpoint, req.Target)
	}

	s.pushHistoryLocked()

	edge := &models.GraphEdge{
		ID:     uuid.New().String(),
		Source: req.Source,
		Target: req.Target,
	}

	s.record.Edges = append(s.record.Edges, edge)
	s.refreshChangesLocked()
	s.persistLocked(ctx)

	copied := *edge

	return &copied, nil
}

// DeleteEdge removes a dependency by its edge ID.
func (s *Session) DeleteEdge(ctx context.Context, edgeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editableLocked(); err != nil {
		return err
	}

	if s.record.Edge(edgeID) == nil {
		return fmt.Errorf("%w: %s", ErrEdgeNotFound, edgeID)
	}

	s.pushHistoryLocked()

	edges := make([]*models.GraphEdge, 0, len(s.record.Edges))

	for _, edge := range s.record.Edges {
		if edge.ID != edgeID {
			edges = append(edges, edge)
		}
	}

	s.record.Edges = edges
	s.refreshChangesLocked()
	s.persistLocked(ctx)

	return nil
}

// Undo restores the most recent undo entry verbatim, positions included.
// It never touches the confirmed baseline or the annotations, so undoing
// back to the baseline correctly reports no changes again. With nothing
// to undo it is a no-op, not an error.
func (s *Session) Undo(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionNotFound
	}

	switch s.record.Phase {
	case models.PhaseGenerating, models.PhaseChecking:
		return ErrUndoUnavailable
	case models.PhaseIdle, models.PhaseEditing:
	}

	nodes, edges, ok := s.history.pop()
	if !ok {
		return nil
	}

	s.record.Nodes = nodes
	s.record.Edges = edges
	s.refreshChangesLocked()
	s.persistLocked(ctx)

	return nil
}

// DismissFailure clears the failure message shown to the user. With no
// failure present it is a no-op.
func (s *Session) DismissFailure(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionNotFound
	}

	if s.record.Failure == nil {
		return nil
	}

	s.record.Failure = nil
	s.persistLocked(ctx)

	return nil
}

// editableLocked reports whether the graph accepts edits right now.
// Edits are welcome during a running check; they land on the live graph
// and are picked up by the next diff.
func (s *Session) editableLocked() error {
	if s.closed {
		return ErrSessionNotFound
	}

	switch s.record.Phase {
	case models.PhaseEditing, models.PhaseChecking:
		return nil
	default:
		return fmt.Errorf("%w: session is %s", ErrNotEditable, s.record.Phase)
	}
}

func (s *Session) pushHistoryLocked() {
	s.history.push(s.record.Nodes, s.record.Edges)
}

// refreshChangesLocked recomputes hasChanges by diffing the live graph
// against the confirmed baseline. Position-only moves never produce a
// diff entry, so they can never flip the flag.
func (s *Session) refreshChangesLocked() {
	current := graph.Take(s.record.Nodes, s.record.Edges)
	s.record.HasChanges = len(graph.Diff(s.record.Baseline, current)) > 0
}

// invalidate marks the session deleted: in-flight cycles are orphaned
// and nothing is written to storage from here on.
func (s *Session) invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cycle++
	s.closed = true
}

// persistLocked mirrors the session to storage. The in-memory state is
// canonical; a failed write is logged and the session keeps going.
func (s *Session) persistLocked(ctx context.Context) {
	s.record.Annotations = s.reconciler.Snapshot()

	if s.deps.Persistence == nil || s.closed {
		return
	}

	err := s.deps.Persistence.SaveSession(ctx, s.record)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist session", "error", err)
	}
}

func (s *Session) publish(ctx context.Context, event eventbus.Event) {
	if s.deps.EventBus == nil {
		return
	}

	err := s.deps.EventBus.Publish(ctx, s.id, event)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}

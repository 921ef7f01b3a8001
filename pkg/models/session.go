package models

import "time"

// Phase represents the lifecycle state of a planning session.
type Phase string

const (
	PhaseIdle       Phase = "idle"       // No graph yet, nothing in flight
	PhaseGenerating Phase = "generating" // Agent is building the initial graph
	PhaseEditing    Phase = "editing"    // Graph present, user may edit
	PhaseChecking   Phase = "checking"   // Agent is validating pending changes
)

// Session represents one planning session: a plan text, the dependency
// graph derived from it, and the running state of the check cycle.
type Session struct {
	ID       string `json:"id"`
	PlanText string `json:"plan_text" validate:"required"`
	Phase    Phase  `json:"phase"`

	Nodes []*GraphNode `json:"nodes"`
	Edges []*GraphEdge `json:"edges"`

	// Baseline is the last confirmed shape of the graph. It is set when
	// generation completes and replaced only by a fully successful check.
	// Nil means no graph has ever been confirmed.
	Baseline *Snapshot `json:"baseline,omitempty"`

	// HasChanges reports whether the current graph differs structurally
	// from the baseline. Position moves never set it.
	HasChanges bool `json:"has_changes"`

	// CheckCount numbers check attempts for this session, starting at 1.
	CheckCount int `json:"check_count"`

	// Annotations holds the per-node verdicts from the most recent check,
	// keyed by node ID. Cleared when a new check starts.
	Annotations map[string]*Annotation `json:"annotations,omitempty"`

	// Insights are the plan-level observations from the most recent check.
	Insights []*Insight `json:"insights,omitempty"`

	// Summary is the agent's closing assessment of the most recent check.
	Summary string `json:"summary,omitempty"`

	// Failure describes why the last generation or check attempt did not
	// complete. Nil while an attempt is in flight or after a clean finish.
	Failure *CheckFailure `json:"failure,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Node returns the node with the given ID, or nil.
func (s *Session) Node(id string) *GraphNode {
	for _, node := range s.Nodes {
		if node.ID == id {
			return node
		}
	}

	return nil
}

// Edge returns the edge with the given ID, or nil.
func (s *Session) Edge(id string) *GraphEdge {
	for _, edge := range s.Edges {
		if edge.ID == id {
			return edge
		}
	}

	return nil
}

// Clone returns a deep copy of the session, safe to hand to callers
// outside the lock that guards the live one.
func (s *Session) Clone() *Session {
	clone := *s

	clone.Nodes = make([]*GraphNode, len(s.Nodes))
	for i, node := range s.Nodes {
		copied := *node
		clone.Nodes[i] = &copied
	}

	clone.Edges = make([]*GraphEdge, len(s.Edges))
	for i, edge := range s.Edges {
		copied := *edge
		clone.Edges[i] = &copied
	}

	clone.Baseline = s.Baseline.Clone()

	if s.Annotations != nil {
		clone.Annotations = make(map[string]*Annotation, len(s.Annotations))
		for id, annotation := range s.Annotations {
			clone.Annotations[id] = &Annotation{
				Status:  annotation.Status,
				Reasons: append([]string(nil), annotation.Reasons...),
			}
		}
	}

	if s.Insights != nil {
		clone.Insights = make([]*Insight, len(s.Insights))
		for i, insight := range s.Insights {
			copied := *insight
			clone.Insights[i] = &copied
		}
	}

	if s.Failure != nil {
		failure := *s.Failure
		clone.Failure = &failure
	}

	return &clone
}

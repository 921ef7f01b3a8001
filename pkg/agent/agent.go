// Package agent defines the boundary between the planning core and the
// reasoning model that builds plan graphs and reviews user edits to them.
package agent

import (
	"context"

	"github.com/planward/planward/pkg/models"
)

// ProposedNode is a single step in a construction response.
type ProposedNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// ProposedEdge is a dependency in a construction response: Source must
// finish before Target can start.
type ProposedEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// ProposedGraph is the complete graph returned by one construction call.
type ProposedGraph struct {
	Nodes []ProposedNode `json:"nodes"`
	Edges []ProposedEdge `json:"edges"`
}

// ValidationRequest carries the assembled review context for one check
// cycle. Prompt is the full text block the agent reads; SessionID and
// Check identify the cycle for logging and tracing.
type ValidationRequest struct {
	SessionID string
	Check     int
	Prompt    string
}

// Tools is the surface the agent can call while reviewing plan changes.
// Implementations record findings as they arrive so that partial results
// survive an interaction that later breaks down.
type Tools interface {
	// FlagNode records a verdict for one node and returns the status
	// that remains after merging with earlier verdicts for it.
	FlagNode(ctx context.Context, nodeID string, status models.NodeStatus, reason string) (models.NodeStatus, error)

	// AddInsight records a plan-level observation.
	AddInsight(ctx context.Context, kind models.InsightKind, message string) error

	// SummarizeCheck records the closing assessment of the review.
	SummarizeCheck(ctx context.Context, summary string) error

	// SearchMemory looks up remembered context about the user's plans.
	SearchMemory(ctx context.Context, query string) (string, error)

	// StoreMemory saves a remark about the user's planning habits.
	StoreMemory(ctx context.Context, text string) error
}

// Agent produces plan graphs from prose and reviews user edits to them.
type Agent interface {
	// ProposeGraph turns plan text into a dependency graph.
	ProposeGraph(ctx context.Context, planText string) (*ProposedGraph, error)

	// ValidateChanges walks the agent through the edits described in req,
	// dispatching every tool call to tools. It returns once the agent
	// stops calling tools or the round budget runs out; a non-nil error
	// means the interaction itself broke down. Whether the review
	// concluded is judged by the caller from the tool calls it received,
	// not from the return value.
	ValidateChanges(ctx context.Context, req ValidationRequest, tools Tools) error
}

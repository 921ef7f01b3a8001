package planner

import (
	"context"

	"github.com/planward/planward/pkg/agent"
	"github.com/planward/planward/pkg/events"
	"github.com/planward/planward/pkg/metrics"
	"github.com/planward/planward/pkg/models"
)

// checkTools applies one check cycle's tool calls to its session. Every
// state-changing call verifies the cycle token first, so calls straggling
// in from a superseded check are acknowledged to the agent but change
// nothing. Memory tools carry no session state and skip the guard.
type checkTools struct {
	session *Session
	token   uint64
	check   int
}

var _ agent.Tools = (*checkTools)(nil)

func (t *checkTools) FlagNode(ctx context.Context, nodeID string, status models.NodeStatus, reason string) (models.NodeStatus, error) {
	s := t.session

	s.mu.Lock()

	if t.token != s.cycle {
		s.mu.Unlock()

		return status, nil
	}

	resolved := s.reconciler.Flag(nodeID, status, reason)

	base := events.NewBaseEvent(events.NodeFlaggedEvent, s.id)
	base.Check = t.check
	flagged := events.NodeFlagged{BaseEvent: base, NodeID: nodeID, Status: resolved, Reason: reason}

	s.mu.Unlock()

	metrics.ToolCallsTotal.WithLabelValues(agent.ToolFlagNode).Inc()
	s.publish(ctx, flagged)

	return resolved, nil
}

func (t *checkTools) AddInsight(ctx context.Context, kind models.InsightKind, message string) error {
	s := t.session

	s.mu.Lock()

	if t.token != s.cycle {
		s.mu.Unlock()

		return nil
	}

	s.record.Insights = append(s.record.Insights, &models.Insight{Kind: kind, Message: message})

	base := events.NewBaseEvent(events.InsightAddedEvent, s.id)
	base.Check = t.check
	added := events.InsightAdded{BaseEvent: base, Kind: kind, Message: message}

	s.mu.Unlock()

	metrics.ToolCallsTotal.WithLabelValues(agent.ToolAddInsight).Inc()
	s.publish(ctx, added)

	return nil
}

func (t *checkTools) SummarizeCheck(ctx context.Context, summary string) error {
	s := t.session

	s.mu.Lock()

	if t.token != s.cycle {
		s.mu.Unlock()

		return nil
	}

	s.record.Summary = summary
	s.summarized = true

	base := events.NewBaseEvent(events.CheckSummarizedEvent, s.id)
	base.Check = t.check
	summarized := events.CheckSummarized{BaseEvent: base, Summary: summary}

	s.mu.Unlock()

	metrics.ToolCallsTotal.WithLabelValues(agent.ToolSummarizeCheck).Inc()
	s.publish(ctx, summarized)

	return nil
}

func (t *checkTools) SearchMemory(ctx context.Context, query string) (string, error) {
	metrics.ToolCallsTotal.WithLabelValues(agent.ToolSearchMemory).Inc()

	return t.session.deps.Memory.Search(ctx, t.session.id, query)
}

func (t *checkTools) StoreMemory(ctx context.Context, text string) error {
	metrics.ToolCallsTotal.WithLabelValues(agent.ToolStoreMemory).Inc()

	return t.session.deps.Memory.Store(ctx, t.session.id, text)
}

// Package web provides HTTP request and response types for the planning API.
package web

import (
	"github.com/planward/planward/pkg/models"
	"github.com/planward/planward/pkg/planner"
)

// GenerateRequest represents the request body for turning a plan into a
// dependency graph.
type GenerateRequest struct {
	PlanText string `json:"plan_text" validate:"required"`
}

// CreateNodeRequest represents the request body for adding a step to the
// live graph. The label may be blank; the canvas renders a placeholder
// until the user names the step.
type CreateNodeRequest struct {
	Label    string          `json:"label"`
	Position models.Position `json:"position"`
}

// UpdateNodeRequest represents a partial node edit: a relabel, a move, or
// both. At least one field must be present.
type UpdateNodeRequest struct {
	Label    *string          `json:"label,omitempty"    validate:"required_without=Position"`
	Position *models.Position `json:"position,omitempty" validate:"required_without=Label"`
}

// CreateEdgeRequest represents the request body for adding a dependency
// between two existing nodes.
type CreateEdgeRequest struct {
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
}

// SessionResponse wraps a session with the presentation data the canvas
// needs alongside it: one style per node and the depth of the undo stack.
type SessionResponse struct {
	*models.Session

	NodeStyles map[string]models.NodeStyle `json:"node_styles"`
	UndoDepth  int                         `json:"undo_depth"`
}

// NewSessionResponse derives per-node styles from the session's
// annotations. Nodes without a verdict render with the default style.
func NewSessionResponse(session *models.Session, undoDepth int) SessionResponse {
	styles := make(map[string]models.NodeStyle, len(session.Nodes))

	for _, node := range session.Nodes {
		style := models.NodeStyleDefault
		if annotation, ok := session.Annotations[node.ID]; ok {
			style = models.StyleFor(annotation.Status)
		}

		styles[node.ID] = style
	}

	return SessionResponse{
		Session:    session,
		NodeStyles: styles,
		UndoDepth:  undoDepth,
	}
}

// EventsResponse is one page of a session's event feed. NextAfter is the
// cursor to pass on the next poll; it repeats the request's cursor when
// nothing new arrived.
type EventsResponse struct {
	Events    []planner.JournalEntry `json:"events"`
	NextAfter uint64                 `json:"next_after"`
}

// NewEventsResponse pages journal entries after the given cursor.
func NewEventsResponse(entries []planner.JournalEntry, after uint64) EventsResponse {
	next := after
	if len(entries) > 0 {
		next = entries[len(entries)-1].Seq
	}

	return EventsResponse{Events: entries, NextAfter: next}
}

package planner

import "github.com/planward/planward/pkg/models"

// visualState is one undo entry: the full visual graph including
// positions, not the reduced snapshot. Undo restores exactly what the
// user saw, pixel placement included.
type visualState struct {
	nodes []*models.GraphNode
	edges []*models.GraphEdge
}

// history is the bounded undo stack. Entries are pushed immediately
// before every user-initiated mutation and popped by undo. When the
// stack is full the oldest entry is dropped without ceremony. It is
// never persisted; a restarted session starts with an empty stack.
type history struct {
	states []visualState
	limit  int
}

func newHistory(limit int) *history {
	return &history{states: make([]visualState, 0, limit), limit: limit}
}

// push records a deep copy of the given graph as the newest entry.
func (h *history) push(nodes []*models.GraphNode, edges []*models.GraphEdge) {
	state := visualState{
		nodes: make([]*models.GraphNode, len(nodes)),
		edges: make([]*models.GraphEdge, len(edges)),
	}

	for i, node := range nodes {
		copied := *node
		state.nodes[i] = &copied
	}

	for i, edge := range edges {
		copied := *edge
		state.edges[i] = &copied
	}

	if len(h.states) == h.limit {
		copy(h.states, h.states[1:])
		h.states = h.states[:h.limit-1]
	}

	h.states = append(h.states, state)
}

// pop removes and returns the newest entry. The third return is false
// when the stack is empty, which callers treat as a no-op.
func (h *history) pop() ([]*models.GraphNode, []*models.GraphEdge, bool) {
	if len(h.states) == 0 {
		return nil, nil, false
	}

	state := h.states[len(h.states)-1]
	h.states = h.states[:len(h.states)-1]

	return state.nodes, state.edges, true
}

// depth returns how many undo steps are available.
func (h *history) depth() int {
	return len(h.states)
}

// Package models defines the core domain models for AI-assisted plan graphs
package models

// Position is a node's placement on the canvas. The origin is the
// canvas top-left corner; coordinates address the node's top-left.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// GraphNode is a single step in a plan graph.
type GraphNode struct {
	ID       string   `json:"id"       validate:"required"`
	Label    string   `json:"label"`
	Position Position `json:"position"`
}

// DisplayLabel returns the text shown for the node. Nodes without a
// label fall back to their raw ID so they stay addressable in diffs
// and descriptions.
func (n *GraphNode) DisplayLabel() string {
	if n.Label == "" {
		return n.ID
	}

	return n.Label
}

// GraphEdge is a directed dependency between two steps: the source
// must complete before the target starts.
type GraphEdge struct {
	ID     string `json:"id"     validate:"required"`
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
}

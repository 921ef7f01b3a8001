// Package graph projects live plan graphs into position-free snapshots,
// renders them as agent-readable text, and computes human-readable
// structural diffs between two snapshots.
package graph

import (
	"strings"

	"github.com/planward/planward/pkg/models"
)

// EmptyDescription is the fixed rendering of a graph with no nodes.
const EmptyDescription = "The graph is empty: no nodes and no dependencies."

// Take serializes the live graph into a snapshot. Only structural
// identity survives: node IDs with their labels, and edge endpoint
// pairs. Positions and styles are dropped. Empty labels pass through
// as empty strings, and input order is preserved.
func Take(nodes []*models.GraphNode, edges []*models.GraphEdge) *models.Snapshot {
	snapshot := &models.Snapshot{
		Nodes: make([]models.SnapshotNode, 0, len(nodes)),
		Edges: make([]models.SnapshotEdge, 0, len(edges)),
	}

	for _, node := range nodes {
		snapshot.Nodes = append(snapshot.Nodes, models.SnapshotNode{ID: node.ID, Label: node.Label})
	}

	for _, edge := range edges {
		snapshot.Edges = append(snapshot.Edges, models.SnapshotEdge{Source: edge.Source, Target: edge.Target})
	}

	return snapshot
}

// Describe renders a snapshot as deterministic text for the agent: one
// line listing every node as `"label" (id)`, one line listing every
// dependency as `"source" → "target"`, or the literal "none" when
// there are no edges. Edge endpoints that reference a missing node
// fall back to the raw ID.
func Describe(snapshot *models.Snapshot) string {
	if snapshot == nil || len(snapshot.Nodes) == 0 {
		return EmptyDescription
	}

	labels := labelsOf(snapshot)

	nodes := make([]string, 0, len(snapshot.Nodes))
	for _, node := range snapshot.Nodes {
		nodes = append(nodes, quote(node.Label)+" ("+node.ID+")")
	}

	edges := "none"

	if len(snapshot.Edges) > 0 {
		lines := make([]string, 0, len(snapshot.Edges))
		for _, edge := range snapshot.Edges {
			lines = append(lines, quote(labels.resolve(edge.Source))+" → "+quote(labels.resolve(edge.Target)))
		}

		edges = strings.Join(lines, ", ")
	}

	return "Nodes: " + strings.Join(nodes, ", ") + "\nDependencies: " + edges
}

// labelIndex maps node IDs to labels within one snapshot. Labels are
// always resolved against the snapshot an edge came from, never the
// other side of a diff.
type labelIndex map[string]string

func labelsOf(snapshot *models.Snapshot) labelIndex {
	index := make(labelIndex, len(snapshot.Nodes))
	for _, node := range snapshot.Nodes {
		index[node.ID] = node.Label
	}

	return index
}

// resolve returns the label recorded for the ID, or the ID itself when
// the snapshot has no such node. A present node with an empty label
// resolves to the empty string, not the ID.
func (l labelIndex) resolve(id string) string {
	if label, ok := l[id]; ok {
		return label
	}

	return id
}

func quote(s string) string {
	return `"` + s + `"`
}

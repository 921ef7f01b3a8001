package graph

import (
	"github.com/planward/planward/pkg/models"
)

// Diff computes the ordered list of human-readable structural changes
// from previous to current. The output order is fixed: deleted nodes
// in previous order, added nodes in current order, removed dependencies
// in previous order, added dependencies in current order.
//
// Node identity is the ID. Edge identity is the direction-sensitive
// (source, target) pair. Relabeling a node in place is invisible here:
// labels are resolved lazily from each side's own node map and never
// compared. A nil snapshot on either side counts as empty. An empty
// result means the two graphs are structurally identical.
func Diff(previous, current *models.Snapshot) []string {
	if previous == nil {
		previous = models.EmptySnapshot()
	}

	if current == nil {
		current = models.EmptySnapshot()
	}

	previousNodes := nodeSet(previous)
	currentNodes := nodeSet(current)
	previousEdges := edgeSet(previous)
	currentEdges := edgeSet(current)
	previousLabels := labelsOf(previous)
	currentLabels := labelsOf(current)

	changes := make([]string, 0)

	for _, node := range previous.Nodes {
		if _, kept := currentNodes[node.ID]; !kept {
			changes = append(changes, "Deleted node: "+quote(node.Label))
		}
	}

	for _, node := range current.Nodes {
		if _, existed := previousNodes[node.ID]; !existed {
			changes = append(changes, "Added node: "+quote(node.Label))
		}
	}

	for _, edge := range previous.Edges {
		if _, kept := currentEdges[edge]; !kept {
			changes = append(changes, "Removed dependency: "+quote(previousLabels.resolve(edge.Source))+" → "+quote(previousLabels.resolve(edge.Target)))
		}
	}

	for _, edge := range current.Edges {
		if _, existed := previousEdges[edge]; !existed {
			changes = append(changes, "Added dependency: "+quote(currentLabels.resolve(edge.Source))+" → "+quote(currentLabels.resolve(edge.Target)))
		}
	}

	return changes
}

func nodeSet(snapshot *models.Snapshot) map[string]struct{} {
	set := make(map[string]struct{}, len(snapshot.Nodes))
	for _, node := range snapshot.Nodes {
		set[node.ID] = struct{}{}
	}

	return set
}

func edgeSet(snapshot *models.Snapshot) map[models.SnapshotEdge]struct{} {
	set := make(map[models.SnapshotEdge]struct{}, len(snapshot.Edges))
	for _, edge := range snapshot.Edges {
		set[edge] = struct{}{}
	}

	return set
}

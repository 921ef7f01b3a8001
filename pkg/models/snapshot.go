package models

// SnapshotNode is a node reduced to its identity and display text.
type SnapshotNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// SnapshotEdge is an edge reduced to its endpoints. Direction matters:
// (a, b) and (b, a) are different dependencies.
type SnapshotEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Snapshot is the structural identity of a graph at a point in time.
// It carries no positions, so moving nodes around the canvas never
// changes a snapshot. Node and edge order is preserved from the graph
// it was taken from.
type Snapshot struct {
	Nodes []SnapshotNode `json:"nodes"`
	Edges []SnapshotEdge `json:"edges"`
}

// EmptySnapshot returns a snapshot with no nodes and no edges. A nil
// baseline and an empty snapshot are interchangeable everywhere.
func EmptySnapshot() *Snapshot {
	return &Snapshot{Nodes: []SnapshotNode{}, Edges: []SnapshotEdge{}}
}

// Clone returns a deep copy of the snapshot. Cloning nil yields nil.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}

	return &Snapshot{
		Nodes: append([]SnapshotNode(nil), s.Nodes...),
		Edges: append([]SnapshotEdge(nil), s.Edges...),
	}
}

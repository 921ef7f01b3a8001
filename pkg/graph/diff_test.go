package graph

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/planward/planward/pkg/models"
)

func twoNodeSnapshot() *models.Snapshot {
	return &models.Snapshot{
		Nodes: []models.SnapshotNode{
			{ID: "a", Label: "A"},
			{ID: "b", Label: "B"},
		},
		Edges: []models.SnapshotEdge{
			{Source: "a", Target: "b"},
		},
	}
}

func TestDiff_IdenticalSnapshotsProduceNothing(t *testing.T) {
	snapshot := twoNodeSnapshot()

	assert.Empty(t, Diff(snapshot, snapshot))
	assert.Empty(t, Diff(twoNodeSnapshot(), twoNodeSnapshot()))
}

func TestDiff_LabelOnlyChangeIsInvisible(t *testing.T) {
	previous := twoNodeSnapshot()
	current := twoNodeSnapshot()
	current.Nodes[0].Label = "A renamed"

	assert.Empty(t, Diff(previous, current))
}

func TestDiff_AddedNodeAndDependency(t *testing.T) {
	previous := twoNodeSnapshot()
	current := &models.Snapshot{
		Nodes: []models.SnapshotNode{
			{ID: "a", Label: "A"},
			{ID: "b", Label: "B"},
			{ID: "c", Label: "C"},
		},
		Edges: []models.SnapshotEdge{
			{Source: "a", Target: "b"},
			{Source: "b", Target: "c"},
		},
	}

	assert.Equal(t, []string{
		`Added node: "C"`,
		`Added dependency: "B" → "C"`,
	}, Diff(previous, current))
}

func TestDiff_OutputOrderIsDeletedAddedRemovedAdded(t *testing.T) {
	previous := &models.Snapshot{
		Nodes: []models.SnapshotNode{
			{ID: "a", Label: "A"},
			{ID: "b", Label: "B"},
		},
		Edges: []models.SnapshotEdge{
			{Source: "a", Target: "b"},
		},
	}
	current := &models.Snapshot{
		Nodes: []models.SnapshotNode{
			{ID: "b", Label: "B"},
			{ID: "c", Label: "C"},
		},
		Edges: []models.SnapshotEdge{
			{Source: "b", Target: "c"},
		},
	}

	assert.Equal(t, []string{
		`Deleted node: "A"`,
		`Added node: "C"`,
		`Removed dependency: "A" → "B"`,
		`Added dependency: "B" → "C"`,
	}, Diff(previous, current))
}

func TestDiff_MembershipIgnoresInputOrder(t *testing.T) {
	previous := twoNodeSnapshot()

	current := &models.Snapshot{
		Nodes: []models.SnapshotNode{
			{ID: "c", Label: "C"},
			{ID: "b", Label: "B"},
			{ID: "a", Label: "A"},
		},
		Edges: []models.SnapshotEdge{
			{Source: "b", Target: "c"},
			{Source: "a", Target: "b"},
		},
	}
	reordered := &models.Snapshot{
		Nodes: []models.SnapshotNode{
			{ID: "a", Label: "A"},
			{ID: "b", Label: "B"},
			{ID: "c", Label: "C"},
		},
		Edges: []models.SnapshotEdge{
			{Source: "a", Target: "b"},
			{Source: "b", Target: "c"},
		},
	}

	first := Diff(previous, current)
	second := Diff(previous, reordered)

	sort.Strings(first)
	sort.Strings(second)
	assert.Equal(t, first, second)
}

func TestDiff_EdgeDirectionMatters(t *testing.T) {
	previous := twoNodeSnapshot()
	current := &models.Snapshot{
		Nodes: previous.Nodes,
		Edges: []models.SnapshotEdge{
			{Source: "b", Target: "a"},
		},
	}

	assert.Equal(t, []string{
		`Removed dependency: "A" → "B"`,
		`Added dependency: "B" → "A"`,
	}, Diff(previous, current))
}

func TestDiff_NilSnapshotCountsAsEmpty(t *testing.T) {
	current := twoNodeSnapshot()

	assert.Equal(t, []string{
		`Added node: "A"`,
		`Added node: "B"`,
		`Added dependency: "A" → "B"`,
	}, Diff(nil, current))

	assert.Equal(t, []string{
		`Deleted node: "A"`,
		`Deleted node: "B"`,
		`Removed dependency: "A" → "B"`,
	}, Diff(current, nil))
}

func TestDiff_DeletedNodeUsesPreviousLabel(t *testing.T) {
	previous := &models.Snapshot{
		Nodes: []models.SnapshotNode{{ID: "a", Label: "Original name"}},
	}

	assert.Equal(t, []string{`Deleted node: "Original name"`}, Diff(previous, models.EmptySnapshot()))
}

func TestDiff_RemovedDependencyResolvesLabelsFromPreviousSide(t *testing.T) {
	previous := &models.Snapshot{
		Nodes: []models.SnapshotNode{
			{ID: "a", Label: "Old A"},
			{ID: "b", Label: "Old B"},
		},
		Edges: []models.SnapshotEdge{{Source: "a", Target: "b"}},
	}
	current := &models.Snapshot{
		Nodes: []models.SnapshotNode{
			{ID: "a", Label: "New A"},
			{ID: "b", Label: "New B"},
		},
	}

	assert.Equal(t, []string{`Removed dependency: "Old A" → "Old B"`}, Diff(previous, current))
}

func TestDiff_DanglingEdgeEndpointFallsBackToRawID(t *testing.T) {
	previous := &models.Snapshot{
		Nodes: []models.SnapshotNode{{ID: "a", Label: "A"}},
		Edges: []models.SnapshotEdge{{Source: "a", Target: "ghost"}},
	}

	changes := Diff(previous, &models.Snapshot{Nodes: previous.Nodes})
	assert.Equal(t, []string{`Removed dependency: "A" → "ghost"`}, changes)
}

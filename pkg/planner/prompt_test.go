package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/planward/planward/pkg/graph"
	"github.com/planward/planward/pkg/models"
)

func TestBuildValidationPrompt(t *testing.T) {
	previous := &models.Snapshot{
		Nodes: []models.SnapshotNode{{ID: "a", Label: "Book venue"}},
	}
	current := &models.Snapshot{
		Nodes: []models.SnapshotNode{
			{ID: "a", Label: "Book venue"},
			{ID: "b", Label: "Send invites"},
		},
		Edges: []models.SnapshotEdge{{Source: "a", Target: "b"}},
	}

	changes := []string{
		`Added node: "Send invites"`,
		`Added dependency: "Book venue" → "Send invites"`,
	}

	prompt := buildValidationPrompt("session-1", 3, "Throw a launch party", previous, current, changes)

	assert.Contains(t, prompt, "Session: session-1\n")
	assert.Contains(t, prompt, "Check number: 3\n")
	assert.Contains(t, prompt, "Original plan:\nThrow a launch party\n")
	assert.Contains(t, prompt, "Graph confirmed at the last check:\n"+graph.Describe(previous))
	assert.Contains(t, prompt, "Graph after the user's edits:\n"+graph.Describe(current))
	assert.Contains(t, prompt, "Changes the user made:\n")
	assert.Contains(t, prompt, "1. Added node: \"Send invites\"\n")
	assert.Contains(t, prompt, "2. Added dependency: \"Book venue\" → \"Send invites\"\n")
}

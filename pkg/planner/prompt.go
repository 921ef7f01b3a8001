package planner

import (
	"fmt"
	"strings"

	"github.com/planward/planward/pkg/graph"
	"github.com/planward/planward/pkg/models"
)

// buildValidationPrompt assembles the single text block the agent reads
// for one check: the session identity, the check number, the original
// plan verbatim, both graph descriptions, and the numbered change list.
// The change list is never empty; a check without changes is refused
// before a prompt is built.
func buildValidationPrompt(sessionID string, check int, planText string, previous, current *models.Snapshot, changes []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Session: %s\n", sessionID)
	fmt.Fprintf(&b, "Check number: %d\n\n", check)

	b.WriteString("Original plan:\n")
	b.WriteString(planText)
	b.WriteString("\n\n")

	b.WriteString("Graph confirmed at the last check:\n")
	b.WriteString(graph.Describe(previous))
	b.WriteString("\n\n")

	b.WriteString("Graph after the user's edits:\n")
	b.WriteString(graph.Describe(current))
	b.WriteString("\n\n")

	b.WriteString("Changes the user made:\n")

	for i, change := range changes {
		fmt.Fprintf(&b, "%d. %s\n", i+1, change)
	}

	return b.String()
}

package models

// InsightKind categorizes a plan-level observation from a check.
type InsightKind string

const (
	InsightKindWarning    InsightKind = "warning"    // Something about the plan looks wrong
	InsightKindSuggestion InsightKind = "suggestion" // The plan could be improved
)

// Insight is a plan-level observation that does not belong to any one
// node. Insights accumulate in arrival order within a check.
type Insight struct {
	Kind    InsightKind `json:"kind"`
	Message string      `json:"message"`
}

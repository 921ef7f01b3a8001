package planner

import "errors"

// Refusals and lookup failures surfaced by session operations. The web
// layer maps these onto problem responses; everything else is a 500.
var (
	// ErrSessionNotFound is returned when no session with the given ID
	// exists in memory or in storage.
	ErrSessionNotFound = errors.New("session not found")

	// ErrEmptyPlan is returned when a generation is requested with no
	// plan text. The request is refused before anything is touched.
	ErrEmptyPlan = errors.New("plan text is empty")

	// ErrNoChanges is returned when a check is requested while the graph
	// is structurally identical to the confirmed baseline.
	ErrNoChanges = errors.New("graph has no changes since the last check")

	// ErrCheckInFlight is returned when a check is requested while one is
	// already running. At most one check runs per session.
	ErrCheckInFlight = errors.New("a check is already running")

	// ErrNotEditable is returned for graph edits in a phase that has no
	// editable graph, which is any phase before the first generation
	// completes.
	ErrNotEditable = errors.New("session graph is not editable")

	// ErrUndoUnavailable is returned for undo attempts while the agent is
	// generating or checking.
	ErrUndoUnavailable = errors.New("undo is not available while the agent is working")

	// ErrNodeNotFound is returned when an edit names a node the graph
	// does not have.
	ErrNodeNotFound = errors.New("node not found")

	// ErrEdgeNotFound is returned when an edit names an edge the graph
	// does not have.
	ErrEdgeNotFound = errors.New("edge not found")

	// ErrUnknownEndpoint is returned when a new edge references a node
	// that does not exist. The live graph never holds dangling edges.
	ErrUnknownEndpoint = errors.New("edge endpoint does not exist")

	// errNoSummary marks a validation conversation that ended without
	// the closing summary call. Silence is a failure, not a clean pass.
	errNoSummary = errors.New("the agent finished without summarizing the check")
)

// IsSessionNotFound checks if an error means the session does not exist.
func IsSessionNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}

// IsNotFound checks if an error refers to a missing session, node or
// edge, all of which map to HTTP 404.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrNodeNotFound) ||
		errors.Is(err, ErrEdgeNotFound)
}

// IsRefusal checks if an error is one of the gate refusals: the session
// exists but the requested action is not allowed right now.
func IsRefusal(err error) bool {
	return errors.Is(err, ErrNoChanges) ||
		errors.Is(err, ErrCheckInFlight) ||
		errors.Is(err, ErrNotEditable) ||
		errors.Is(err, ErrUndoUnavailable)
}

// IsValidationError checks if an error is a bad-request condition caused
// by the caller's input.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrEmptyPlan) ||
		errors.Is(err, ErrUnknownEndpoint)
}

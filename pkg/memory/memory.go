// Package memory connects the planning core to an external service that
// keeps long-lived context about a user's plans between sessions.
package memory

import "context"

// Service stores and retrieves remembered context about the user's
// planning habits. The session ID travels with every call as the
// correlation key. Both operations are best effort: callers turn
// failures into readable text for the agent instead of aborting a check.
type Service interface {
	// Search returns remembered context matching query, or an empty
	// string when nothing relevant is stored.
	Search(ctx context.Context, sessionID, query string) (string, error)

	// Store saves a remark for future checks.
	Store(ctx context.Context, sessionID, text string) error
}

// NoopService is the Service used when no memory backend is configured.
// Searches find nothing and stores are discarded.
type NoopService struct{}

// NewNoopService creates a Service that remembers nothing.
func NewNoopService() *NoopService {
	return &NoopService{}
}

func (*NoopService) Search(_ context.Context, _, _ string) (string, error) {
	return "", nil
}

func (*NoopService) Store(_ context.Context, _, _ string) error {
	return nil
}

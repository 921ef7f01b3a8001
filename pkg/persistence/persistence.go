// Package persistence provides the storage abstraction for planning sessions.
package persistence

import (
	"context"
	"time"

	"github.com/planward/planward/pkg/models"
)

type Persistence interface {
	Sessions(ctx context.Context) ([]*models.Session, error)
	SaveSession(ctx context.Context, session *models.Session) error
	// SessionByID returns the session, or (nil, nil) when no session
	// with that ID exists.
	SessionByID(ctx context.Context, id string) (*models.Session, error)
	DeleteSession(ctx context.Context, id string) error
	// DeleteSessionsInactiveSince removes sessions whose last update is
	// older than the cutoff and reports how many were removed.
	DeleteSessionsInactiveSince(ctx context.Context, cutoff time.Time) (int, error)
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}

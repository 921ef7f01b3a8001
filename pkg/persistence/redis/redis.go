// Package redis provides Redis persistence for planning sessions.
// Every save refreshes the key's TTL, so sessions that stop seeing
// activity expire on their own.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/planward/planward/pkg/models"
	"github.com/planward/planward/pkg/persistence"
)

const keyPrefix = "planward:sessions:"

// Persistence implements the persistence layer on Redis.
type Persistence struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPersistence connects to Redis at the given URL. A ttl of zero
// stores sessions without expiry.
func NewPersistence(ctx context.Context, redisURL string, ttl time.Duration) (*Persistence, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = client.Ping(pingCtx).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Persistence{client: client, ttl: ttl}, nil
}

// Sessions returns every stored session.
func (p *Persistence) Sessions(ctx context.Context) ([]*models.Session, error) {
	sessions := make([]*models.Session, 0)

	iter := p.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		body, err := p.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue // expired between scan and get
			}

			return nil, persistence.NewSessionError("Sessions", "", err)
		}

		var session models.Session

		err = json.Unmarshal(body, &session)
		if err != nil {
			return nil, persistence.NewSessionError("Sessions", "", err)
		}

		sessions = append(sessions, &session)
	}

	err := iter.Err()
	if err != nil {
		return nil, persistence.NewSessionError("Sessions", "", err)
	}

	return sessions, nil
}

// SessionByID retrieves a session, or (nil, nil) when the key is gone.
func (p *Persistence) SessionByID(ctx context.Context, id string) (*models.Session, error) {
	body, err := p.client.Get(ctx, keyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}

		return nil, persistence.NewSessionError("SessionByID", id, err)
	}

	var session models.Session

	err = json.Unmarshal(body, &session)
	if err != nil {
		return nil, persistence.NewSessionError("SessionByID", id, err)
	}

	return &session, nil
}

// SaveSession stores the session and resets its expiry window.
func (p *Persistence) SaveSession(ctx context.Context, session *models.Session) error {
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}

	session.UpdatedAt = now

	data, err := json.Marshal(session)
	if err != nil {
		return persistence.NewSessionError("Save", session.ID, err)
	}

	err = p.client.Set(ctx, keyPrefix+session.ID, data, p.ttl).Err()
	if err != nil {
		return persistence.NewSessionError("Save", session.ID, err)
	}

	return nil
}

// DeleteSession removes a session key. Deleting a missing key is not
// an error.
func (p *Persistence) DeleteSession(ctx context.Context, id string) error {
	err := p.client.Del(ctx, keyPrefix+id).Err()
	if err != nil {
		return persistence.NewSessionError("Delete", id, err)
	}

	return nil
}

// DeleteSessionsInactiveSince removes sessions last updated before the
// cutoff. Key TTLs already expire idle sessions; this covers stores
// configured without a TTL.
func (p *Persistence) DeleteSessionsInactiveSince(ctx context.Context, cutoff time.Time) (int, error) {
	sessions, err := p.Sessions(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0

	for _, session := range sessions {
		if !session.UpdatedAt.Before(cutoff) {
			continue
		}

		if err := p.DeleteSession(ctx, session.ID); err != nil {
			return removed, err
		}

		removed++
	}

	return removed, nil
}

// HealthCheck verifies the Redis connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.client.Ping(ctx).Err()
	if err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}

	return nil
}

// Close closes the Redis client.
func (p *Persistence) Close(_ context.Context) error {
	err := p.client.Close()
	if err != nil {
		return fmt.Errorf("failed to close Redis client: %w", err)
	}

	return nil
}

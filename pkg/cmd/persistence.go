// Package cmd wires shared infrastructure for the planward binaries:
// storage, event bus, agent and memory clients, selected by flags.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/planward/planward/pkg/persistence"
	"github.com/planward/planward/pkg/persistence/file"
	"github.com/planward/planward/pkg/persistence/postgresql"
	"github.com/planward/planward/pkg/persistence/redis"
)

var supportedPersistenceProviders = []string{"file", "postgres", "postgresql", "redis"}

// NewPersistence picks the storage provider from the URL scheme.
// Anything without a recognized scheme is treated as a file path.
// Construction failures are fatal: a server that cannot reach its
// storage has nothing to serve.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string, sessionTTL time.Duration) persistence.Persistence {
	switch parsePersistenceProvider(databaseURL) {
	case "postgres", "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to create PostgreSQL persistence: %w", err))
		}

		return p
	case "redis":
		p, err := redis.NewPersistence(ctx, databaseURL, sessionTTL)
		if err != nil {
			panic(fmt.Errorf("failed to create Redis persistence: %w", err))
		}

		return p
	default:
		return file.NewPersistence(databaseURL)
	}
}

func parsePersistenceProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	for _, supported := range supportedPersistenceProviders {
		if provider == supported {
			return provider
		}
	}

	return "file"
}

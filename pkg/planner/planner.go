// Package planner owns planning sessions: the confirmed-baseline graph,
// the generate and check lifecycles against the reasoning agent, undo
// history, and the per-check annotation state. All session state is
// mutated here and nowhere else; the agent reaches it only through the
// narrow tool surface handed to it for one check at a time.
package planner

import (
	"log/slog"
	"time"

	"github.com/planward/planward/pkg/agent"
	"github.com/planward/planward/pkg/eventbus"
	"github.com/planward/planward/pkg/memory"
	"github.com/planward/planward/pkg/persistence"
)

const (
	defaultGenerateTimeout = 2 * time.Minute
	defaultCheckTimeout    = 3 * time.Minute

	// historyLimit bounds the undo stack. Once full, the oldest entry is
	// dropped silently.
	historyLimit = 30
)

// Config bounds the asynchronous agent interactions. A generation or
// check that produces neither a terminal event nor an error within its
// window is cut off and reported as a failure rather than waited on
// forever.
type Config struct {
	GenerateTimeout time.Duration
	CheckTimeout    time.Duration
}

func (c Config) withDefaults() Config {
	if c.GenerateTimeout <= 0 {
		c.GenerateTimeout = defaultGenerateTimeout
	}

	if c.CheckTimeout <= 0 {
		c.CheckTimeout = defaultCheckTimeout
	}

	return c
}

// Dependencies are the collaborators a session works against. Agent,
// Persistence and EventBus are required; Memory defaults to the no-op
// service and Logger to the process default.
type Dependencies struct {
	Agent       agent.Agent
	Memory      memory.Service
	Persistence persistence.Persistence
	EventBus    eventbus.EventBus
	Logger      *slog.Logger
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Memory == nil {
		d.Memory = memory.NewNoopService()
	}

	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	return d
}

package cmd

import (
	"log/slog"

	"github.com/planward/planward/pkg/memory"
)

// NewMemory connects the optional semantic memory service. Without a
// URL, checks run with no cross-session context.
func NewMemory(memoryURL string, logger *slog.Logger) memory.Service {
	if memoryURL == "" {
		return memory.NewNoopService()
	}

	return memory.NewHTTPService(memoryURL, logger)
}

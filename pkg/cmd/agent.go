package cmd

import (
	"log/slog"

	"github.com/planward/planward/pkg/agent"
)

// NewAgent builds the chat-completions provider the planner talks to.
// Empty settings fall back to the provider's defaults.
func NewAgent(logger *slog.Logger, baseURL, apiKey, model string) agent.Agent {
	return agent.NewChatProvider(agent.Config{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
	}, logger)
}

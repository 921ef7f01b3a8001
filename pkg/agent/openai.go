package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL       = "https://api.openai.com/v1"
	defaultModel         = "gpt-4o-mini"
	defaultHTTPTimeout   = 120 * time.Second
	defaultMaxToolRounds = 16
)

var (
	// ErrNoProposal is returned when a construction call finishes without
	// the agent proposing a graph.
	ErrNoProposal = errors.New("agent did not propose a graph")
	// ErrEmptyResponse is returned when the provider answers with no
	// choices.
	ErrEmptyResponse = errors.New("provider returned an empty response")
)

// ProviderError is a non-success HTTP answer from the model provider. It
// keeps the status code so failures can be classified for the user.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}

	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, body)
}

// constructionPrompt steers the agent while it turns plan text into a
// graph. The shape rules keep the layout readable on one screen.
const constructionPrompt = `You convert a plan written in plain language into a dependency graph.

Call the propose_graph tool exactly once with the complete graph.

Rules:
- Use at most 8 nodes. Fold minor steps into the task they belong to.
- Labels are 3 to 5 words, phrased as actions.
- Node ids are short stable slugs, for example "book-venue".
- An edge from A to B means A must be finished before B can start. Do
  not add edges for steps that are merely related.
- Steps that can run in parallel share a predecessor and have no edge
  between them.`

// validationPrompt steers the agent while it reviews user edits.
const validationPrompt = `You review the changes a user made to a previously checked plan graph.

Judge whether the edited plan still works: look for broken orderings,
steps that lost their prerequisites, duplicated work and missing steps.

Record findings with the tools:
- flag_node gives a verdict on a single node: ok, warning or error.
- add_insight records a warning or suggestion about the plan as a whole.
- search_memory and store_memory keep context about this user across
  sessions. Search before judging; store anything worth remembering.
- Finish by calling summarize_check exactly once with a short closing
  assessment. The review does not count as complete without it.`

// Config holds the provider settings, normally sourced from flags.
type Config struct {
	// BaseURL is the root of an OpenAI-compatible API.
	BaseURL string
	// APIKey is sent as a bearer token when set.
	APIKey string
	// Model names the model to use for both construction and review.
	Model string
	// Timeout bounds each HTTP request, not the whole conversation.
	Timeout time.Duration
	// MaxToolRounds caps the number of model turns in one review.
	MaxToolRounds int
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}

	if c.Model == "" {
		c.Model = defaultModel
	}

	if c.Timeout <= 0 {
		c.Timeout = defaultHTTPTimeout
	}

	if c.MaxToolRounds <= 0 {
		c.MaxToolRounds = defaultMaxToolRounds
	}

	return c
}

// ChatProvider implements Agent on top of any OpenAI-compatible chat
// completions API with tool calling.
type ChatProvider struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

// NewChatProvider creates a ChatProvider with the given configuration.
func NewChatProvider(config Config, logger *slog.Logger) *ChatProvider {
	config = config.withDefaults()

	return &ChatProvider{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger.With("module", "agent"),
	}
}

type chatRequest struct {
	Model      string        `json:"model"`
	Messages   []chatMessage `json:"messages"`
	Tools      []chatTool    `json:"tools,omitempty"`
	ToolChoice any           `json:"tool_choice,omitempty"`
}

type chatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []toolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

type chatTool struct {
	Type     string       `json:"type"`
	Function toolFunction `json:"function"`
}

type toolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type toolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function toolCallFunction `json:"function"`
}

type toolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// ProposeGraph asks the model for a dependency graph built from planText.
// The forced tool choice guarantees the answer arrives as structured
// arguments rather than prose.
func (p *ChatProvider) ProposeGraph(ctx context.Context, planText string) (*ProposedGraph, error) {
	p.logger.InfoContext(ctx, "Requesting graph construction", "plan_chars", len(planText))

	request := chatRequest{
		Model: p.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: constructionPrompt},
			{Role: "user", Content: planText},
		},
		Tools: wireTools(ConstructionTools()),
		ToolChoice: map[string]any{
			"type":     "function",
			"function": map[string]any{"name": ToolProposeGraph},
		},
	}

	response, err := p.complete(ctx, request)
	if err != nil {
		return nil, err
	}

	for _, call := range response.Choices[0].Message.ToolCalls {
		if call.Function.Name != ToolProposeGraph {
			continue
		}

		var graph ProposedGraph

		err = json.Unmarshal([]byte(call.Function.Arguments), &graph)
		if err != nil {
			return nil, fmt.Errorf("malformed construction arguments: %w", err)
		}

		p.logger.InfoContext(ctx, "Graph construction completed",
			"nodes", len(graph.Nodes),
			"edges", len(graph.Edges))

		return &graph, nil
	}

	return nil, ErrNoProposal
}

// ValidateChanges runs the tool-calling conversation for one check. Each
// round sends the history, dispatches whatever tools the model called and
// feeds the results back. The conversation ends when the model answers
// without tool calls or the round budget runs out.
func (p *ChatProvider) ValidateChanges(ctx context.Context, req ValidationRequest, tools Tools) error {
	logger := p.logger.With("session_id", req.SessionID, "check", req.Check)
	dispatcher := NewDispatcher(tools, logger)

	messages := []chatMessage{
		{Role: "system", Content: validationPrompt},
		{Role: "user", Content: req.Prompt},
	}
	wired := wireTools(ValidationTools())

	for round := range p.config.MaxToolRounds {
		response, err := p.complete(ctx, chatRequest{
			Model:    p.config.Model,
			Messages: messages,
			Tools:    wired,
		})
		if err != nil {
			return err
		}

		message := response.Choices[0].Message
		if len(message.ToolCalls) == 0 {
			logger.InfoContext(ctx, "Validation conversation finished", "rounds", round+1)

			return nil
		}

		messages = append(messages, message)

		for _, call := range message.ToolCalls {
			result := dispatcher.Dispatch(ctx, call.Function.Name, call.Function.Arguments)
			messages = append(messages, chatMessage{
				Role:       "tool",
				ToolCallID: call.ID,
				Content:    result,
			})
		}
	}

	logger.WarnContext(ctx, "Validation stopped at the round limit", "rounds", p.config.MaxToolRounds)

	return nil
}

func (p *ChatProvider) complete(ctx context.Context, request chatRequest) (*chatResponse, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to encode chat request: %w", err)
	}

	url := strings.TrimRight(p.config.BaseURL, "/") + "/chat/completions"

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat request: %w", err)
	}

	httpRequest.Header.Set("Content-Type", "application/json")

	if p.config.APIKey != "" {
		httpRequest.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	}

	response, err := p.client.Do(httpRequest)
	if err != nil {
		return nil, fmt.Errorf("chat request failed: %w", err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	raw, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read chat response: %w", err)
	}

	if response.StatusCode != http.StatusOK {
		return nil, &ProviderError{StatusCode: response.StatusCode, Body: string(raw)}
	}

	var parsed chatResponse

	err = json.Unmarshal(raw, &parsed)
	if err != nil {
		return nil, fmt.Errorf("failed to decode chat response: %w", err)
	}

	if len(parsed.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	return &parsed, nil
}

func wireTools(definitions []Definition) []chatTool {
	tools := make([]chatTool, 0, len(definitions))
	for _, definition := range definitions {
		tools = append(tools, chatTool{
			Type: "function",
			Function: toolFunction{
				Name:        definition.Name,
				Description: definition.Description,
				Parameters:  definition.Parameters,
			},
		})
	}

	return tools
}

package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/planward/planward/pkg/models"
)

// Tool names as the agent sees them.
const (
	ToolProposeGraph   = "propose_graph"
	ToolFlagNode       = "flag_node"
	ToolAddInsight     = "add_insight"
	ToolSummarizeCheck = "summarize_check"
	ToolSearchMemory   = "search_memory"
	ToolStoreMemory    = "store_memory"
)

// Definition describes one tool offered to the agent: its name, what it
// is for, and the JSON schema its arguments must satisfy.
type Definition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ConstructionTools returns the single tool offered during graph
// construction.
func ConstructionTools() []Definition {
	return []Definition{
		{
			Name:        ToolProposeGraph,
			Description: "Propose the complete dependency graph for the plan. Call exactly once with every node and every dependency.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"nodes": map[string]any{
						"type":        "array",
						"description": "Every step of the plan.",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"id":    map[string]any{"type": "string", "description": "Short stable slug, for example book-venue."},
								"label": map[string]any{"type": "string", "description": "Display label, three to five words."},
							},
							"required": []string{"id", "label"},
						},
					},
					"edges": map[string]any{
						"type":        "array",
						"description": "Every strict dependency between steps.",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"source": map[string]any{"type": "string", "description": "Id of the step that must finish first."},
								"target": map[string]any{"type": "string", "description": "Id of the step that waits for it."},
							},
							"required": []string{"source", "target"},
						},
					},
				},
				"required": []string{"nodes", "edges"},
			},
		},
	}
}

// ValidationTools returns the tools offered while reviewing plan changes.
func ValidationTools() []Definition {
	return []Definition{
		{
			Name:        ToolFlagNode,
			Description: "Record a verdict for one node of the plan. Flag every node you examined, including the ones that look fine.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"node_id": map[string]any{"type": "string", "minLength": 1},
					"status":  map[string]any{"type": "string", "enum": []string{"ok", "warning", "error"}},
					"reason":  map[string]any{"type": "string", "description": "One sentence explaining the verdict."},
				},
				"required": []string{"node_id", "status", "reason"},
			},
		},
		{
			Name:        ToolAddInsight,
			Description: "Record an observation about the plan as a whole rather than a single node.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"kind":    map[string]any{"type": "string", "enum": []string{"warning", "suggestion"}},
					"message": map[string]any{"type": "string", "minLength": 1},
				},
				"required": []string{"kind", "message"},
			},
		},
		{
			Name:        ToolSummarizeCheck,
			Description: "Close the review with a short overall assessment. Always call this exactly once, after all other tools.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"summary": map[string]any{"type": "string", "minLength": 1},
				},
				"required": []string{"summary"},
			},
		},
		{
			Name:        ToolSearchMemory,
			Description: "Search remembered context about this user's plans and habits.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{"type": "string", "minLength": 1},
				},
				"required": []string{"query"},
			},
		},
		{
			Name:        ToolStoreMemory,
			Description: "Remember something about this user's plans or habits for future checks.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"text": map[string]any{"type": "string", "minLength": 1},
				},
				"required": []string{"text"},
			},
		},
	}
}

// Dispatcher routes agent tool calls to a Tools implementation. Every
// outcome comes back as text for the agent to read: unknown tools,
// malformed arguments, and failing tools produce explanations rather
// than aborting the review.
type Dispatcher struct {
	tools       Tools
	definitions map[string]Definition
	logger      *slog.Logger
}

// NewDispatcher creates a Dispatcher for the validation toolset.
func NewDispatcher(tools Tools, logger *slog.Logger) *Dispatcher {
	definitions := make(map[string]Definition)
	for _, definition := range ValidationTools() {
		definitions[definition.Name] = definition
	}

	return &Dispatcher{
		tools:       tools,
		definitions: definitions,
		logger:      logger,
	}
}

// Dispatch runs one tool call and returns the result text for the agent.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, arguments string) string {
	definition, ok := d.definitions[name]
	if !ok {
		d.logger.WarnContext(ctx, "Agent called unknown tool", "tool", name)

		return fmt.Sprintf("unknown tool %q: available tools are flag_node, add_insight, summarize_check, search_memory and store_memory", name)
	}

	if arguments == "" {
		arguments = "{}"
	}

	err := validateArguments(definition.Parameters, arguments)
	if err != nil {
		d.logger.WarnContext(ctx, "Agent tool arguments rejected", "tool", name, "error", err)

		return fmt.Sprintf("invalid arguments for %s: %v", name, err)
	}

	return d.call(ctx, name, arguments)
}

func (d *Dispatcher) call(ctx context.Context, name string, arguments string) string {
	switch name {
	case ToolFlagNode:
		var args struct {
			NodeID string `json:"node_id"`
			Status string `json:"status"`
			Reason string `json:"reason"`
		}

		if err := json.Unmarshal([]byte(arguments), &args); err != nil {
			return fmt.Sprintf("invalid arguments for %s: %v", name, err)
		}

		resolved, err := d.tools.FlagNode(ctx, args.NodeID, models.NodeStatus(args.Status), args.Reason)
		if err != nil {
			return fmt.Sprintf("flag_node failed: %v", err)
		}

		return fmt.Sprintf("recorded %s for node %q; its status is now %s", args.Status, args.NodeID, resolved)
	case ToolAddInsight:
		var args struct {
			Kind    string `json:"kind"`
			Message string `json:"message"`
		}

		if err := json.Unmarshal([]byte(arguments), &args); err != nil {
			return fmt.Sprintf("invalid arguments for %s: %v", name, err)
		}

		if err := d.tools.AddInsight(ctx, models.InsightKind(args.Kind), args.Message); err != nil {
			return fmt.Sprintf("add_insight failed: %v", err)
		}

		return "insight recorded"
	case ToolSummarizeCheck:
		var args struct {
			Summary string `json:"summary"`
		}

		if err := json.Unmarshal([]byte(arguments), &args); err != nil {
			return fmt.Sprintf("invalid arguments for %s: %v", name, err)
		}

		if err := d.tools.SummarizeCheck(ctx, args.Summary); err != nil {
			return fmt.Sprintf("summarize_check failed: %v", err)
		}

		return "summary recorded"
	case ToolSearchMemory:
		var args struct {
			Query string `json:"query"`
		}

		if err := json.Unmarshal([]byte(arguments), &args); err != nil {
			return fmt.Sprintf("invalid arguments for %s: %v", name, err)
		}

		result, err := d.tools.SearchMemory(ctx, args.Query)
		if err != nil {
			d.logger.WarnContext(ctx, "Memory search failed", "error", err)

			return "memory search is unavailable right now; continue without it"
		}

		if result == "" {
			return "no stored memories matched"
		}

		return result
	case ToolStoreMemory:
		var args struct {
			Text string `json:"text"`
		}

		if err := json.Unmarshal([]byte(arguments), &args); err != nil {
			return fmt.Sprintf("invalid arguments for %s: %v", name, err)
		}

		if err := d.tools.StoreMemory(ctx, args.Text); err != nil {
			d.logger.WarnContext(ctx, "Memory store failed", "error", err)

			return "memory storage is unavailable right now; continue without it"
		}

		return "memory stored"
	default:
		return fmt.Sprintf("unknown tool %q", name)
	}
}

// validateArguments checks raw JSON arguments against a tool's schema.
func validateArguments(schema map[string]any, arguments string) error {
	schemaLoader := gojsonschema.NewGoLoader(schema)
	documentLoader := gojsonschema.NewStringLoader(arguments)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return err
	}

	if !result.Valid() {
		var errors []string
		for _, desc := range result.Errors() {
			errors = append(errors, desc.String())
		}

		return fmt.Errorf("validation errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

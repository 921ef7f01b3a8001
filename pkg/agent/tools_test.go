package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planward/planward/pkg/models"
)

// recordingTools captures every tool call for assertions.
type recordingTools struct {
	flags        []string
	insights     []string
	summaries    []string
	searches     []string
	stored       []string
	searchResult string
	searchErr    error
	storeErr     error
}

func (r *recordingTools) FlagNode(_ context.Context, nodeID string, status models.NodeStatus, reason string) (models.NodeStatus, error) {
	r.flags = append(r.flags, fmt.Sprintf("%s/%s/%s", nodeID, status, reason))

	return status, nil
}

func (r *recordingTools) AddInsight(_ context.Context, kind models.InsightKind, message string) error {
	r.insights = append(r.insights, fmt.Sprintf("%s/%s", kind, message))

	return nil
}

func (r *recordingTools) SummarizeCheck(_ context.Context, summary string) error {
	r.summaries = append(r.summaries, summary)

	return nil
}

func (r *recordingTools) SearchMemory(_ context.Context, query string) (string, error) {
	r.searches = append(r.searches, query)

	return r.searchResult, r.searchErr
}

func (r *recordingTools) StoreMemory(_ context.Context, text string) error {
	r.stored = append(r.stored, text)

	return r.storeErr
}

func TestDispatcher_Dispatch_FlagNode(t *testing.T) {
	tools := &recordingTools{}
	dispatcher := NewDispatcher(tools, slog.Default())

	result := dispatcher.Dispatch(t.Context(), ToolFlagNode,
		`{"node_id": "book-venue", "status": "warning", "reason": "depends on a deleted step"}`)

	require.Len(t, tools.flags, 1)
	assert.Equal(t, "book-venue/warning/depends on a deleted step", tools.flags[0])
	assert.Contains(t, result, `recorded warning for node "book-venue"`)
	assert.Contains(t, result, "its status is now warning")
}

func TestDispatcher_Dispatch_RejectsUnknownStatus(t *testing.T) {
	tools := &recordingTools{}
	dispatcher := NewDispatcher(tools, slog.Default())

	result := dispatcher.Dispatch(t.Context(), ToolFlagNode,
		`{"node_id": "book-venue", "status": "catastrophic", "reason": "nope"}`)

	assert.Empty(t, tools.flags)
	assert.Contains(t, result, "invalid arguments for flag_node")
}

func TestDispatcher_Dispatch_RejectsMissingFields(t *testing.T) {
	tools := &recordingTools{}
	dispatcher := NewDispatcher(tools, slog.Default())

	result := dispatcher.Dispatch(t.Context(), ToolAddInsight, `{"kind": "warning"}`)

	assert.Empty(t, tools.insights)
	assert.Contains(t, result, "invalid arguments for add_insight")
	assert.Contains(t, result, "message")
}

func TestDispatcher_Dispatch_RejectsMalformedJSON(t *testing.T) {
	tools := &recordingTools{}
	dispatcher := NewDispatcher(tools, slog.Default())

	result := dispatcher.Dispatch(t.Context(), ToolSummarizeCheck, `{"summary": `)

	assert.Empty(t, tools.summaries)
	assert.Contains(t, result, "invalid arguments for summarize_check")
}

func TestDispatcher_Dispatch_UnknownTool(t *testing.T) {
	tools := &recordingTools{}
	dispatcher := NewDispatcher(tools, slog.Default())

	result := dispatcher.Dispatch(t.Context(), "delete_everything", `{}`)

	assert.Contains(t, result, `unknown tool "delete_everything"`)
}

func TestDispatcher_Dispatch_Insight(t *testing.T) {
	tools := &recordingTools{}
	dispatcher := NewDispatcher(tools, slog.Default())

	result := dispatcher.Dispatch(t.Context(), ToolAddInsight,
		`{"kind": "suggestion", "message": "the two bookings could run in parallel"}`)

	require.Len(t, tools.insights, 1)
	assert.Equal(t, "suggestion/the two bookings could run in parallel", tools.insights[0])
	assert.Equal(t, "insight recorded", result)
}

func TestDispatcher_Dispatch_Summarize(t *testing.T) {
	tools := &recordingTools{}
	dispatcher := NewDispatcher(tools, slog.Default())

	result := dispatcher.Dispatch(t.Context(), ToolSummarizeCheck,
		`{"summary": "plan holds together after the edits"}`)

	require.Len(t, tools.summaries, 1)
	assert.Equal(t, "plan holds together after the edits", tools.summaries[0])
	assert.Equal(t, "summary recorded", result)
}

func TestDispatcher_Dispatch_SearchMemory(t *testing.T) {
	tools := &recordingTools{searchResult: "user tends to underestimate permits"}
	dispatcher := NewDispatcher(tools, slog.Default())

	result := dispatcher.Dispatch(t.Context(), ToolSearchMemory, `{"query": "permits"}`)

	require.Len(t, tools.searches, 1)
	assert.Equal(t, "user tends to underestimate permits", result)
}

func TestDispatcher_Dispatch_SearchMemoryEmpty(t *testing.T) {
	tools := &recordingTools{}
	dispatcher := NewDispatcher(tools, slog.Default())

	result := dispatcher.Dispatch(t.Context(), ToolSearchMemory, `{"query": "permits"}`)

	assert.Equal(t, "no stored memories matched", result)
}

func TestDispatcher_Dispatch_MemoryFailuresNeverAbort(t *testing.T) {
	tools := &recordingTools{
		searchErr: errors.New("connection refused"),
		storeErr:  errors.New("connection refused"),
	}
	dispatcher := NewDispatcher(tools, slog.Default())

	searchResult := dispatcher.Dispatch(t.Context(), ToolSearchMemory, `{"query": "permits"}`)
	storeResult := dispatcher.Dispatch(t.Context(), ToolStoreMemory, `{"text": "remember this"}`)

	assert.Contains(t, searchResult, "memory search is unavailable")
	assert.Contains(t, storeResult, "memory storage is unavailable")
}

func TestDispatcher_Dispatch_StoreMemory(t *testing.T) {
	tools := &recordingTools{}
	dispatcher := NewDispatcher(tools, slog.Default())

	result := dispatcher.Dispatch(t.Context(), ToolStoreMemory,
		`{"text": "user plans outdoor events without rain backups"}`)

	require.Len(t, tools.stored, 1)
	assert.Equal(t, "user plans outdoor events without rain backups", tools.stored[0])
	assert.Equal(t, "memory stored", result)
}

// Package events defines event types for planning session lifecycle notifications.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/planward/planward/pkg/models"
)

type EventType string

// Topic carries every planning session event.
const Topic = "planward.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Generation lifecycle events.
	GenerationStartedEvent   EventType = "generation.started"
	GenerationCompletedEvent EventType = "generation.completed"
	GenerationFailedEvent    EventType = "generation.failed"

	// Check cycle events.
	CheckStartedEvent    EventType = "check.started"
	NodeFlaggedEvent     EventType = "check.node.flagged"
	InsightAddedEvent    EventType = "check.insight.added"
	CheckSummarizedEvent EventType = "check.summarized"
	CheckCompletedEvent  EventType = "check.completed"
	CheckFailedEvent     EventType = "check.failed"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	SessionID string         `json:"session_id"`
	Check     int            `json:"check,omitempty"` // check cycle number, zero for generation events
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// SessionKey returns the session the event belongs to. It is promoted to
// every event type, so consumers can route a decoded event without
// switching on its concrete type.
func (b BaseEvent) SessionKey() string {
	return b.SessionID
}

type GenerationStarted struct {
	BaseEvent

	PlanText string `json:"plan_text"`
}

func (g GenerationStarted) GetType() EventType {
	return GenerationStartedEvent
}

type GenerationCompleted struct {
	BaseEvent

	NodeCount int `json:"node_count"`
	EdgeCount int `json:"edge_count"`
}

func (g GenerationCompleted) GetType() EventType {
	return GenerationCompletedEvent
}

type GenerationFailed struct {
	BaseEvent

	Failure models.CheckFailure `json:"failure"`
}

func (g GenerationFailed) GetType() EventType {
	return GenerationFailedEvent
}

type CheckStarted struct {
	BaseEvent

	Changes []string `json:"changes"`
}

func (c CheckStarted) GetType() EventType {
	return CheckStartedEvent
}

// NodeFlagged reports one verdict arrival. Status is the node's
// resolved severity after the verdict was applied, which can differ
// from the verdict itself when an earlier call outranked it.
type NodeFlagged struct {
	BaseEvent

	NodeID string            `json:"node_id"`
	Status models.NodeStatus `json:"status"`
	Reason string            `json:"reason"`
}

func (n NodeFlagged) GetType() EventType {
	return NodeFlaggedEvent
}

type InsightAdded struct {
	BaseEvent

	Kind    models.InsightKind `json:"kind"`
	Message string             `json:"message"`
}

func (i InsightAdded) GetType() EventType {
	return InsightAddedEvent
}

type CheckSummarized struct {
	BaseEvent

	Summary string `json:"summary"`
}

func (c CheckSummarized) GetType() EventType {
	return CheckSummarizedEvent
}

type CheckCompleted struct {
	BaseEvent

	AnnotatedNodes int `json:"annotated_nodes"`
	Insights       int `json:"insights"`
}

func (c CheckCompleted) GetType() EventType {
	return CheckCompletedEvent
}

type CheckFailed struct {
	BaseEvent

	Failure models.CheckFailure `json:"failure"`
}

func (c CheckFailed) GetType() EventType {
	return CheckFailedEvent
}

func NewBaseEvent(eventType EventType, sessionID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		SessionID: sessionID,
		Metadata:  make(map[string]any),
	}
}

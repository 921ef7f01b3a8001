// Package web provides HTTP handlers and REST API endpoints for planning sessions.
package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/planward/planward/pkg/planner"
)

type APIHandlers struct {
	manager   *planner.Manager
	validator *validator.Validate
}

func NewAPIHandlers(manager *planner.Manager, validator *validator.Validate) *APIHandlers {
	return &APIHandlers{
		manager:   manager,
		validator: validator,
	}
}

// CreateSession mints an empty session. The caller follows up with a
// generate call once the user has written their plan.
func (h *APIHandlers) CreateSession(c fiber.Ctx) error {
	session, err := h.manager.Create(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(NewSessionResponse(session.State(), session.UndoDepth()))
}

func (h *APIHandlers) GetSession(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Session ID is required")
	}

	session, err := h.manager.Get(c.Context(), id)
	if err != nil {
		return handleSessionError(c, err)
	}

	return c.JSON(NewSessionResponse(session.State(), session.UndoDepth()))
}

func (h *APIHandlers) DeleteSession(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Session ID is required")
	}

	err := h.manager.Delete(c.Context(), id)
	if err != nil {
		return handleSessionError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// GenerateGraph kicks off graph construction from the submitted plan
// text. The work runs in the background; the 202 response carries the
// session already in its generating phase, and the event feed reports
// completion.
func (h *APIHandlers) GenerateGraph(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Session ID is required")
	}

	var req GenerateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	session, err := h.manager.Get(c.Context(), id)
	if err != nil {
		return handleSessionError(c, err)
	}

	err = session.Generate(c.Context(), req.PlanText)
	if err != nil {
		return handleSessionError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(NewSessionResponse(session.State(), session.UndoDepth()))
}

// CheckChanges asks the agent to validate the edits made since the last
// confirmed graph. The 202 response carries the check number in the
// session's check_count; a conflict problem is returned when there is
// nothing to check or a check is already running.
func (h *APIHandlers) CheckChanges(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Session ID is required")
	}

	session, err := h.manager.Get(c.Context(), id)
	if err != nil {
		return handleSessionError(c, err)
	}

	_, err = session.Check(c.Context())
	if err != nil {
		return handleSessionError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(NewSessionResponse(session.State(), session.UndoDepth()))
}

func (h *APIHandlers) UndoEdit(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Session ID is required")
	}

	session, err := h.manager.Get(c.Context(), id)
	if err != nil {
		return handleSessionError(c, err)
	}

	err = session.Undo(c.Context())
	if err != nil {
		return handleSessionError(c, err)
	}

	return c.JSON(NewSessionResponse(session.State(), session.UndoDepth()))
}

func (h *APIHandlers) CreateNode(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Session ID is required")
	}

	var req CreateNodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	session, err := h.manager.Get(c.Context(), id)
	if err != nil {
		return handleSessionError(c, err)
	}

	node, err := session.AddNode(c.Context(), planner.AddNodeRequest{
		Label:    req.Label,
		Position: req.Position,
	})
	if err != nil {
		return handleSessionError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(node)
}

func (h *APIHandlers) UpdateNode(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Session ID is required")
	}

	nodeID := c.Params("nodeId")
	if nodeID == "" {
		return badRequest(c, "Node ID is required")
	}

	var req UpdateNodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	session, err := h.manager.Get(c.Context(), id)
	if err != nil {
		return handleSessionError(c, err)
	}

	node, err := session.UpdateNode(c.Context(), nodeID, planner.UpdateNodeRequest{
		Label:    req.Label,
		Position: req.Position,
	})
	if err != nil {
		return handleSessionError(c, err)
	}

	return c.JSON(node)
}

func (h *APIHandlers) DeleteNode(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Session ID is required")
	}

	nodeID := c.Params("nodeId")
	if nodeID == "" {
		return badRequest(c, "Node ID is required")
	}

	session, err := h.manager.Get(c.Context(), id)
	if err != nil {
		return handleSessionError(c, err)
	}

	err = session.DeleteNode(c.Context(), nodeID)
	if err != nil {
		return handleSessionError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) CreateEdge(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Session ID is required")
	}

	var req CreateEdgeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	session, err := h.manager.Get(c.Context(), id)
	if err != nil {
		return handleSessionError(c, err)
	}

	edge, err := session.AddEdge(c.Context(), planner.AddEdgeRequest{
		Source: req.Source,
		Target: req.Target,
	})
	if err != nil {
		return handleSessionError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(edge)
}

func (h *APIHandlers) DeleteEdge(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Session ID is required")
	}

	edgeID := c.Params("edgeId")
	if edgeID == "" {
		return badRequest(c, "Edge ID is required")
	}

	session, err := h.manager.Get(c.Context(), id)
	if err != nil {
		return handleSessionError(c, err)
	}

	err = session.DeleteEdge(c.Context(), edgeID)
	if err != nil {
		return handleSessionError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) DismissFailure(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Session ID is required")
	}

	session, err := h.manager.Get(c.Context(), id)
	if err != nil {
		return handleSessionError(c, err)
	}

	err = session.DismissFailure(c.Context())
	if err != nil {
		return handleSessionError(c, err)
	}

	return c.JSON(NewSessionResponse(session.State(), session.UndoDepth()))
}

// SessionEvents returns the journal entries recorded after the given
// cursor. Clients poll with the next_after value from the previous page.
func (h *APIHandlers) SessionEvents(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Session ID is required")
	}

	var after uint64

	if afterStr := c.Query("after"); afterStr != "" {
		parsed, err := strconv.ParseUint(afterStr, 10, 64)
		if err != nil {
			return badRequest(c, "Invalid query parameter: after must be a non-negative integer")
		}

		after = parsed
	}

	entries, err := h.manager.Events(c.Context(), id, after)
	if err != nil {
		return handleSessionError(c, err)
	}

	return c.JSON(NewEventsResponse(entries, after))
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryErr := h.manager.HealthCheck(c.Context())

	status := "healthy"
	message := "Planward API is healthy"
	httpStatus := http.StatusOK
	repositoryCheck := "ok"

	if repositoryErr != nil {
		status = "unhealthy"
		message = "Planward API is unhealthy"
		httpStatus = http.StatusInternalServerError
		repositoryCheck = repositoryErr.Error()
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

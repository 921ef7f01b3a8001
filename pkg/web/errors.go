package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/planward/planward/pkg/planner"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, problemType, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType(problemType).
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func conflict(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(409).
		WithInstance(c.Path()).
		WithType("conflict").
		WithDetail(detail)

	return c.Status(fiber.StatusConflict).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleSessionError provides typed error handling for planner errors.
func handleSessionError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, planner.ErrNodeNotFound):
		return notFound(c, "node_not_found", "node not found")

	case errors.Is(err, planner.ErrEdgeNotFound):
		return notFound(c, "edge_not_found", "edge not found")

	case planner.IsSessionNotFound(err):
		return notFound(c, "session_not_found", "session not found")

	case planner.IsValidationError(err):
		return badRequest(c, err.Error())

	case planner.IsRefusal(err):
		// The request was well-formed but the session's state does not
		// allow it right now: zero-diff checks, busy sessions, undo
		// during a check.
		return conflict(c, err.Error())

	default:
		// Don't expose details of unexpected errors
		return internalError(c, err)
	}
}

package web

import (
	"errors"

	"github.com/dukex/taskdesk/pkg/persistence"
	"github.com/dukex/taskdesk/pkg/services"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

// assignmentProblem is a 422 problem document listing every failed assignment rule.
type assignmentProblem struct {
	problems.Problem

	Errors []string `json:"errors"`
}

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

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleServiceError provides typed error handling for service layer errors.
func handleServiceError(c fiber.Ctx, err error) error {
	if assignmentErr, ok := services.AsAssignmentError(err); ok {
		problem := assignmentProblem{
			Problem: *problems.NewStatusProblem(422).
				WithInstance(c.Path()).
				WithType("assignment_invalid").
				WithDetail(services.ErrAssignmentInvalid.Error()),
			Errors: assignmentErr.Result.Errors,
		}

		return c.Status(fiber.StatusUnprocessableEntity).JSON(problem)
	}

	switch {
	case services.IsValidationError(err):
		detail := err.Error()

		var serviceErr *services.ServiceError
		if errors.As(err, &serviceErr) && serviceErr.Message != "" {
			detail = serviceErr.Message
		}

		return badRequest(c, detail)

	case persistence.IsWorkflowNotFound(err):
		return notFound(c, "workflow_not_found", "workflow not found")

	case persistence.IsTaskNotFound(err):
		return notFound(c, "task_not_found", "task not found")

	case persistence.IsUserNotFound(err):
		return notFound(c, "user_not_found", "user not found")

	case errors.Is(err, services.ErrFormNotFound):
		return notFound(c, "form_not_found", "form not found or expired")

	default:
		return internalError(c, err)
	}
}

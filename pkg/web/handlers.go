// Package web provides the HTTP handlers of the taskdesk REST API.
package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dukex/taskdesk/pkg/models"
	"github.com/dukex/taskdesk/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	workflowService *services.Workflow
	directory       *services.Directory
	taskService     *services.Task
	forms           *services.Forms
	validator       *validator.Validate
}

func NewAPIHandlers(
	workflowService *services.Workflow,
	directory *services.Directory,
	taskService *services.Task,
	forms *services.Forms,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		workflowService: workflowService,
		directory:       directory,
		taskService:     taskService,
		forms:           forms,
		validator:       validator,
	}
}

// Register mounts every API route on app.
func (h *APIHandlers) Register(app *fiber.App) {
	w := app.Group("/workflows")
	w.Get("/", h.GetWorkflows)
	w.Post("/", h.CreateWorkflow)
	w.Get("/:id", h.GetWorkflow)
	w.Put("/:id", h.UpdateWorkflow)
	w.Delete("/:id", h.DeleteWorkflow)
	w.Get("/:id/steps", h.GetWorkflowSteps)

	u := app.Group("/users")
	u.Get("/", h.GetUsers)
	u.Post("/", h.CreateUser)

	t := app.Group("/tasks")
	t.Get("/", h.GetTasks)
	t.Post("/", h.CreateTask)
	t.Get("/:id", h.GetTask)
	t.Put("/:id", h.UpdateTask)
	t.Delete("/:id", h.DeleteTask)

	f := app.Group("/forms")
	f.Post("/", h.OpenForm)
	f.Get("/:id", h.GetForm)
	f.Delete("/:id", h.CloseForm)
	f.Put("/:id/mode", h.SetFormMode)
	f.Put("/:id/primary", h.SetFormPrimary)
	f.Post("/:id/collaborators", h.AddFormCollaborator)
	f.Post("/:id/collaborators/from-workflow", h.AddFormCollaboratorsFromWorkflow)
	f.Delete("/:id/collaborators", h.ClearFormCollaborators)
	f.Delete("/:id/collaborators/:userId", h.RemoveFormCollaborator)
	f.Put("/:id/workflow", h.SelectFormWorkflow)
	f.Put("/:id/steps/:stepId", h.SetFormStepAssignment)
	f.Get("/:id/validation", h.ValidateForm)
	f.Post("/:id/submit", h.SubmitForm)

	app.Get("/health", h.HealthCheck)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.workflowService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "taskdesk API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		message = "taskdesk API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"open_forms": h.forms.Count(),
		"timestamp":  time.Now().UTC(),
	})
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.workflowService.List(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"workflows":   workflows,
		"total_count": len(workflows),
	})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	workflow, err := h.workflowService.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

// GetWorkflowSteps returns the steps of a workflow in execution order.
func (h *APIHandlers) GetWorkflowSteps(c fiber.Ctx) error {
	steps, err := h.workflowService.WorkflowSteps(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(steps)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	workflow, err := h.bindWorkflow(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.workflowService.Create(c.Context(), workflow)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	workflow, err := h.bindWorkflow(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.workflowService.Update(c.Context(), c.Params("id"), workflow)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	err := h.workflowService.Delete(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) bindWorkflow(c fiber.Ctx) (*models.Workflow, error) {
	var req WorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return nil, errInvalidJSON
	}

	if err := h.validator.Struct(req); err != nil {
		return nil, err
	}

	return req.Workflow()
}

func (h *APIHandlers) GetUsers(c fiber.Ctx) error {
	users, err := h.directory.List(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(users)
}

func (h *APIHandlers) CreateUser(c fiber.Ctx) error {
	var req CreateUserRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, errInvalidJSON.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	user, err := req.User()
	if err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.directory.Create(c.Context(), user)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

// parseListTasksRequest parses query parameters for listing tasks.
func parseListTasksRequest(c fiber.Ctx) (services.ListTasksRequest, error) {
	req := services.ListTasksRequest{
		AssigneeID: c.Query("assignee_id"),
		WorkflowID: c.Query("workflow_id"),
		SortBy:     c.Query("sort_by"),
		SortOrder:  c.Query("sort_order"),
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return req, err
		}

		req.Limit = limit
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			return req, err
		}

		req.Offset = offset
	}

	return req, nil
}

package web

import (
	"errors"

	"github.com/dukex/taskdesk/pkg/models"
	"github.com/dukex/taskdesk/pkg/persistence"
	"github.com/dukex/taskdesk/pkg/services"
	"github.com/gofiber/fiber/v3"
)

var errInvalidJSON = errors.New("invalid JSON format")

func (h *APIHandlers) GetTasks(c fiber.Ctx) error {
	req, err := parseListTasksRequest(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	result, err := h.taskService.List(c.Context(), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	opts, _ := persistence.ListTasksOptions{Limit: req.Limit, Offset: req.Offset}.Normalize()

	return c.JSON(TaskListResponse{
		Tasks:       result.Tasks,
		TotalCount:  result.TotalCount,
		HasNextPage: result.HasNextPage,
		Limit:       opts.Limit,
		Offset:      opts.Offset,
	})
}

func (h *APIHandlers) GetTask(c fiber.Ctx) error {
	task, err := h.taskService.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(task)
}

func (h *APIHandlers) CreateTask(c fiber.Ctx) error {
	input, err := h.bindTask(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	task, err := h.taskService.Create(c.Context(), input)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(task)
}

func (h *APIHandlers) UpdateTask(c fiber.Ctx) error {
	input, err := h.bindTask(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	task, err := h.taskService.Update(c.Context(), c.Params("id"), input)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(task)
}

func (h *APIHandlers) DeleteTask(c fiber.Ctx) error {
	err := h.taskService.Delete(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// bindTask checks the body against the task schema before binding it, so
// numeric identifiers and malformed shapes are reported uniformly.
func (h *APIHandlers) bindTask(c fiber.Ctx) (services.TaskInput, error) {
	if err := models.ValidateJSON(models.TaskSchema, c.Body()); err != nil {
		return services.TaskInput{}, err
	}

	var req TaskRequest
	if err := c.Bind().JSON(&req); err != nil {
		return services.TaskInput{}, errInvalidJSON
	}

	if err := h.validator.Struct(req); err != nil {
		return services.TaskInput{}, err
	}

	return req.Input()
}

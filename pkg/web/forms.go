package web

import (
	"github.com/dukex/taskdesk/pkg/models"
	"github.com/gofiber/fiber/v3"
)

// OpenForm opens an assignment form, hydrated from task_id when given.
func (h *APIHandlers) OpenForm(c fiber.Ctx) error {
	var req OpenFormRequest

	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, errInvalidJSON.Error())
		}
	}

	taskID, err := models.ParseID(req.TaskID)
	if err != nil {
		return badRequest(c, "task_id: "+err.Error())
	}

	view, err := h.forms.Open(c.Context(), taskID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(view)
}

func (h *APIHandlers) GetForm(c fiber.Ctx) error {
	view, err := h.forms.Get(c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(view)
}

func (h *APIHandlers) CloseForm(c fiber.Ctx) error {
	err := h.forms.Close(c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) SetFormMode(c fiber.Ctx) error {
	var req SetModeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, errInvalidJSON.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	view, err := h.forms.SetMode(c.Params("id"), req.Mode)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(view)
}

func (h *APIHandlers) SetFormPrimary(c fiber.Ctx) error {
	userID, err := bindUserID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	view, err := h.forms.SetPrimary(c.Context(), c.Params("id"), userID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(view)
}

func (h *APIHandlers) AddFormCollaborator(c fiber.Ctx) error {
	userID, err := bindUserID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	if userID == "" {
		return badRequest(c, "user_id is required")
	}

	view, added, err := h.forms.AddCollaborator(c.Context(), c.Params("id"), userID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(CollaboratorResponse{Added: added, Form: view})
}

func (h *APIHandlers) RemoveFormCollaborator(c fiber.Ctx) error {
	view, err := h.forms.RemoveCollaborator(c.Params("id"), c.Params("userId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(view)
}

func (h *APIHandlers) ClearFormCollaborators(c fiber.Ctx) error {
	view, err := h.forms.ClearCollaborators(c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(view)
}

func (h *APIHandlers) AddFormCollaboratorsFromWorkflow(c fiber.Ctx) error {
	view, added, err := h.forms.AddCollaboratorsFromWorkflow(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(BulkAddResponse{Added: added, Form: view})
}

func (h *APIHandlers) SelectFormWorkflow(c fiber.Ctx) error {
	var req SelectWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, errInvalidJSON.Error())
	}

	workflowID, err := models.ParseID(req.WorkflowID)
	if err != nil {
		return badRequest(c, "workflow_id: "+err.Error())
	}

	view, err := h.forms.SelectWorkflow(c.Context(), c.Params("id"), workflowID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(view)
}

func (h *APIHandlers) SetFormStepAssignment(c fiber.Ctx) error {
	userID, err := bindUserID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	view, err := h.forms.SetStepAssignment(c.Context(), c.Params("id"), c.Params("stepId"), userID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(view)
}

func (h *APIHandlers) ValidateForm(c fiber.Ctx) error {
	result, err := h.forms.Validate(c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

// SubmitForm validates the form and creates or updates its task.
func (h *APIHandlers) SubmitForm(c fiber.Ctx) error {
	if err := models.ValidateJSON(models.TaskSchema, c.Body()); err != nil {
		return badRequest(c, err.Error())
	}

	var req TaskDetailsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, errInvalidJSON.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	details, err := req.Details()
	if err != nil {
		return badRequest(c, err.Error())
	}

	view, err := h.forms.Get(c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	task, err := h.forms.Submit(c.Context(), view.ID, details)
	if err != nil {
		return handleServiceError(c, err)
	}

	if view.TaskID == "" {
		return c.Status(fiber.StatusCreated).JSON(task)
	}

	return c.JSON(task)
}

func bindUserID(c fiber.Ctx) (string, error) {
	var req UserSelectionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return "", errInvalidJSON
	}

	return models.ParseID(req.UserID)
}

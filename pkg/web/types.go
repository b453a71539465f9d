package web

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dukex/taskdesk/pkg/models"
	"github.com/dukex/taskdesk/pkg/services"
)

// ErrorResponse represents a standardized API error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// WorkflowStepRequest is one step of a workflow create or update.
type WorkflowStepRequest struct {
	ID               string          `json:"id"`
	Order            int             `json:"order"                      validate:"min=1"`
	Name             string          `json:"name"                       validate:"required"`
	Description      *string         `json:"description,omitempty"`
	RequiresApproval bool            `json:"requires_approval"`
	ApproverRole     *string         `json:"approver_role,omitempty"`
	DefaultAssignee  json.RawMessage `json:"default_assignee,omitempty"`
}

// WorkflowRequest represents the request body for creating or replacing a workflow.
type WorkflowRequest struct {
	Name        string                 `json:"name"        validate:"required,min=3"`
	Description string                 `json:"description"`
	Steps       []*WorkflowStepRequest `json:"steps"       validate:"dive,required"`
}

// Workflow converts the request into a workflow model.
func (r *WorkflowRequest) Workflow() (*models.Workflow, error) {
	workflow := &models.Workflow{
		Name:        r.Name,
		Description: r.Description,
		Steps:       make([]*models.WorkflowStep, 0, len(r.Steps)),
	}

	for _, step := range r.Steps {
		defaultAssignee, err := optionalID(step.DefaultAssignee)
		if err != nil {
			return nil, fmt.Errorf("step %q default_assignee: %w", step.Name, err)
		}

		workflow.Steps = append(workflow.Steps, &models.WorkflowStep{
			ID:               step.ID,
			Order:            step.Order,
			Name:             step.Name,
			Description:      step.Description,
			RequiresApproval: step.RequiresApproval,
			ApproverRole:     step.ApproverRole,
			DefaultAssignee:  defaultAssignee,
		})
	}

	return workflow, nil
}

// CreateUserRequest represents the request body for adding a user to the directory.
type CreateUserRequest struct {
	ID        json.RawMessage `json:"id,omitempty"`
	Username  string          `json:"username"             validate:"required"`
	FirstName *string         `json:"first_name,omitempty"`
	LastName  *string         `json:"last_name,omitempty"`
	Email     *string         `json:"email,omitempty"      validate:"omitempty,email"`
}

// User converts the request into a user reference.
func (r *CreateUserRequest) User() (*models.UserRef, error) {
	id, err := models.ParseID(r.ID)
	if err != nil {
		return nil, fmt.Errorf("id: %w", err)
	}

	return &models.UserRef{
		ID:        id,
		Username:  r.Username,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
	}, nil
}

// TaskDetailsRequest holds the task fields shared by the task endpoints and
// form submission. Identifiers may be strings or integers.
type TaskDetailsRequest struct {
	Title       string          `json:"title"                 validate:"required,min=1"`
	Description string          `json:"description"`
	ClientID    json.RawMessage `json:"client_id,omitempty"`
	DueDate     *time.Time      `json:"due_date,omitempty"`
}

// Details converts the request into service task details.
func (r *TaskDetailsRequest) Details() (services.TaskDetails, error) {
	clientID, err := optionalID(r.ClientID)
	if err != nil {
		return services.TaskDetails{}, fmt.Errorf("client_id: %w", err)
	}

	return services.TaskDetails{
		Title:       r.Title,
		Description: r.Description,
		ClientID:    clientID,
		DueDate:     r.DueDate,
	}, nil
}

// TaskRequest represents the request body for creating or replacing a task.
type TaskRequest struct {
	TaskDetailsRequest

	WorkflowID              json.RawMessage            `json:"workflow_id,omitempty"`
	AssignedTo              json.RawMessage            `json:"assigned_to,omitempty"`
	Collaborators           []json.RawMessage          `json:"collaborators"`
	WorkflowStepAssignments map[string]json.RawMessage `json:"workflow_step_assignments"`
}

// Input converts the request into a task service input.
func (r *TaskRequest) Input() (services.TaskInput, error) {
	details, err := r.Details()
	if err != nil {
		return services.TaskInput{}, err
	}

	workflowID, err := optionalID(r.WorkflowID)
	if err != nil {
		return services.TaskInput{}, fmt.Errorf("workflow_id: %w", err)
	}

	assignedTo, err := optionalID(r.AssignedTo)
	if err != nil {
		return services.TaskInput{}, fmt.Errorf("assigned_to: %w", err)
	}

	submission := models.Submission{
		AssignedTo:              assignedTo,
		Collaborators:           make([]string, 0, len(r.Collaborators)),
		WorkflowStepAssignments: models.StepAssignmentMap{},
	}

	for _, raw := range r.Collaborators {
		id, err := models.ParseID(raw)
		if err != nil {
			return services.TaskInput{}, fmt.Errorf("collaborators: %w", err)
		}

		if id != "" {
			submission.Collaborators = append(submission.Collaborators, id)
		}
	}

	for stepID, raw := range r.WorkflowStepAssignments {
		id, err := models.ParseID(raw)
		if err != nil {
			return services.TaskInput{}, fmt.Errorf("workflow_step_assignments[%s]: %w", stepID, err)
		}

		if id != "" {
			submission.WorkflowStepAssignments[stepID] = id
		}
	}

	return services.TaskInput{
		Title:       details.Title,
		Description: details.Description,
		ClientID:    details.ClientID,
		DueDate:     details.DueDate,
		WorkflowID:  workflowID,
		Submission:  submission,
	}, nil
}

// TaskListResponse is the body of GET /tasks.
type TaskListResponse struct {
	Tasks       []*models.Task `json:"tasks"`
	TotalCount  int64          `json:"total_count"`
	HasNextPage bool           `json:"has_next_page"`
	Limit       int            `json:"limit"`
	Offset      int            `json:"offset"`
}

// OpenFormRequest is the optional body of POST /forms.
type OpenFormRequest struct {
	TaskID json.RawMessage `json:"task_id,omitempty"`
}

// SetModeRequest switches a form between single and multiple assignment.
type SetModeRequest struct {
	Mode models.AssignmentMode `json:"mode" validate:"required,oneof=single multiple"`
}

// UserSelectionRequest names a user; a null or missing user_id clears the selection.
type UserSelectionRequest struct {
	UserID json.RawMessage `json:"user_id"`
}

// SelectWorkflowRequest selects a workflow; a null or missing workflow_id deselects.
type SelectWorkflowRequest struct {
	WorkflowID json.RawMessage `json:"workflow_id"`
}

// BulkAddResponse reports a from-workflow collaborator import.
type BulkAddResponse struct {
	Added int                `json:"added"`
	Form  *services.FormView `json:"form"`
}

// CollaboratorResponse reports a single collaborator add.
type CollaboratorResponse struct {
	Added bool               `json:"added"`
	Form  *services.FormView `json:"form"`
}

func optionalID(raw json.RawMessage) (*string, error) {
	id, err := models.ParseID(raw)
	if err != nil {
		return nil, err
	}

	if id == "" {
		return nil, nil
	}

	return &id, nil
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukex/taskdesk/pkg/assignment"
	"github.com/dukex/taskdesk/pkg/eventbus"
	"github.com/dukex/taskdesk/pkg/events"
	"github.com/dukex/taskdesk/pkg/models"
	"github.com/dukex/taskdesk/pkg/otelhelper"
	"github.com/dukex/taskdesk/pkg/persistence"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// TaskInput is the content of a task create or update: the task details plus
// the assignment submission.
type TaskInput struct {
	Title       string
	Description string
	ClientID    *string
	DueDate     *time.Time
	WorkflowID  *string
	Submission  models.Submission
}

// ListTasksRequest contains options for listing tasks.
type ListTasksRequest struct {
	Limit      int
	Offset     int
	AssigneeID string
	WorkflowID string
	SortBy     string
	SortOrder  string
}

type Task struct {
	persistence persistence.Persistence
	steps       assignment.StepLookup
	directory   *Directory
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
}

// NewTask creates a new task service. publisher may be nil.
func NewTask(
	persistence persistence.Persistence,
	steps assignment.StepLookup,
	directory *Directory,
	publisher eventbus.EventPublisher,
	logger *slog.Logger,
) *Task {
	return &Task{
		persistence: persistence,
		steps:       steps,
		directory:   directory,
		publisher:   publisher,
		logger:      logger,
	}
}

// List retrieves tasks with filtering, sorting, and pagination.
func (s *Task) List(ctx context.Context, req ListTasksRequest) (*persistence.TaskListResult, error) {
	if req.SortOrder != "" && req.SortOrder != persistence.SortOrderAsc && req.SortOrder != persistence.SortOrderDesc {
		return nil, NewValidationError("ListTasks", "INVALID_SORT_ORDER",
			fmt.Sprintf("invalid sort order '%s', allowed: asc, desc", req.SortOrder), ErrInvalidSortOrder)
	}

	result, err := s.persistence.TaskRepository().List(ctx, persistence.ListTasksOptions{
		AssigneeID: req.AssigneeID,
		WorkflowID: req.WorkflowID,
		Limit:      req.Limit,
		Offset:     req.Offset,
		SortBy:     req.SortBy,
		SortOrder:  req.SortOrder,
	})
	if err != nil {
		if persistence.IsInvalidSortField(err) {
			return nil, NewValidationError("ListTasks", "INVALID_SORT_FIELD",
				fmt.Sprintf("invalid sort field '%s', allowed: created_at, updated_at, title, due_date", req.SortBy),
				ErrInvalidSortField)
		}

		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	return result, nil
}

// FetchByID retrieves a task by its ID.
func (s *Task) FetchByID(ctx context.Context, id string) (*models.Task, error) {
	task, err := s.persistence.TaskRepository().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch task %s: %w", id, err)
	}

	if task == nil {
		return nil, persistence.NewTaskError("FetchByID", id, ErrTaskNotFound)
	}

	return task, nil
}

// Create validates the assignment of input against the current workflow steps,
// stores the task and publishes task.assigned.
func (s *Task) Create(ctx context.Context, input TaskInput) (*models.Task, error) {
	task, userIDs, err := s.prepare(ctx, "CreateTask", input)
	if err != nil {
		return nil, err
	}

	err = s.persistence.TaskRepository().Save(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.logger.InfoContext(ctx, "Task created", "task_id", task.ID, "assignees", len(userIDs))
	s.publishAssigned(ctx, task, userIDs, true)

	return task, nil
}

// Update replaces the details and assignment of an existing task.
func (s *Task) Update(ctx context.Context, id string, input TaskInput) (*models.Task, error) {
	existing, err := s.FetchByID(ctx, id)
	if err != nil {
		return nil, err
	}

	task, userIDs, err := s.prepare(ctx, "UpdateTask", input)
	if err != nil {
		return nil, err
	}

	task.ID = existing.ID
	task.CreatedAt = existing.CreatedAt

	err = s.persistence.TaskRepository().Save(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	s.publishAssigned(ctx, task, userIDs, false)

	return task, nil
}

// Delete removes a task and publishes task.deleted.
func (s *Task) Delete(ctx context.Context, id string) error {
	err := s.persistence.TaskRepository().Delete(ctx, id)
	if err != nil {
		if persistence.IsTaskNotFound(err) {
			return err
		}

		return fmt.Errorf("failed to delete task: %w", err)
	}

	s.publish(ctx, id, events.NewTaskDeleted(id))

	return nil
}

// prepare rebuilds the assignment state described by input, validates it with
// the same rules as an open form and returns the task to store together with
// every assigned user id.
func (s *Task) prepare(ctx context.Context, op string, input TaskInput) (*models.Task, []string, error) {
	ctx, span := otelhelper.StartSpan(ctx, otel.Tracer("taskdesk/services"), "task.prepare",
		attribute.String(otelhelper.WorkflowIDKey, derefString(input.WorkflowID)),
	)
	defer span.End()

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, nil, ErrTaskTitleRequired
	}

	primary := derefString(input.Submission.AssignedTo)

	err := s.directory.Known(ctx, primary)
	if err != nil {
		return nil, nil, err
	}

	collaborators, err := s.directory.Resolve(ctx, input.Submission.Collaborators)
	if err != nil {
		return nil, nil, err
	}

	workflowID := derefString(input.WorkflowID)

	resolution, assignments, err := s.resolveSteps(ctx, op, workflowID, input.Submission.WorkflowStepAssignments)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, nil, err
	}

	mode := models.AssignmentModeSingle
	if len(collaborators) > 0 {
		mode = models.AssignmentModeMultiple
	}

	state := assignment.State{
		Mode:               mode,
		PrimaryAssignee:    primary,
		Collaborators:      collaborators,
		StepAssignments:    assignments,
		SelectedWorkflowID: workflowID,
	}

	result := assignment.Validate(state, resolution)
	if !result.IsValid {
		return nil, nil, &AssignmentError{Result: result}
	}

	userIDs := assignment.AssignedUserIDs(state, resolution.Steps)

	span.SetAttributes(attribute.Int(otelhelper.AssigneeCountKey, len(userIDs)))

	stored := models.StepAssignmentMap{}

	for stepID, userID := range assignments {
		if userID != "" {
			stored[stepID] = userID
		}
	}

	task := &models.Task{
		Title:                   title,
		Description:             input.Description,
		ClientID:                input.ClientID,
		DueDate:                 input.DueDate,
		CollaboratorsInfo:       collaborators,
		WorkflowStepAssignments: stored,
	}

	if primary != "" {
		task.AssignedTo = &primary
	}

	if workflowID != "" {
		task.WorkflowID = &workflowID
	}

	return task, userIDs, nil
}

// resolveSteps loads the steps of workflowID synchronously and merges the
// submitted step assignments over the step defaults.
func (s *Task) resolveSteps(
	ctx context.Context,
	op string,
	workflowID string,
	submitted models.StepAssignmentMap,
) (assignment.Resolution, models.StepAssignmentMap, error) {
	if workflowID == "" {
		if len(submitted) > 0 {
			return assignment.Resolution{}, nil, NewValidationError(op, "UNKNOWN_STEP",
				"step assignments require a selected workflow", ErrUnknownStep)
		}

		return assignment.Resolution{Status: assignment.ResolverIdle}, models.StepAssignmentMap{}, nil
	}

	steps, err := s.steps.WorkflowSteps(ctx, workflowID)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return assignment.Resolution{}, nil, NewValidationError(op, "UNKNOWN_WORKFLOW",
				fmt.Sprintf("workflow %s does not exist", workflowID), ErrInvalidRequest)
		}

		return assignment.Resolution{}, nil, fmt.Errorf("failed to resolve workflow steps: %w", err)
	}

	known := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		known[step.ID] = struct{}{}
	}

	for _, stepID := range submitted.Keys() {
		if _, ok := known[stepID]; !ok {
			return assignment.Resolution{}, nil, NewValidationError(op, "UNKNOWN_STEP",
				fmt.Sprintf("step %s does not belong to workflow %s", stepID, workflowID), ErrUnknownStep)
		}

		err := s.directory.Known(ctx, submitted[stepID])
		if err != nil {
			return assignment.Resolution{}, nil, err
		}
	}

	resolution := assignment.Resolution{WorkflowID: workflowID, Status: assignment.ResolverEmpty, Steps: steps}
	if len(steps) > 0 {
		resolution.Status = assignment.ResolverReady
	}

	assignments := assignment.InitialAssignments(steps, submitted)
	resolution.Assignments = assignments

	return resolution, assignments, nil
}

func (s *Task) publishAssigned(ctx context.Context, task *models.Task, userIDs []string, created bool) {
	event := events.NewTaskAssigned(task.ID, task.Title, userIDs)
	event.WorkflowID = task.SelectedWorkflowID()
	event.AssignedTo = derefString(task.AssignedTo)
	event.Collaborators = task.CollaboratorIDs()
	event.WorkflowStepAssignments = task.WorkflowStepAssignments.Clone()
	event.Created = created

	err := event.Validate()
	if err != nil {
		s.logger.ErrorContext(ctx, "Refusing to publish invalid task.assigned event", "task_id", task.ID, "error", err)

		return
	}

	s.publish(ctx, task.ID, event)
}

func (s *Task) publish(ctx context.Context, taskID string, event eventbus.Event) {
	if s.publisher == nil {
		return
	}

	err := s.publisher.Publish(ctx, taskID, event)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish task event",
			"task_id", taskID, "event_type", event.GetType(), "error", err)
	}
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}

	return *value
}

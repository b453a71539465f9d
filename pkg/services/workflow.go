package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dukex/taskdesk/pkg/models"
	"github.com/dukex/taskdesk/pkg/otelhelper"
	"github.com/dukex/taskdesk/pkg/persistence"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// ChangeFunc is notified after a workflow is updated or deleted.
type ChangeFunc func(ctx context.Context, workflowID string)

type Workflow struct {
	persistence persistence.Persistence
	logger      *slog.Logger

	mu        sync.RWMutex
	listeners []ChangeFunc
}

// NewWorkflow creates a new workflow service.
func NewWorkflow(persistence persistence.Persistence, logger *slog.Logger) *Workflow {
	return &Workflow{
		persistence: persistence,
		logger:      logger,
	}
}

// OnChange registers fn to run after every update or delete.
func (w *Workflow) OnChange(fn ChangeFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.listeners = append(w.listeners, fn)
}

func (w *Workflow) notify(ctx context.Context, workflowID string) {
	w.mu.RLock()
	listeners := w.listeners
	w.mu.RUnlock()

	for _, fn := range listeners {
		fn(ctx, workflowID)
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// List returns every workflow.
func (w *Workflow) List(ctx context.Context) ([]*models.Workflow, error) {
	workflows, err := w.persistence.WorkflowRepository().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return workflows, nil
}

// FetchByID retrieves a workflow by its ID.
func (w *Workflow) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	workflow, err := w.persistence.WorkflowRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if workflow == nil {
		return nil, persistence.NewWorkflowError("FetchByID", id, ErrWorkflowNotFound)
	}

	return workflow, nil
}

// WorkflowSteps returns the steps of a workflow in ascending order. It serves
// as the step lookup of assignment forms.
func (w *Workflow) WorkflowSteps(ctx context.Context, workflowID string) ([]*models.WorkflowStep, error) {
	ctx, span := otelhelper.StartSpan(ctx, otel.Tracer("taskdesk/services"), "workflow.steps",
		attribute.String(otelhelper.WorkflowIDKey, workflowID),
	)
	defer span.End()

	workflow, err := w.FetchByID(ctx, workflowID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	models.SortSteps(workflow.Steps)

	return workflow.Steps, nil
}

// Create adds a new workflow to the repository.
func (w *Workflow) Create(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	err := validateWorkflow("Create", workflow)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	workflow.ID = uuid.New().String()
	workflow.CreatedAt = now
	workflow.UpdatedAt = now

	err = w.persistence.WorkflowRepository().Save(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	w.logger.InfoContext(ctx, "Workflow created", "workflow_id", workflow.ID, "steps", len(workflow.Steps))

	return workflow, nil
}

// Update modifies an existing workflow by its ID.
func (w *Workflow) Update(
	ctx context.Context,
	workflowID string,
	workflow *models.Workflow,
) (*models.Workflow, error) {
	err := validateWorkflow("Update", workflow)
	if err != nil {
		return nil, err
	}

	existing, err := w.FetchByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	workflow.ID = workflowID
	workflow.CreatedAt = existing.CreatedAt
	workflow.UpdatedAt = time.Now().UTC()

	err = w.persistence.WorkflowRepository().Save(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	w.notify(ctx, workflowID)

	return workflow, nil
}

// Delete removes a workflow by its ID.
func (w *Workflow) Delete(ctx context.Context, workflowID string) error {
	_, err := w.FetchByID(ctx, workflowID)
	if err != nil {
		return err
	}

	err = w.persistence.WorkflowRepository().Delete(ctx, workflowID)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	w.notify(ctx, workflowID)

	return nil
}

// validateWorkflow checks the template and normalises its steps: missing step
// ids are generated, orders must be >= 1 and unique, and steps end up sorted.
func validateWorkflow(op string, workflow *models.Workflow) error {
	if workflow == nil {
		return ErrWorkflowNil
	}

	workflow.Name = strings.TrimSpace(workflow.Name)
	if workflow.Name == "" {
		return ErrWorkflowNameRequired
	}

	ids := make(map[string]struct{}, len(workflow.Steps))
	orders := make(map[int]string, len(workflow.Steps))

	for _, step := range workflow.Steps {
		if step == nil {
			return NewValidationError(op, "INVALID_STEP", "workflow steps cannot be null", ErrInvalidRequest)
		}

		if strings.TrimSpace(step.Name) == "" {
			return NewValidationError(op, "STEP_NAME_REQUIRED",
				fmt.Sprintf("step %q has no name", step.ID), ErrStepNameRequired)
		}

		if step.ID == "" {
			step.ID = uuid.New().String()
		}

		if _, seen := ids[step.ID]; seen {
			return NewValidationError(op, "DUPLICATE_STEP_ID",
				fmt.Sprintf("step id %q is used more than once", step.ID), ErrDuplicateStepID)
		}

		ids[step.ID] = struct{}{}

		if step.Order < 1 {
			return NewValidationError(op, "INVALID_STEP_ORDER",
				fmt.Sprintf("step %q has order %d, orders start at 1", step.Name, step.Order), ErrInvalidStepOrder)
		}

		if other, seen := orders[step.Order]; seen {
			return NewValidationError(op, "INVALID_STEP_ORDER",
				fmt.Sprintf("steps %q and %q share order %d", other, step.Name, step.Order), ErrInvalidStepOrder)
		}

		orders[step.Order] = step.Name
	}

	models.SortSteps(workflow.Steps)

	return nil
}

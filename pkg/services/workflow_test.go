package services

import (
	"context"
	"testing"

	"github.com/dukex/taskdesk/pkg/models"
	"github.com/dukex/taskdesk/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWorkflow(t *testing.T) {
	persistence := file.NewPersistence(t.TempDir())
	service := NewWorkflow(persistence, testLogger())

	assert.NotNil(t, service)
	assert.Equal(t, persistence, service.persistence)
}

func TestWorkflow_Create(t *testing.T) {
	service := NewWorkflow(file.NewPersistence(t.TempDir()), testLogger())

	created, err := service.Create(t.Context(), &models.Workflow{
		Name:        "  Onboarding  ",
		Description: "New client onboarding",
		Steps: []*models.WorkflowStep{
			{Order: 2, Name: "Sign contract"},
			{ID: "collect", Order: 1, Name: "Collect documents"},
		},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Onboarding", created.Name)
	assert.False(t, created.CreatedAt.IsZero())
	require.Len(t, created.Steps, 2)
	assert.Equal(t, "collect", created.Steps[0].ID)
	assert.NotEmpty(t, created.Steps[1].ID, "missing step ids are generated")

	fetched, err := service.FetchByID(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, fetched.Name)
	assert.Len(t, fetched.Steps, 2)
}

func TestWorkflow_CreateValidation(t *testing.T) {
	tests := []struct {
		name     string
		workflow *models.Workflow
		want     error
	}{
		{
			name:     "nil workflow",
			workflow: nil,
			want:     ErrWorkflowNil,
		},
		{
			name:     "blank name",
			workflow: &models.Workflow{Name: "   "},
			want:     ErrWorkflowNameRequired,
		},
		{
			name: "step without name",
			workflow: &models.Workflow{Name: "wf", Steps: []*models.WorkflowStep{
				{ID: "a", Order: 1},
			}},
			want: ErrStepNameRequired,
		},
		{
			name: "order below one",
			workflow: &models.Workflow{Name: "wf", Steps: []*models.WorkflowStep{
				{ID: "a", Order: 0, Name: "A"},
			}},
			want: ErrInvalidStepOrder,
		},
		{
			name: "shared order",
			workflow: &models.Workflow{Name: "wf", Steps: []*models.WorkflowStep{
				{ID: "a", Order: 1, Name: "A"},
				{ID: "b", Order: 1, Name: "B"},
			}},
			want: ErrInvalidStepOrder,
		},
		{
			name: "duplicate id",
			workflow: &models.Workflow{Name: "wf", Steps: []*models.WorkflowStep{
				{ID: "a", Order: 1, Name: "A"},
				{ID: "a", Order: 2, Name: "B"},
			}},
			want: ErrDuplicateStepID,
		},
		{
			name:     "nil step",
			workflow: &models.Workflow{Name: "wf", Steps: []*models.WorkflowStep{nil}},
			want:     ErrInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewWorkflow(file.NewPersistence(t.TempDir()), testLogger())

			_, err := service.Create(t.Context(), tt.workflow)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, IsValidationError(err))
		})
	}
}

func TestWorkflow_FetchByIDNotFound(t *testing.T) {
	service := NewWorkflow(file.NewPersistence(t.TempDir()), testLogger())

	workflow, err := service.FetchByID(t.Context(), "missing")
	require.Error(t, err)
	assert.Nil(t, workflow)
	assert.ErrorIs(t, err, ErrWorkflowNotFound)
	assert.True(t, IsNotFoundError(err))
}

func TestWorkflow_List(t *testing.T) {
	service := NewWorkflow(file.NewPersistence(t.TempDir()), testLogger())

	workflows, err := service.List(t.Context())
	require.NoError(t, err)
	assert.Empty(t, workflows)

	for _, name := range []string{"Billing", "Audit"} {
		_, err := service.Create(t.Context(), &models.Workflow{Name: name})
		require.NoError(t, err)
	}

	workflows, err = service.List(t.Context())
	require.NoError(t, err)
	require.Len(t, workflows, 2)
	assert.Equal(t, "Audit", workflows[0].Name)
	assert.Equal(t, "Billing", workflows[1].Name)
}

func TestWorkflow_UpdateNotifiesListeners(t *testing.T) {
	service := NewWorkflow(file.NewPersistence(t.TempDir()), testLogger())

	var changed []string

	service.OnChange(func(_ context.Context, workflowID string) {
		changed = append(changed, workflowID)
	})

	created, err := service.Create(t.Context(), &models.Workflow{Name: "Payroll"})
	require.NoError(t, err)
	assert.Empty(t, changed, "create does not notify")

	updated, err := service.Update(t.Context(), created.ID, &models.Workflow{
		Name:  "Payroll v2",
		Steps: []*models.WorkflowStep{{ID: "run", Order: 1, Name: "Run payroll"}},
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))

	steps, err := service.WorkflowSteps(t.Context(), created.ID)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, "run", steps[0].ID)

	require.NoError(t, service.Delete(t.Context(), created.ID))
	assert.Equal(t, []string{created.ID, created.ID}, changed)

	_, err = service.WorkflowSteps(t.Context(), created.ID)
	assert.ErrorIs(t, err, ErrWorkflowNotFound)
}

func TestWorkflow_UpdateMissing(t *testing.T) {
	service := NewWorkflow(file.NewPersistence(t.TempDir()), testLogger())

	_, err := service.Update(t.Context(), "missing", &models.Workflow{Name: "Name"})
	assert.ErrorIs(t, err, ErrWorkflowNotFound)

	err = service.Delete(t.Context(), "missing")
	assert.ErrorIs(t, err, ErrWorkflowNotFound)
}

func TestWorkflow_HealthCheck(t *testing.T) {
	service := NewWorkflow(file.NewPersistence(t.TempDir()), testLogger())

	message, ok := service.HealthCheck(t.Context())
	assert.True(t, ok)
	assert.Equal(t, "Persistence layer is healthy", message)

	service = NewWorkflow(nil, testLogger())

	_, ok = service.HealthCheck(t.Context())
	assert.False(t, ok)
}

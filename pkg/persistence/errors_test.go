package persistence_test

import (
	"errors"
	"testing"

	"github.com/dukex/taskdesk/pkg/models"
	"github.com/dukex/taskdesk/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardizedErrors(t *testing.T) {
	t.Parallel()

	t.Run("error checking functions work correctly", func(t *testing.T) {
		workflowErr := persistence.NewWorkflowError("GetByID", "workflow-123", persistence.ErrWorkflowNotFound)
		taskErr := persistence.NewTaskError("Delete", "task-456", persistence.ErrTaskNotFound)

		assert.True(t, persistence.IsWorkflowNotFound(workflowErr))
		assert.True(t, persistence.IsTaskNotFound(taskErr))
		assert.False(t, persistence.IsTaskNotFound(workflowErr))

		assert.True(t, errors.Is(workflowErr, persistence.ErrWorkflowNotFound))
		assert.True(t, errors.Is(taskErr, persistence.ErrTaskNotFound))
	})

	t.Run("workflow error contains context", func(t *testing.T) {
		err := persistence.NewWorkflowError("Save", "workflow-123", persistence.ErrWorkflowNotFound)

		assert.Contains(t, err.Error(), "Save")
		assert.Contains(t, err.Error(), "workflow-123")
		assert.Contains(t, err.Error(), "workflow not found")
	})

	t.Run("task error contains context", func(t *testing.T) {
		err := persistence.NewTaskError("Delete", "task-456", persistence.ErrTaskNotFound)

		assert.Contains(t, err.Error(), "Delete")
		assert.Contains(t, err.Error(), "task-456")
		assert.Contains(t, err.Error(), "task not found")
	})

	t.Run("invalid sort field names the field", func(t *testing.T) {
		err := persistence.NewInvalidSortFieldError("name; DROP TABLE tasks")

		assert.True(t, persistence.IsInvalidSortField(err))
		assert.Contains(t, err.Error(), "DROP TABLE")
	})
}

func TestListTasksOptions_Normalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      persistence.ListTasksOptions
		want    persistence.ListTasksOptions
		wantErr bool
	}{
		{
			name: "defaults",
			in:   persistence.ListTasksOptions{},
			want: persistence.ListTasksOptions{Limit: 20, SortBy: "created_at", SortOrder: "desc"},
		},
		{
			name: "limit above max is reset",
			in:   persistence.ListTasksOptions{Limit: 500, Offset: -3, SortBy: "title", SortOrder: "asc"},
			want: persistence.ListTasksOptions{Limit: 20, SortBy: "title", SortOrder: "asc"},
		},
		{
			name: "unknown order falls back to desc",
			in:   persistence.ListTasksOptions{Limit: 5, SortBy: "due_date", SortOrder: "sideways"},
			want: persistence.ListTasksOptions{Limit: 5, SortBy: "due_date", SortOrder: "desc"},
		},
		{
			name:    "unknown field",
			in:      persistence.ListTasksOptions{SortBy: "unknown_column"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.Normalize()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, persistence.IsInvalidSortField(err))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTaskMatchesAssignee(t *testing.T) {
	t.Parallel()

	primary := "u1"
	task := &models.Task{
		AssignedTo:              &primary,
		CollaboratorsInfo:       []models.Collaborator{{ID: "u2", Username: "bob"}},
		WorkflowStepAssignments: models.StepAssignmentMap{"s1": "u3", "s2": ""},
	}

	assert.True(t, persistence.TaskMatchesAssignee(task, "u1"))
	assert.True(t, persistence.TaskMatchesAssignee(task, "u2"))
	assert.True(t, persistence.TaskMatchesAssignee(task, "u3"))
	assert.False(t, persistence.TaskMatchesAssignee(task, "u4"))
}

package file

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dukex/taskdesk/pkg/models"
	"github.com/dukex/taskdesk/pkg/persistence"
	"github.com/google/uuid"
)

// TaskRepository handles task-related file operations.
type TaskRepository struct {
	documents *collection
}

// NewTaskRepository creates a new task repository.
func NewTaskRepository(root string) *TaskRepository {
	return &TaskRepository{documents: newCollection(root, "tasks")}
}

// List returns paginated and filtered tasks with in-memory operations.
func (tr *TaskRepository) List(_ context.Context, opts persistence.ListTasksOptions) (*persistence.TaskListResult, error) {
	opts, err := opts.Normalize()
	if err != nil {
		return nil, err
	}

	tasks, err := all[models.Task](tr.documents)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	filtered := make([]*models.Task, 0, len(tasks))

	for _, task := range tasks {
		if opts.WorkflowID != "" && task.SelectedWorkflowID() != opts.WorkflowID {
			continue
		}

		if opts.AssigneeID != "" && !persistence.TaskMatchesAssignee(task, opts.AssigneeID) {
			continue
		}

		filtered = append(filtered, task)
	}

	sortTasks(filtered, opts.SortBy, opts.SortOrder)

	totalCount := int64(len(filtered))

	if opts.Offset >= len(filtered) {
		return &persistence.TaskListResult{
			Tasks:       make([]*models.Task, 0),
			TotalCount:  totalCount,
			HasNextPage: false,
		}, nil
	}

	endIdx := min(opts.Offset+opts.Limit, len(filtered))

	return &persistence.TaskListResult{
		Tasks:       filtered[opts.Offset:endIdx],
		TotalCount:  totalCount,
		HasNextPage: endIdx < len(filtered),
	}, nil
}

// sortTasks sorts tasks in-place based on the specified field and order.
// Tasks without a due date sort after dated ones in ascending order.
func sortTasks(tasks []*models.Task, sortBy, sortOrder string) {
	less := func(a, b *models.Task) bool {
		switch sortBy {
		case persistence.SortByUpdatedAt:
			return a.UpdatedAt.Before(b.UpdatedAt)
		case persistence.SortByTitle:
			return a.Title < b.Title
		case persistence.SortByDueDate:
			return dueBefore(a.DueDate, b.DueDate)
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		if sortOrder == persistence.SortOrderDesc {
			return less(tasks[j], tasks[i])
		}

		return less(tasks[i], tasks[j])
	})
}

func dueBefore(a, b *time.Time) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return a.Before(*b)
	}
}

// GetByID retrieves a task by its ID from the file system.
func (tr *TaskRepository) GetByID(_ context.Context, taskID string) (*models.Task, error) {
	var task models.Task

	found, err := tr.documents.read(taskID, &task)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch task %s: %w", taskID, err)
	}

	if !found {
		return nil, nil
	}

	return &task, nil
}

// Save saves a task to the file system.
func (tr *TaskRepository) Save(_ context.Context, task *models.Task) error {
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}

	task.UpdatedAt = now

	if task.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate task ID: %w", err)
		}

		task.ID = id.String()
	}

	err := tr.documents.write(task.ID, task)
	if err != nil {
		return fmt.Errorf("failed to save task %s: %w", task.ID, err)
	}

	return nil
}

// Delete removes a task by its ID.
func (tr *TaskRepository) Delete(_ context.Context, id string) error {
	found, err := tr.documents.remove(id)
	if err != nil {
		return persistence.NewTaskError("Delete", id, err)
	}

	if !found {
		return persistence.NewTaskError("Delete", id, persistence.ErrTaskNotFound)
	}

	return nil
}

// Package persistence provides the data storage abstraction layer for workflows, tasks and users.
package persistence

import (
	"context"

	"github.com/dukex/taskdesk/pkg/models"
)

// Persistence groups the repositories of a storage backend.
type Persistence interface {
	WorkflowRepository() WorkflowRepository
	TaskRepository() TaskRepository
	UserRepository() UserRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository stores task templates. GetByID returns nil, nil when the
// workflow does not exist. Steps are always returned in ascending order.
type WorkflowRepository interface {
	GetAll(ctx context.Context) ([]*models.Workflow, error)
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
	Delete(ctx context.Context, id string) error
}

// TaskRepository stores tasks. GetByID returns nil, nil when the task does not exist.
type TaskRepository interface {
	List(ctx context.Context, opts ListTasksOptions) (*TaskListResult, error)
	GetByID(ctx context.Context, id string) (*models.Task, error)
	Save(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id string) error
}

// UserRepository stores the user directory. GetByID returns nil, nil when the
// user does not exist.
type UserRepository interface {
	GetAll(ctx context.Context) ([]*models.UserRef, error)
	GetByID(ctx context.Context, id string) (*models.UserRef, error)
	Save(ctx context.Context, user *models.UserRef) error
}

// Task list sort fields.
const (
	SortByCreatedAt = "created_at"
	SortByUpdatedAt = "updated_at"
	SortByTitle     = "title"
	SortByDueDate   = "due_date"

	SortOrderAsc  = "asc"
	SortOrderDesc = "desc"

	DefaultTaskLimit = 20
	MaxTaskLimit     = 100
)

// ListTasksOptions filters and paginates a task listing.
type ListTasksOptions struct {
	// AssigneeID matches tasks where the user is primary, collaborator or step assignee.
	AssigneeID string
	WorkflowID string

	Limit     int
	Offset    int
	SortBy    string
	SortOrder string
}

// Normalize applies defaults and checks the sort field.
func (o ListTasksOptions) Normalize() (ListTasksOptions, error) {
	if o.Limit <= 0 || o.Limit > MaxTaskLimit {
		o.Limit = DefaultTaskLimit
	}

	if o.Offset < 0 {
		o.Offset = 0
	}

	if o.SortBy == "" {
		o.SortBy = SortByCreatedAt
	}

	if o.SortOrder != SortOrderAsc {
		o.SortOrder = SortOrderDesc
	}

	switch o.SortBy {
	case SortByCreatedAt, SortByUpdatedAt, SortByTitle, SortByDueDate:
		return o, nil
	default:
		return o, NewInvalidSortFieldError(o.SortBy)
	}
}

// TaskListResult is a page of tasks.
type TaskListResult struct {
	Tasks       []*models.Task `json:"tasks"`
	TotalCount  int64          `json:"total_count"`
	HasNextPage bool           `json:"has_next_page"`
}

// TaskMatchesAssignee reports whether userID takes part in task through any channel.
func TaskMatchesAssignee(task *models.Task, userID string) bool {
	if userID == "" {
		return false
	}

	if task.AssignedTo != nil && *task.AssignedTo == userID {
		return true
	}

	for _, collaborator := range task.CollaboratorsInfo {
		if collaborator.ID == userID {
			return true
		}
	}

	for _, assignee := range task.WorkflowStepAssignments {
		if assignee == userID {
			return true
		}
	}

	return false
}

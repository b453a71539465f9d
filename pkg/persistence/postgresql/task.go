package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/taskdesk/pkg/models"
	"github.com/dukex/taskdesk/pkg/persistence"
	"github.com/google/uuid"
)

// sortColumns maps the allowed sort fields to SQL columns.
var sortColumns = map[string]string{
	persistence.SortByCreatedAt: "created_at",
	persistence.SortByUpdatedAt: "updated_at",
	persistence.SortByTitle:     "title",
	persistence.SortByDueDate:   "due_date",
}

// taskFilter matches the optional workflow ($1) and assignee ($2) filters. The
// assignee matches the primary, any collaborator or any step assignee.
const taskFilter = `
		WHERE ($1::text = '' OR workflow_id = $1::text)
		  AND (
			$2::text = ''
			OR assigned_to = $2::text
			OR collaborators_info @> jsonb_build_array(jsonb_build_object('id', $2::text))
			OR EXISTS (
				SELECT 1 FROM jsonb_each_text(workflow_step_assignments) AS step
				WHERE step.value = $2::text
			)
		  )
`

// TaskRepository handles task-related database operations.
type TaskRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewTaskRepository creates a new task repository.
func NewTaskRepository(db *sql.DB, logger *slog.Logger) *TaskRepository {
	return &TaskRepository{db: db, logger: logger}
}

// List returns a filtered, sorted page of tasks.
func (r *TaskRepository) List(ctx context.Context, opts persistence.ListTasksOptions) (*persistence.TaskListResult, error) {
	opts, err := opts.Normalize()
	if err != nil {
		return nil, err
	}

	// sortColumns is an allowlist, so the column and direction are safe to interpolate.
	orderBy := fmt.Sprintf("%s %s, id %s", sortColumns[opts.SortBy], opts.SortOrder, opts.SortOrder)

	var totalCount int64

	err = r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tasks"+taskFilter, opts.WorkflowID, opts.AssigneeID).
		Scan(&totalCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}

	query := `
		SELECT
			id
		  , title
		  , description
		  , client_id
		  , due_date
		  , workflow_id
		  , assigned_to
		  , collaborators_info
		  , workflow_step_assignments
		  , created_at
		  , updated_at
		FROM tasks` + taskFilter + `
		ORDER BY ` + orderBy + `
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.QueryContext(ctx, query, opts.WorkflowID, opts.AssigneeID, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}

	defer closeRows(r.logger, rows)

	tasks := make([]*models.Task, 0, opts.Limit)

	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}

		tasks = append(tasks, task)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	return &persistence.TaskListResult{
		Tasks:       tasks,
		TotalCount:  totalCount,
		HasNextPage: int64(opts.Offset+len(tasks)) < totalCount,
	}, nil
}

// GetByID returns a task, or nil when it does not exist.
func (r *TaskRepository) GetByID(ctx context.Context, id string) (*models.Task, error) {
	query := `
		SELECT
			id
		  , title
		  , description
		  , client_id
		  , due_date
		  , workflow_id
		  , assigned_to
		  , collaborators_info
		  , workflow_step_assignments
		  , created_at
		  , updated_at
		FROM tasks
		WHERE id = $1
	`

	task, err := scanTask(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan task: %w", err)
	}

	return task, nil
}

// Save upserts a task.
func (r *TaskRepository) Save(ctx context.Context, task *models.Task) error {
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

	collaborators := task.CollaboratorsInfo
	if collaborators == nil {
		collaborators = []models.Collaborator{}
	}

	collaboratorsJSON, err := json.Marshal(collaborators)
	if err != nil {
		return fmt.Errorf("failed to marshal collaborators: %w", err)
	}

	assignmentsJSON, err := json.Marshal(task.WorkflowStepAssignments.Clone())
	if err != nil {
		return fmt.Errorf("failed to marshal step assignments: %w", err)
	}

	query := `
		INSERT INTO tasks (id, title, description, client_id, due_date, workflow_id,
assigned_to, collaborators_info, workflow_step_assignments, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			client_id = EXCLUDED.client_id,
			due_date = EXCLUDED.due_date,
			workflow_id = EXCLUDED.workflow_id,
			assigned_to = EXCLUDED.assigned_to,
			collaborators_info = EXCLUDED.collaborators_info,
			workflow_step_assignments = EXCLUDED.workflow_step_assignments,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		task.ClientID,
		task.DueDate,
		task.WorkflowID,
		task.AssignedTo,
		collaboratorsJSON,
		assignmentsJSON,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}

	return nil
}

// Delete removes a task. It returns ErrTaskNotFound when nothing was deleted.
func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = $1", id)
	if err != nil {
		return persistence.NewTaskError("Delete", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return persistence.NewTaskError("Delete", id, persistence.ErrTaskNotFound)
	}

	return nil
}

func scanTask(row scanner) (*models.Task, error) {
	var (
		task              models.Task
		clientID          sql.NullString
		dueDate           sql.NullTime
		workflowID        sql.NullString
		assignedTo        sql.NullString
		collaboratorsJSON []byte
		assignmentsJSON   []byte
	)

	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&clientID,
		&dueDate,
		&workflowID,
		&assignedTo,
		&collaboratorsJSON,
		&assignmentsJSON,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.ClientID = nullableString(clientID)
	task.WorkflowID = nullableString(workflowID)
	task.AssignedTo = nullableString(assignedTo)

	if dueDate.Valid {
		task.DueDate = &dueDate.Time
	}

	err = json.Unmarshal(collaboratorsJSON, &task.CollaboratorsInfo)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal collaborators: %w", err)
	}

	err = json.Unmarshal(assignmentsJSON, &task.WorkflowStepAssignments)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal step assignments: %w", err)
	}

	return &task, nil
}

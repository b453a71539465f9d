package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dukex/taskdesk/pkg/assignment"
	"github.com/dukex/taskdesk/pkg/models"
	"github.com/google/uuid"
)

const (
	DefaultFormIdleTimeout  = 30 * time.Minute
	DefaultStepFetchTimeout = 10 * time.Second
)

// TaskDetails are the non-assignment fields submitted with a form.
type TaskDetails struct {
	Title       string
	Description string
	ClientID    *string
	DueDate     *time.Time
}

// FormView is the API projection of an open form.
type FormView struct {
	ID       string              `json:"id"`
	TaskID   string              `json:"task_id,omitempty"`
	LastUsed time.Time           `json:"last_used"`
	Snapshot assignment.Snapshot `json:"snapshot"`
}

type openForm struct {
	form     *assignment.Form
	taskID   string
	lastUsed time.Time
}

// FormsOption configures the Forms service.
type FormsOption func(*Forms)

// WithIdleTimeout sets how long an untouched form survives a sweep.
func WithIdleTimeout(timeout time.Duration) FormsOption {
	return func(f *Forms) {
		if timeout > 0 {
			f.idleTimeout = timeout
		}
	}
}

// WithStepFetchTimeout bounds each workflow step fetch of a form.
func WithStepFetchTimeout(timeout time.Duration) FormsOption {
	return func(f *Forms) {
		if timeout > 0 {
			f.fetchTimeout = timeout
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) FormsOption {
	return func(f *Forms) {
		f.now = now
	}
}

// Forms holds the open assignment forms in memory, addressed by form id. A
// form lives until it is closed, submitted successfully or swept for
// inactivity.
type Forms struct {
	lookup    assignment.StepLookup
	tasks     *Task
	directory *Directory
	logger    *slog.Logger

	idleTimeout  time.Duration
	fetchTimeout time.Duration
	now          func() time.Time

	mu    sync.Mutex
	forms map[string]*openForm
}

// NewForms creates the form registry. Steps are resolved through lookup.
func NewForms(
	lookup assignment.StepLookup,
	tasks *Task,
	directory *Directory,
	logger *slog.Logger,
	opts ...FormsOption,
) *Forms {
	f := &Forms{
		tasks:        tasks,
		directory:    directory,
		logger:       logger,
		idleTimeout:  DefaultFormIdleTimeout,
		fetchTimeout: DefaultStepFetchTimeout,
		now:          time.Now,
		forms:        make(map[string]*openForm),
	}

	for _, opt := range opts {
		opt(f)
	}

	f.lookup = assignment.StepLookupFunc(func(ctx context.Context, workflowID string) ([]*models.WorkflowStep, error) {
		ctx, cancel := context.WithTimeout(ctx, f.fetchTimeout)
		defer cancel()

		return lookup.WorkflowSteps(ctx, workflowID)
	})

	return f
}

// Open creates a form. With a taskID the form is hydrated from that task.
func (f *Forms) Open(ctx context.Context, taskID string) (*FormView, error) {
	var task *models.Task

	if taskID != "" {
		var err error

		task, err = f.tasks.FetchByID(ctx, taskID)
		if err != nil {
			return nil, err
		}
	}

	form := assignment.NewForm(f.lookup, assignment.WithLogger(f.logger))
	if task != nil {
		form.Hydrate(ctx, task)
	}

	id := uuid.New().String()
	entry := &openForm{form: form, taskID: taskID, lastUsed: f.now()}

	f.mu.Lock()
	f.forms[id] = entry
	f.mu.Unlock()

	f.logger.InfoContext(ctx, "Form opened", "form_id", id, "task_id", taskID)

	return f.view(id, entry), nil
}

// Get returns the current view of a form.
func (f *Forms) Get(id string) (*FormView, error) {
	entry, err := f.touch(id)
	if err != nil {
		return nil, err
	}

	return f.view(id, entry), nil
}

// SetMode switches between single and multiple assignment.
func (f *Forms) SetMode(id string, mode models.AssignmentMode) (*FormView, error) {
	if !mode.Valid() {
		return nil, NewValidationError("SetMode", "INVALID_MODE",
			fmt.Sprintf("invalid mode '%s', allowed: single, multiple", mode), ErrInvalidMode)
	}

	entry, err := f.touch(id)
	if err != nil {
		return nil, err
	}

	entry.form.SetMode(mode)

	return f.view(id, entry), nil
}

// SetPrimary sets or, with "", clears the primary assignee.
func (f *Forms) SetPrimary(ctx context.Context, id, userID string) (*FormView, error) {
	entry, err := f.touch(id)
	if err != nil {
		return nil, err
	}

	err = f.directory.Known(ctx, userID)
	if err != nil {
		return nil, err
	}

	entry.form.SetPrimaryAssignee(userID)

	return f.view(id, entry), nil
}

// AddCollaborator adds a directory user as collaborator. The returned flag is
// false when the add was a no-op.
func (f *Forms) AddCollaborator(ctx context.Context, id, userID string) (*FormView, bool, error) {
	entry, err := f.touch(id)
	if err != nil {
		return nil, false, err
	}

	users, err := f.directory.Resolve(ctx, []string{userID})
	if err != nil {
		return nil, false, err
	}

	added := entry.form.AddCollaborator(users[0])

	return f.view(id, entry), added, nil
}

// RemoveCollaborator removes one collaborator.
func (f *Forms) RemoveCollaborator(id, userID string) (*FormView, error) {
	entry, err := f.touch(id)
	if err != nil {
		return nil, err
	}

	entry.form.RemoveCollaborator(userID)

	return f.view(id, entry), nil
}

// ClearCollaborators removes every collaborator.
func (f *Forms) ClearCollaborators(id string) (*FormView, error) {
	entry, err := f.touch(id)
	if err != nil {
		return nil, err
	}

	entry.form.ClearCollaborators()

	return f.view(id, entry), nil
}

// AddCollaboratorsFromWorkflow adds every step assignee as collaborator and
// returns how many were added.
func (f *Forms) AddCollaboratorsFromWorkflow(ctx context.Context, id string) (*FormView, int, error) {
	entry, err := f.touch(id)
	if err != nil {
		return nil, 0, err
	}

	users, err := f.directory.Resolve(ctx, entry.form.StepAssigneeIDs())
	if err != nil {
		return nil, 0, err
	}

	added := entry.form.BulkAddFromWorkflow(users)

	return f.view(id, entry), added, nil
}

// SelectWorkflow starts resolving workflowID for the form; "" deselects.
func (f *Forms) SelectWorkflow(ctx context.Context, id, workflowID string) (*FormView, error) {
	entry, err := f.touch(id)
	if err != nil {
		return nil, err
	}

	entry.form.SelectWorkflow(ctx, workflowID)

	return f.view(id, entry), nil
}

// SetStepAssignment sets or, with "", clears the assignee of one step.
func (f *Forms) SetStepAssignment(ctx context.Context, id, stepID, userID string) (*FormView, error) {
	entry, err := f.touch(id)
	if err != nil {
		return nil, err
	}

	err = f.directory.Known(ctx, userID)
	if err != nil {
		return nil, err
	}

	entry.form.SetStepAssignment(stepID, userID)

	return f.view(id, entry), nil
}

// Validate runs the assignment rules on the form.
func (f *Forms) Validate(id string) (assignment.Result, error) {
	entry, err := f.touch(id)
	if err != nil {
		return assignment.Result{}, err
	}

	return entry.form.Validate(), nil
}

// Submit waits for any in-flight step fetch, validates the form and hands the
// submission to the task service: an update when the form edits a task, a
// create otherwise. The form is discarded on success.
func (f *Forms) Submit(ctx context.Context, id string, details TaskDetails) (*models.Task, error) {
	entry, err := f.touch(id)
	if err != nil {
		return nil, err
	}

	err = waitForm(ctx, entry.form)
	if err != nil {
		return nil, err
	}

	submission, workflowID, result := entry.form.Submission()
	if !result.IsValid {
		return nil, &AssignmentError{Result: result}
	}

	input := TaskInput{
		Title:       details.Title,
		Description: details.Description,
		ClientID:    details.ClientID,
		DueDate:     details.DueDate,
		Submission:  submission,
	}

	if workflowID != "" {
		input.WorkflowID = &workflowID
	}

	var task *models.Task

	if entry.taskID != "" {
		task, err = f.tasks.Update(ctx, entry.taskID, input)
	} else {
		task, err = f.tasks.Create(ctx, input)
	}

	if err != nil {
		return nil, err
	}

	f.discard(id)
	f.logger.InfoContext(ctx, "Form submitted", "form_id", id, "task_id", task.ID)

	return task, nil
}

// Close discards a form.
func (f *Forms) Close(id string) error {
	if !f.discard(id) {
		return ErrFormNotFound
	}

	return nil
}

// Count returns the number of open forms.
func (f *Forms) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.forms)
}

// Sweep discards every form idle for longer than the idle timeout and returns
// how many were discarded.
func (f *Forms) Sweep() int {
	cutoff := f.now().Add(-f.idleTimeout)

	f.mu.Lock()

	expired := make([]string, 0)

	for id, entry := range f.forms {
		if entry.lastUsed.Before(cutoff) {
			expired = append(expired, id)
		}
	}

	f.mu.Unlock()

	sort.Strings(expired)

	swept := 0

	for _, id := range expired {
		if f.discard(id) {
			swept++
		}
	}

	if swept > 0 {
		f.logger.Info("Swept idle forms", "count", swept)
	}

	return swept
}

// CloseAll discards every open form.
func (f *Forms) CloseAll() {
	f.mu.Lock()
	entries := f.forms
	f.forms = make(map[string]*openForm)
	f.mu.Unlock()

	for _, entry := range entries {
		entry.form.Close()
	}
}

func (f *Forms) touch(id string) (*openForm, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entry, ok := f.forms[id]
	if !ok {
		return nil, ErrFormNotFound
	}

	entry.lastUsed = f.now()

	return entry, nil
}

func (f *Forms) discard(id string) bool {
	f.mu.Lock()
	entry, ok := f.forms[id]
	delete(f.forms, id)
	f.mu.Unlock()

	if !ok {
		return false
	}

	entry.form.Close()

	return true
}

func (f *Forms) view(id string, entry *openForm) *FormView {
	f.mu.Lock()
	lastUsed := entry.lastUsed
	f.mu.Unlock()

	return &FormView{
		ID:       id,
		TaskID:   entry.taskID,
		LastUsed: lastUsed,
		Snapshot: entry.form.Snapshot(),
	}
}

// waitForm blocks until the form's step fetches settle or ctx is done.
func waitForm(ctx context.Context, form *assignment.Form) error {
	done := make(chan struct{})

	go func() {
		form.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

package assignment

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dukex/taskdesk/pkg/models"
)

// Snapshot is a read-only projection of a form.
type Snapshot struct {
	State           State      `json:"state"`
	Resolution      Resolution `json:"resolution"`
	ResolutionError string     `json:"resolution_error,omitempty"`
	AssignedUserIDs []string   `json:"assigned_user_ids"`
	Summary         Summary    `json:"summary"`
	Validation      Result     `json:"validation"`
}

// Form couples the assignment model of one open task form with its workflow
// step resolver. Its methods may be called from several goroutines; the model
// and resolver it owns are never shared with another form.
type Form struct {
	mu       sync.Mutex
	model    *Model
	resolver *Resolver
	existing models.StepAssignmentMap
	closed   bool
}

// FormOption configures a Form.
type FormOption func(*formConfig)

type formConfig struct {
	logger *slog.Logger
}

// WithLogger sets the logger used by the form's resolver.
func WithLogger(logger *slog.Logger) FormOption {
	return func(c *formConfig) {
		c.logger = logger
	}
}

// NewForm returns an empty form resolving steps through lookup.
func NewForm(lookup StepLookup, opts ...FormOption) *Form {
	cfg := formConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	f := &Form{
		model:    NewModel(),
		existing: models.StepAssignmentMap{},
	}
	f.resolver = NewResolver(lookup, cfg.logger, f.applyResolution)

	return f
}

// Hydrate replaces the form's state with the assignment of a persisted task
// and starts resolving its workflow, if any. Existing step assignments take
// precedence over step defaults once the steps arrive.
func (f *Form) Hydrate(ctx context.Context, task *models.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()

	mode := models.AssignmentModeSingle
	if len(task.CollaboratorsInfo) > 0 {
		mode = models.AssignmentModeMultiple
	}

	state := State{
		Mode:            mode,
		Collaborators:   task.CollaboratorsInfo,
		StepAssignments: models.StepAssignmentMap{},
	}
	if task.AssignedTo != nil {
		state.PrimaryAssignee = *task.AssignedTo
	}

	f.model = Restore(state)
	f.existing = task.WorkflowStepAssignments.Clone()
	f.selectWorkflow(ctx, task.SelectedWorkflowID())
}

// SelectWorkflow switches the selected workflow; "" deselects it. Step
// assignments are cleared immediately and rebuilt when the steps arrive.
func (f *Form) SelectWorkflow(ctx context.Context, workflowID string) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.selectWorkflow(ctx, workflowID)
}

func (f *Form) selectWorkflow(ctx context.Context, workflowID string) uint64 {
	f.model.selectWorkflow(workflowID)

	return f.resolver.Select(ctx, workflowID, f.existing)
}

func (f *Form) applyResolution(res Resolution) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed || !f.resolver.IsCurrent(res.Token) {
		return
	}

	if res.Status != ResolverReady && res.Status != ResolverEmpty {
		return
	}

	// Steps assigned while loading outrank existing assignments and defaults.
	assignments := res.Assignments.Clone()
	current := f.model.state.StepAssignments

	for _, step := range res.Steps {
		if userID := current[step.ID]; userID != "" {
			assignments[step.ID] = userID
		}
	}

	f.model.applySteps(res.Steps, assignments)
}

// SetMode sets the assignment mode.
func (f *Form) SetMode(mode models.AssignmentMode) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.model.SetMode(mode)
}

// SetPrimaryAssignee sets or, with "", clears the primary assignee.
func (f *Form) SetPrimaryAssignee(userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.model.SetPrimaryAssignee(userID)
}

// AddCollaborator adds a collaborator and reports whether it was added.
func (f *Form) AddCollaborator(user models.Collaborator) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.model.AddCollaborator(user)
}

// RemoveCollaborator removes a collaborator.
func (f *Form) RemoveCollaborator(userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.model.RemoveCollaborator(userID)
}

// ClearCollaborators removes every collaborator.
func (f *Form) ClearCollaborators() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.model.ClearCollaborators()
}

// SetStepAssignment sets or clears the assignee of a step.
func (f *Form) SetStepAssignment(stepID, userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.model.SetStepAssignment(stepID, userID)
}

// StepAssigneeIDs returns the distinct users assigned to workflow steps, in
// step order.
func (f *Form) StepAssigneeIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	seen := make(map[string]struct{})
	ids := make([]string, 0)

	for _, stepID := range f.model.resolvedStepIDs() {
		userID := f.model.state.StepAssignments[stepID]
		if userID == "" {
			continue
		}

		if _, ok := seen[userID]; ok {
			continue
		}

		seen[userID] = struct{}{}
		ids = append(ids, userID)
	}

	return ids
}

// BulkAddFromWorkflow adds users as collaborators and returns how many were added.
func (f *Form) BulkAddFromWorkflow(users []models.Collaborator) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.model.BulkAddFromWorkflow(users)
}

// Validate runs the assignment rules against the current state.
func (f *Form) Validate() Result {
	f.mu.Lock()
	defer f.mu.Unlock()

	return Validate(f.model.State(), f.resolver.Current())
}

// Submission validates the form and assembles the payload for the task
// service, together with the selected workflow the payload belongs to. Only
// assignments of the resolved workflow steps are included.
func (f *Form) Submission() (models.Submission, string, Result) {
	f.mu.Lock()
	defer f.mu.Unlock()

	state := f.model.State()
	resolution := f.resolver.Current()

	result := Validate(state, resolution)

	return BuildSubmission(state, resolution), state.SelectedWorkflowID, result
}

// Snapshot returns a read-only projection of the form.
func (f *Form) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	state := f.model.State()
	resolution := f.resolver.Current()

	return Snapshot{
		State:           state,
		Resolution:      resolution,
		ResolutionError: resolution.Error(),
		AssignedUserIDs: f.model.AllAssignedUserIDs(),
		Summary:         f.model.Summary(),
		Validation:      Validate(state, resolution),
	}
}

// Reset discards the assignment, returning the form to its initial state.
func (f *Form) Reset(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.model = NewModel()
	f.existing = models.StepAssignmentMap{}
	f.resolver.Select(ctx, "", nil)
}

// Wait blocks until every in-flight step fetch has settled.
func (f *Form) Wait() {
	f.resolver.Wait()
}

// Close discards the form. In-flight fetches are cancelled and their results
// dropped.
func (f *Form) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()

	f.resolver.Close()
}

// BuildSubmission assembles the submission payload from a state. Step
// assignments are limited to the steps of a ready resolution.
func BuildSubmission(state State, resolution Resolution) models.Submission {
	submission := models.Submission{
		Collaborators:           state.CollaboratorIDs(),
		WorkflowStepAssignments: models.StepAssignmentMap{},
	}

	if state.PrimaryAssignee != "" {
		primary := state.PrimaryAssignee
		submission.AssignedTo = &primary
	}

	if resolution.Status != ResolverReady || state.SelectedWorkflowID == "" {
		return submission
	}

	for _, step := range resolution.Steps {
		if userID := state.StepAssignments[step.ID]; userID != "" {
			submission.WorkflowStepAssignments[step.ID] = userID
		}
	}

	return submission
}

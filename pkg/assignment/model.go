// Package assignment holds the task assignment state of an open task form:
// who is the primary assignee, who collaborates, who owns each workflow step,
// and how that state is resolved, validated and turned into a submission.
package assignment

import (
	"slices"

	"github.com/dukex/taskdesk/pkg/models"
)

// State is the aggregate root of a task's assignment.
type State struct {
	Mode               models.AssignmentMode    `json:"mode"`
	PrimaryAssignee    string                   `json:"primary_assignee,omitempty"`
	Collaborators      []models.Collaborator    `json:"collaborators"`
	StepAssignments    models.StepAssignmentMap `json:"step_assignments"`
	SelectedWorkflowID string                   `json:"selected_workflow_id,omitempty"`
}

// CollaboratorIDs returns the collaborator ids in insertion order.
func (s State) CollaboratorIDs() []string {
	ids := make([]string, 0, len(s.Collaborators))
	for _, c := range s.Collaborators {
		ids = append(ids, c.ID)
	}

	return ids
}

// HasCollaborator reports whether userID is in the collaborator set.
func (s State) HasCollaborator(userID string) bool {
	return slices.ContainsFunc(s.Collaborators, func(c models.Collaborator) bool {
		return c.ID == userID
	})
}

// Summary is a read-only projection of a model's assignment channels.
type Summary struct {
	TotalAssigned     int  `json:"total_assigned"`
	MultipleChannels  bool `json:"multiple_channels"`
	PrimaryCount      int  `json:"primary_count"`
	CollaboratorCount int  `json:"collaborator_count"`
	StepCount         int  `json:"step_count"`
}

// Model is the single source of truth for who is assigned to a task being
// created or edited. A Model is owned by exactly one form and is not safe for
// concurrent use.
type Model struct {
	state     State
	stepOrder []string
}

// NewModel returns an empty model in single mode.
func NewModel() *Model {
	return &Model{
		state: State{
			Mode:            models.AssignmentModeSingle,
			Collaborators:   []models.Collaborator{},
			StepAssignments: models.StepAssignmentMap{},
		},
	}
}

// Restore builds a model from a state assembled elsewhere, such as a persisted
// task. Duplicate collaborators are collapsed; no other normalisation is
// applied, so the validator can still report a primary assignee that is also
// listed as a collaborator.
func Restore(state State) *Model {
	m := NewModel()

	if state.Mode.Valid() {
		m.state.Mode = state.Mode
	}

	m.state.PrimaryAssignee = state.PrimaryAssignee
	m.state.SelectedWorkflowID = state.SelectedWorkflowID
	m.state.StepAssignments = state.StepAssignments.Clone()

	for _, c := range state.Collaborators {
		if !m.state.HasCollaborator(c.ID) {
			m.state.Collaborators = append(m.state.Collaborators, c)
		}
	}

	return m
}

// State returns a deep copy of the current state.
func (m *Model) State() State {
	return State{
		Mode:               m.state.Mode,
		PrimaryAssignee:    m.state.PrimaryAssignee,
		Collaborators:      slices.Clone(m.state.Collaborators),
		StepAssignments:    m.state.StepAssignments.Clone(),
		SelectedWorkflowID: m.state.SelectedWorkflowID,
	}
}

// Mode returns the assignment mode.
func (m *Model) Mode() models.AssignmentMode {
	return m.state.Mode
}

// PrimaryAssignee returns the primary assignee id, or "" when unset.
func (m *Model) PrimaryAssignee() string {
	return m.state.PrimaryAssignee
}

// Collaborators returns a copy of the collaborator set in insertion order.
func (m *Model) Collaborators() []models.Collaborator {
	return slices.Clone(m.state.Collaborators)
}

// StepAssignments returns a copy of the per-step assignee map.
func (m *Model) StepAssignments() models.StepAssignmentMap {
	return m.state.StepAssignments.Clone()
}

// SelectedWorkflowID returns the selected workflow, or "".
func (m *Model) SelectedWorkflowID() string {
	return m.state.SelectedWorkflowID
}

// SetMode sets the assignment mode. Switching to single mode drops every
// collaborator.
func (m *Model) SetMode(mode models.AssignmentMode) {
	m.state.Mode = mode
	if mode == models.AssignmentModeSingle {
		m.ClearCollaborators()
	}
}

// SetPrimaryAssignee sets the primary assignee; "" clears it. A user promoted
// to primary is removed from the collaborators.
func (m *Model) SetPrimaryAssignee(userID string) {
	m.state.PrimaryAssignee = userID
	if userID != "" {
		m.RemoveCollaborator(userID)
	}
}

// AddCollaborator appends user unless it is the primary assignee, is already
// a collaborator, or the model is in single mode. It reports whether the
// collaborator set changed.
func (m *Model) AddCollaborator(user models.Collaborator) bool {
	if m.state.Mode == models.AssignmentModeSingle {
		return false
	}

	if user.ID == "" || user.ID == m.state.PrimaryAssignee || m.state.HasCollaborator(user.ID) {
		return false
	}

	m.state.Collaborators = append(m.state.Collaborators, user)

	return true
}

// RemoveCollaborator removes userID from the collaborators if present.
func (m *Model) RemoveCollaborator(userID string) {
	m.state.Collaborators = slices.DeleteFunc(m.state.Collaborators, func(c models.Collaborator) bool {
		return c.ID == userID
	})
}

// ClearCollaborators empties the collaborator set.
func (m *Model) ClearCollaborators() {
	m.state.Collaborators = []models.Collaborator{}
}

// SetStepAssignment sets or, with "", clears the assignee of one step. The
// step is not checked against the selected workflow here; a step list may
// still be loading when the user acts on a previously visible step.
func (m *Model) SetStepAssignment(stepID, userID string) {
	m.state.StepAssignments[stepID] = userID
}

// BulkAddFromWorkflow adds each user as a collaborator, in order, with the
// same rules as AddCollaborator. It returns the number of users added.
func (m *Model) BulkAddFromWorkflow(users []models.Collaborator) int {
	added := 0

	for _, user := range users {
		if m.AddCollaborator(user) {
			added++
		}
	}

	return added
}

// AllAssignedUserIDs returns every assigned user once: the primary assignee,
// then collaborators in insertion order, then step assignees in step order.
// Only assignments of resolved workflow steps count.
func (m *Model) AllAssignedUserIDs() []string {
	seen := make(map[string]struct{})
	ids := make([]string, 0)

	add := func(id string) {
		if id == "" {
			return
		}

		if _, ok := seen[id]; ok {
			return
		}

		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	add(m.state.PrimaryAssignee)

	for _, c := range m.state.Collaborators {
		add(c.ID)
	}

	for _, stepID := range m.resolvedStepIDs() {
		add(m.state.StepAssignments[stepID])
	}

	return ids
}

// Summary returns the per-channel counts of the current assignment. Step
// assignments count only for resolved workflow steps.
func (m *Model) Summary() Summary {
	summary := Summary{
		TotalAssigned:     len(m.AllAssignedUserIDs()),
		CollaboratorCount: len(m.state.Collaborators),
	}

	for _, stepID := range m.resolvedStepIDs() {
		if m.state.StepAssignments[stepID] != "" {
			summary.StepCount++
		}
	}

	if m.state.PrimaryAssignee != "" {
		summary.PrimaryCount = 1
	}

	channels := 0

	for _, n := range []int{summary.PrimaryCount, summary.CollaboratorCount, summary.StepCount} {
		if n > 0 {
			channels++
		}
	}

	summary.MultipleChannels = channels > 1

	return summary
}

// selectWorkflow records the selected workflow and drops every step
// assignment, since step ids belong to a single workflow.
func (m *Model) selectWorkflow(workflowID string) {
	m.state.SelectedWorkflowID = workflowID
	m.state.StepAssignments = models.StepAssignmentMap{}
	m.stepOrder = nil
}

// applySteps replaces the step map with the resolved initial assignments.
func (m *Model) applySteps(steps []*models.WorkflowStep, assignments models.StepAssignmentMap) {
	m.stepOrder = make([]string, 0, len(steps))
	for _, step := range steps {
		m.stepOrder = append(m.stepOrder, step.ID)
	}

	m.state.StepAssignments = assignments.Clone()
}

// resolvedStepIDs lists the resolved workflow steps in step order. Keys of
// the step map that are not resolved steps are left out.
func (m *Model) resolvedStepIDs() []string {
	return slices.Clone(m.stepOrder)
}

// AssignedUserIDs returns the users assigned in state, with the assignees of
// steps listed in the order of steps.
func AssignedUserIDs(state State, steps []*models.WorkflowStep) []string {
	m := Restore(state)
	m.applySteps(steps, state.StepAssignments)

	return m.AllAssignedUserIDs()
}

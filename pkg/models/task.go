package models

import "time"

// Task is a unit of office work, as persisted by the backend.
type Task struct {
	ID                      string            `json:"id"`
	Title                   string            `json:"title"                     validate:"required,min=1"`
	Description             string            `json:"description"`
	ClientID                *string           `json:"client_id,omitempty"`
	DueDate                 *time.Time        `json:"due_date,omitempty"`
	WorkflowID              *string           `json:"workflow_id,omitempty"`
	AssignedTo              *string           `json:"assigned_to,omitempty"`
	CollaboratorsInfo       []Collaborator    `json:"collaborators_info"`
	WorkflowStepAssignments StepAssignmentMap `json:"workflow_step_assignments"`
	CreatedAt               time.Time         `json:"created_at"`
	UpdatedAt               time.Time         `json:"updated_at"`
}

// CollaboratorIDs returns the collaborator ids in stored order.
func (t *Task) CollaboratorIDs() []string {
	ids := make([]string, 0, len(t.CollaboratorsInfo))
	for _, c := range t.CollaboratorsInfo {
		ids = append(ids, c.ID)
	}

	return ids
}

// SelectedWorkflowID returns the workflow id or "".
func (t *Task) SelectedWorkflowID() string {
	if t.WorkflowID == nil {
		return ""
	}

	return *t.WorkflowID
}

// Package models defines the domain models shared by the task assignment core,
// the services and the persistence layers.
package models

import (
	"sort"
	"time"
)

// Workflow is a multi-stage task template. Steps are kept in execution order.
type Workflow struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"        validate:"required,min=3"`
	Description string          `json:"description"`
	Steps       []*WorkflowStep `json:"steps"       validate:"dive"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// WorkflowStep is one ordered, independently assignable stage of a workflow.
type WorkflowStep struct {
	ID               string  `json:"id"`
	Order            int     `json:"order"                      validate:"min=1"`
	Name             string  `json:"name"                       validate:"required"`
	Description      *string `json:"description,omitempty"`
	RequiresApproval bool    `json:"requires_approval"`
	ApproverRole     *string `json:"approver_role,omitempty"`
	DefaultAssignee  *string `json:"default_assignee,omitempty"`
}

// DefaultAssigneeID returns the template default assignee or "".
func (s *WorkflowStep) DefaultAssigneeID() string {
	if s.DefaultAssignee == nil {
		return ""
	}

	return *s.DefaultAssignee
}

// SortSteps orders steps by ascending Order, keeping the input order for ties.
func SortSteps(steps []*WorkflowStep) {
	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].Order < steps[j].Order
	})
}

// Step returns the step with the given id, or nil.
func (w *Workflow) Step(stepID string) *WorkflowStep {
	for _, step := range w.Steps {
		if step.ID == stepID {
			return step
		}
	}

	return nil
}

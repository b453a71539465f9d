// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"time"

	"github.com/dukex/taskdesk/pkg/models"
)

// StrPtr returns a pointer to s.
func StrPtr(s string) *string {
	return &s
}

// CreateTestStep creates a WorkflowStep named after its id.
func CreateTestStep(id string, order int, overrides ...func(*models.WorkflowStep)) *models.WorkflowStep {
	step := &models.WorkflowStep{
		ID:    id,
		Order: order,
		Name:  "Step " + id,
	}

	for _, override := range overrides {
		override(step)
	}

	return step
}

// WithDefaultAssignee sets the template default assignee of a step.
func WithDefaultAssignee(userID string) func(*models.WorkflowStep) {
	return func(s *models.WorkflowStep) {
		s.DefaultAssignee = StrPtr(userID)
	}
}

// WithApproval marks a step as requiring approval by role.
func WithApproval(role string) func(*models.WorkflowStep) {
	return func(s *models.WorkflowStep) {
		s.RequiresApproval = true
		s.ApproverRole = StrPtr(role)
	}
}

// CreateTestWorkflow creates a Workflow with a "prepare" and a "review" step
// that can be overridden.
func CreateTestWorkflow(overrides ...func(*models.Workflow)) *models.Workflow {
	workflow := &models.Workflow{
		Name:        "Test Workflow",
		Description: "Test workflow description",
		Steps: []*models.WorkflowStep{
			CreateTestStep("prepare", 1),
			CreateTestStep("review", 2),
		},
	}

	for _, override := range overrides {
		override(workflow)
	}

	return workflow
}

// WithWorkflowName sets the workflow name.
func WithWorkflowName(name string) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Name = name
	}
}

// WithSteps replaces the workflow steps.
func WithSteps(steps ...*models.WorkflowStep) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Steps = steps
	}
}

// CreateTestUser creates a directory user.
func CreateTestUser(id, username string) *models.UserRef {
	return &models.UserRef{ID: id, Username: username}
}

// CreateTestTask creates a Task with default values that can be overridden.
func CreateTestTask(overrides ...func(*models.Task)) *models.Task {
	task := &models.Task{
		Title:                   "Test Task",
		CollaboratorsInfo:       []models.Collaborator{},
		WorkflowStepAssignments: models.StepAssignmentMap{},
	}

	for _, override := range overrides {
		override(task)
	}

	return task
}

// WithTitle sets the task title.
func WithTitle(title string) func(*models.Task) {
	return func(t *models.Task) {
		t.Title = title
	}
}

// WithAssignee sets the primary assignee.
func WithAssignee(userID string) func(*models.Task) {
	return func(t *models.Task) {
		t.AssignedTo = StrPtr(userID)
	}
}

// WithCollaborators sets the collaborators, named after their ids.
func WithCollaborators(userIDs ...string) func(*models.Task) {
	return func(t *models.Task) {
		t.CollaboratorsInfo = make([]models.Collaborator, 0, len(userIDs))
		for _, id := range userIDs {
			t.CollaboratorsInfo = append(t.CollaboratorsInfo, models.Collaborator{ID: id, Username: id})
		}
	}
}

// WithWorkflow selects a workflow with the given step assignments.
func WithWorkflow(workflowID string, assignments models.StepAssignmentMap) func(*models.Task) {
	return func(t *models.Task) {
		t.WorkflowID = StrPtr(workflowID)
		t.WorkflowStepAssignments = assignments
	}
}

// WithDueDate sets the due date.
func WithDueDate(due time.Time) func(*models.Task) {
	return func(t *models.Task) {
		t.DueDate = &due
	}
}

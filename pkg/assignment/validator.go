package assignment

import (
	"fmt"

	"github.com/dukex/taskdesk/pkg/models"
)

const (
	// MsgNoAssignee is reported when nobody is assigned through any channel.
	MsgNoAssignee = "At least one user must be assigned to the task."
	// MsgPrimaryIsCollaborator is reported when the primary assignee is also
	// listed as a collaborator.
	MsgPrimaryIsCollaborator = "The primary assignee cannot also be a collaborator."
)

// Result is the outcome of validating an assignment.
type Result struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors"`
}

// Validate evaluates state against the assignment rules, in a fixed order,
// and accumulates every failure:
//
//  1. at least one user is assigned through some channel, counting step
//     assignees only for the steps of a ready resolution;
//  2. the primary assignee is not a collaborator;
//  3. when the workflow steps are resolved, every step has an assignee.
func Validate(state State, resolution Resolution) Result {
	errs := make([]string, 0)

	if state.PrimaryAssignee == "" && len(state.Collaborators) == 0 && resolvedAssignedCount(state, resolution) == 0 {
		errs = append(errs, MsgNoAssignee)
	}

	if state.PrimaryAssignee != "" && state.HasCollaborator(state.PrimaryAssignee) {
		errs = append(errs, MsgPrimaryIsCollaborator)
	}

	if state.SelectedWorkflowID != "" && resolution.Status == ResolverReady && len(resolution.Steps) > 0 {
		if unassigned := UnassignedSteps(resolution.Steps, state.StepAssignments); len(unassigned) > 0 {
			errs = append(errs, unassignedStepsMessage(len(unassigned)))
		}
	}

	return Result{
		IsValid: len(errs) == 0,
		Errors:  errs,
	}
}

// resolvedAssignedCount counts the assigned steps that a submission of state
// would carry.
func resolvedAssignedCount(state State, resolution Resolution) int {
	return len(BuildSubmission(state, resolution).WorkflowStepAssignments)
}

// UnassignedSteps returns the ids of the steps with no assignee, in step order.
func UnassignedSteps(steps []*models.WorkflowStep, assignments models.StepAssignmentMap) []string {
	ids := make([]string, 0)

	for _, step := range steps {
		if assignments[step.ID] == "" {
			ids = append(ids, step.ID)
		}
	}

	return ids
}

func unassignedStepsMessage(n int) string {
	if n == 1 {
		return "1 workflow step has no assigned user."
	}

	return fmt.Sprintf("%d workflow steps have no assigned user.", n)
}

package models

import "sort"

// AssignmentMode governs whether collaborators are permitted on a task.
type AssignmentMode string

const (
	AssignmentModeSingle   AssignmentMode = "single"
	AssignmentModeMultiple AssignmentMode = "multiple"
)

// Valid reports whether m is a known mode.
func (m AssignmentMode) Valid() bool {
	return m == AssignmentModeSingle || m == AssignmentModeMultiple
}

// StepAssignmentMap maps a workflow step id to a user id. An empty user id
// means the step is unassigned.
type StepAssignmentMap map[string]string

// Clone returns a copy of the map. Cloning nil yields an empty map.
func (m StepAssignmentMap) Clone() StepAssignmentMap {
	out := make(StepAssignmentMap, len(m))
	for k, v := range m {
		out[k] = v
	}

	return out
}

// AssignedCount returns the number of entries holding a user id.
func (m StepAssignmentMap) AssignedCount() int {
	n := 0

	for _, userID := range m {
		if userID != "" {
			n++
		}
	}

	return n
}

// Keys returns the step ids in lexical order.
func (m StepAssignmentMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// Submission is the assignment payload handed to task creation or update.
type Submission struct {
	AssignedTo              *string           `json:"assigned_to"`
	Collaborators           []string          `json:"collaborators"`
	WorkflowStepAssignments StepAssignmentMap `json:"workflow_step_assignments"`
}

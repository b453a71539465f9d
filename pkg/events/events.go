// Package events defines the task assignment notifications published on the event bus.
package events

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic carries every taskdesk event.
const Topic = "taskdesk.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	TaskAssignedEvent EventType = "task.assigned"
	TaskDeletedEvent  EventType = "task.deleted"
)

var (
	ErrMissingTaskID   = errors.New("task_id is required")
	ErrMissingAssignee = errors.New("at least one assignee is required")
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	TaskID    string         `json:"task_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func newBaseEvent(eventType EventType, taskID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		TaskID:    taskID,
	}
}

// TaskAssigned is published when a task is created or its assignment changes.
// UserIDs is the de-duplicated union of every assignment channel, primary first.
type TaskAssigned struct {
	BaseEvent

	Title                   string            `json:"title"`
	WorkflowID              string            `json:"workflow_id,omitempty"`
	AssignedTo              string            `json:"assigned_to,omitempty"`
	Collaborators           []string          `json:"collaborators"`
	WorkflowStepAssignments map[string]string `json:"workflow_step_assignments"`
	UserIDs                 []string          `json:"user_ids"`
	Created                 bool              `json:"created"`
}

func (t TaskAssigned) GetType() EventType {
	return TaskAssignedEvent
}

// NewTaskAssigned creates a task.assigned event.
func NewTaskAssigned(taskID, title string, userIDs []string) *TaskAssigned {
	return &TaskAssigned{
		BaseEvent:               newBaseEvent(TaskAssignedEvent, taskID),
		Title:                   title,
		Collaborators:           []string{},
		WorkflowStepAssignments: map[string]string{},
		UserIDs:                 userIDs,
	}
}

// Validate checks the event carries a task and at least one user.
func (t *TaskAssigned) Validate() error {
	if t.TaskID == "" {
		return ErrMissingTaskID
	}

	if len(t.UserIDs) == 0 {
		return ErrMissingAssignee
	}

	return nil
}

// TaskDeleted is published when a task is removed.
type TaskDeleted struct {
	BaseEvent
}

func (t TaskDeleted) GetType() EventType {
	return TaskDeletedEvent
}

// NewTaskDeleted creates a task.deleted event.
func NewTaskDeleted(taskID string) *TaskDeleted {
	return &TaskDeleted{BaseEvent: newBaseEvent(TaskDeletedEvent, taskID)}
}

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/taskdesk/pkg/events"
)

// AssignmentNotifier is the notification sink of task assignment events. It
// records one structured log line per notified user.
type AssignmentNotifier struct {
	logger *slog.Logger
}

func NewAssignmentNotifier(logger *slog.Logger) *AssignmentNotifier {
	return &AssignmentNotifier{logger: logger}
}

func (n *AssignmentNotifier) TaskAssigned(ctx context.Context, event any) error {
	assigned, ok := event.(*events.TaskAssigned)
	if !ok {
		return fmt.Errorf("unexpected event %T for %s", event, events.TaskAssignedEvent)
	}

	err := assigned.Validate()
	if err != nil {
		return err
	}

	for _, userID := range assigned.UserIDs {
		n.logger.InfoContext(ctx, "Notifying user of task assignment",
			"user_id", userID,
			"task_id", assigned.TaskID,
			"title", assigned.Title,
			"created", assigned.Created,
		)
	}

	return nil
}

func (n *AssignmentNotifier) TaskDeleted(ctx context.Context, event any) error {
	deleted, ok := event.(*events.TaskDeleted)
	if !ok {
		return fmt.Errorf("unexpected event %T for %s", event, events.TaskDeletedEvent)
	}

	n.logger.InfoContext(ctx, "Task deleted", "task_id", deleted.TaskID)

	return nil
}

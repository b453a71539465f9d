// Package services implements the taskdesk business operations on top of persistence.
package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dukex/taskdesk/pkg/assignment"
	"github.com/dukex/taskdesk/pkg/persistence"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest       = errors.New("invalid request")
	ErrInvalidSortField     = errors.New("invalid sort field")
	ErrInvalidSortOrder     = errors.New("invalid sort order")
	ErrWorkflowNil          = errors.New("workflow cannot be nil")
	ErrWorkflowNameRequired = errors.New("workflow name is required")
	ErrInvalidStepOrder     = errors.New("invalid workflow step order")
	ErrDuplicateStepID      = errors.New("duplicate workflow step id")
	ErrStepNameRequired     = errors.New("workflow step name is required")
	ErrInvalidMode          = errors.New("invalid assignment mode")
	ErrUnknownStep          = errors.New("step does not belong to the selected workflow")
	ErrUnknownUser          = errors.New("unknown user")
	ErrTaskTitleRequired    = errors.New("task title is required")

	// Assignment validation failures (422 Unprocessable Entity).
	ErrAssignmentInvalid = errors.New("assignment is invalid")

	// Not found (404).
	ErrWorkflowNotFound = persistence.ErrWorkflowNotFound
	ErrTaskNotFound     = persistence.ErrTaskNotFound
	ErrUserNotFound     = persistence.ErrUserNotFound
	ErrFormNotFound     = errors.New("form not found")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// AssignmentError carries every failed assignment rule of a rejected submission.
type AssignmentError struct {
	Result assignment.Result
}

func (e *AssignmentError) Error() string {
	return fmt.Sprintf("%v: %s", ErrAssignmentInvalid, strings.Join(e.Result.Errors, " "))
}

func (e *AssignmentError) Unwrap() error {
	return ErrAssignmentInvalid
}

// AsAssignmentError extracts the assignment failures from err.
func AsAssignmentError(err error) (*AssignmentError, bool) {
	var assignmentErr *AssignmentError
	if errors.As(err, &assignmentErr) {
		return assignmentErr, true
	}

	return nil, false
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidSortField) ||
		errors.Is(err, ErrInvalidSortOrder) ||
		errors.Is(err, ErrWorkflowNil) ||
		errors.Is(err, ErrWorkflowNameRequired) ||
		errors.Is(err, ErrInvalidStepOrder) ||
		errors.Is(err, ErrDuplicateStepID) ||
		errors.Is(err, ErrStepNameRequired) ||
		errors.Is(err, ErrInvalidMode) ||
		errors.Is(err, ErrUnknownStep) ||
		errors.Is(err, ErrUnknownUser) ||
		errors.Is(err, ErrTaskTitleRequired)
}

// IsNotFoundError checks if an error should return HTTP 404.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound) ||
		errors.Is(err, ErrTaskNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrFormNotFound)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

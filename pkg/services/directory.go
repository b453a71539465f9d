package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dukex/taskdesk/pkg/models"
	"github.com/dukex/taskdesk/pkg/persistence"
)

// Directory is the office user directory.
type Directory struct {
	persistence persistence.Persistence
}

// NewDirectory creates a new user directory service.
func NewDirectory(persistence persistence.Persistence) *Directory {
	return &Directory{persistence: persistence}
}

// List returns every user.
func (d *Directory) List(ctx context.Context) ([]*models.UserRef, error) {
	users, err := d.persistence.UserRepository().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return users, nil
}

// Get returns one user.
func (d *Directory) Get(ctx context.Context, userID string) (*models.UserRef, error) {
	user, err := d.persistence.UserRepository().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user %s: %w", userID, err)
	}

	if user == nil {
		return nil, ErrUserNotFound
	}

	return user, nil
}

// Create stores a new user.
func (d *Directory) Create(ctx context.Context, user *models.UserRef) (*models.UserRef, error) {
	user.Username = strings.TrimSpace(user.Username)
	if user.Username == "" {
		return nil, NewValidationError("CreateUser", "USERNAME_REQUIRED", "username is required", ErrInvalidRequest)
	}

	if user.ID != "" {
		existing, err := d.persistence.UserRepository().GetByID(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check user %s: %w", user.ID, err)
		}

		if existing != nil {
			return nil, NewValidationError("CreateUser", "USER_EXISTS",
				fmt.Sprintf("user %s already exists", user.ID), ErrInvalidRequest)
		}
	}

	err := d.persistence.UserRepository().Save(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Resolve maps user ids to directory entries, keeping the first occurrence of
// each id. Any unknown id fails the whole call with ErrUnknownUser.
func (d *Directory) Resolve(ctx context.Context, userIDs []string) ([]models.UserRef, error) {
	users := make([]models.UserRef, 0, len(userIDs))
	seen := make(map[string]struct{}, len(userIDs))

	for _, userID := range userIDs {
		if _, ok := seen[userID]; ok {
			continue
		}

		seen[userID] = struct{}{}

		user, err := d.lookup(ctx, "Resolve", userID)
		if err != nil {
			return nil, err
		}

		users = append(users, *user)
	}

	return users, nil
}

// lookup returns the user or an ErrUnknownUser validation error.
func (d *Directory) lookup(ctx context.Context, op, userID string) (*models.UserRef, error) {
	user, err := d.persistence.UserRepository().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user %s: %w", userID, err)
	}

	if user == nil {
		return nil, NewValidationError(op, "UNKNOWN_USER", fmt.Sprintf("user %s does not exist", userID), ErrUnknownUser)
	}

	return user, nil
}

// Known checks that userID exists. An empty id is always accepted.
func (d *Directory) Known(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}

	_, err := d.lookup(ctx, "Known", userID)

	return err
}

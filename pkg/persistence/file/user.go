package file

import (
	"context"
	"fmt"
	"sort"

	"github.com/dukex/taskdesk/pkg/models"
	"github.com/google/uuid"
)

// UserRepository handles the user directory on the file system.
type UserRepository struct {
	documents *collection
}

// NewUserRepository creates a new user repository.
func NewUserRepository(root string) *UserRepository {
	return &UserRepository{documents: newCollection(root, "users")}
}

// GetAll returns every user ordered by username.
func (ur *UserRepository) GetAll(_ context.Context) ([]*models.UserRef, error) {
	users, err := all[models.UserRef](ur.documents)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	sort.SliceStable(users, func(i, j int) bool {
		return users[i].Username < users[j].Username
	})

	return users, nil
}

// GetByID retrieves a user by its ID.
func (ur *UserRepository) GetByID(_ context.Context, userID string) (*models.UserRef, error) {
	var user models.UserRef

	found, err := ur.documents.read(userID, &user)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user %s: %w", userID, err)
	}

	if !found {
		return nil, nil
	}

	return &user, nil
}

// Save stores a user, generating an ID when missing.
func (ur *UserRepository) Save(_ context.Context, user *models.UserRef) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	err := ur.documents.write(user.ID, user)
	if err != nil {
		return fmt.Errorf("failed to save user %s: %w", user.ID, err)
	}

	return nil
}

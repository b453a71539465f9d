package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/taskdesk/pkg/models"
	"github.com/google/uuid"
)

// UserRepository handles the user directory in the database.
type UserRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *sql.DB, logger *slog.Logger) *UserRepository {
	return &UserRepository{db: db, logger: logger}
}

// GetAll returns every user ordered by username.
func (r *UserRepository) GetAll(ctx context.Context) ([]*models.UserRef, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, username, first_name, last_name, email FROM users ORDER BY username, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	defer closeRows(r.logger, rows)

	users := make([]*models.UserRef, 0)

	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}

		users = append(users, user)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// GetByID returns a user, or nil when it does not exist.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.UserRef, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, username, first_name, last_name, email FROM users WHERE id = $1`, id)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	return user, nil
}

// Save upserts a user, generating an ID when missing.
func (r *UserRepository) Save(ctx context.Context, user *models.UserRef) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	query := `
		INSERT INTO users (id, username, first_name, last_name, email)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			email = EXCLUDED.email
	`

	_, err := r.db.ExecContext(ctx, query, user.ID, user.Username, user.FirstName, user.LastName, user.Email)
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}

	return nil
}

func scanUser(row scanner) (*models.UserRef, error) {
	var (
		user      models.UserRef
		firstName sql.NullString
		lastName  sql.NullString
		email     sql.NullString
	)

	err := row.Scan(&user.ID, &user.Username, &firstName, &lastName, &email)
	if err != nil {
		return nil, err
	}

	user.FirstName = nullableString(firstName)
	user.LastName = nullableString(lastName)
	user.Email = nullableString(email)

	return &user, nil
}

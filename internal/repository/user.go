package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/llamacoach/llamacoach/internal/model"
)

// Common errors for user repository operations.
var (
	ErrUserNotFound  = errors.New("user not found")
	ErrEmailTaken    = errors.New("email already exists")
	ErrUsernameTaken = errors.New("username already exists")
	ErrNothingToSet  = errors.New("no fields to update")
)

// Unique constraint names from the users migration.
const (
	emailConstraint    = "users_email_key"
	usernameConstraint = "users_username_key"
)

const userColumns = `id, email, username, name, password_hash, selected_model, created_at, updated_at`

// CreateUser inserts a new user, pre-checking email then username so the
// first conflict wins. The unique indexes backstop concurrent signups that
// pass both pre-checks; a violation is mapped back by constraint name.
func (r *Repository) CreateUser(ctx context.Context, user *model.User) error {
	var emailExists, usernameExists bool
	err := r.pool.QueryRow(ctx,
		`SELECT
			EXISTS(SELECT 1 FROM users WHERE email = $1),
			EXISTS(SELECT 1 FROM users WHERE username = $2)`,
		user.Email, user.Username,
	).Scan(&emailExists, &usernameExists)
	if err != nil {
		return fmt.Errorf("failed to check uniqueness: %w", err)
	}
	if emailExists {
		return ErrEmailTaken
	}
	if usernameExists {
		return ErrUsernameTaken
	}

	query := `
		INSERT INTO users (id, email, username, name, password_hash, selected_model, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.pool.Exec(ctx, query,
		user.ID,
		user.Email,
		user.Username,
		user.Name,
		user.PasswordHash,
		user.SelectedModel,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err, emailConstraint) {
			return ErrEmailTaken
		}
		if isUniqueViolation(err, usernameConstraint) {
			return ErrUsernameTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUserByID retrieves a user by their ID.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}

	return user, nil
}

// GetUserByEmail retrieves a user by their email address.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

// UpdateUserProfile updates the mutable profile fields (username, name).
// Nil fields are left untouched; updated_at is always refreshed on success.
// A username change re-checks uniqueness against all other users.
func (r *Repository) UpdateUserProfile(ctx context.Context, id string, username, name *string) (*model.User, error) {
	if username == nil && name == nil {
		return nil, ErrNothingToSet
	}

	if username != nil {
		var taken bool
		err := r.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1 AND id <> $2)`,
			*username, id,
		).Scan(&taken)
		if err != nil {
			return nil, fmt.Errorf("failed to check username: %w", err)
		}
		if taken {
			return nil, ErrUsernameTaken
		}
	}

	query := `
		UPDATE users
		SET username = COALESCE($2, username),
		    name = COALESCE($3, name),
		    updated_at = $4
		WHERE id = $1
		RETURNING ` + userColumns

	user, err := scanUser(r.pool.QueryRow(ctx, query, id, username, name, time.Now().UTC()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		if isUniqueViolation(err, usernameConstraint) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return user, nil
}

// SetSelectedModel persists the user's model choice. Idempotent.
func (r *Repository) SetSelectedModel(ctx context.Context, id, modelName string) error {
	query := `
		UPDATE users
		SET selected_model = $2, updated_at = $3
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id, modelName, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to set selected model: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// scanUser scans a user row in userColumns order.
func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.Name,
		&user.PasswordHash,
		&user.SelectedModel,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

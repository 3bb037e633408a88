// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/llamacoach/llamacoach/internal/auth"
	"github.com/llamacoach/llamacoach/internal/model"
	"github.com/llamacoach/llamacoach/internal/repository"
)

// Auth service errors.
var (
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrMissingField       = errors.New("missing required field")
	ErrPasswordTooShort   = errors.New("password too short")
	ErrEmailTaken         = errors.New("email already taken")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrNoFieldsToUpdate   = errors.New("no fields to update")
)

const minPasswordLength = 8

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// UserStore is the credential-store surface the auth service needs.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	UpdateUserProfile(ctx context.Context, id string, username, name *string) (*model.User, error)
	SetSelectedModel(ctx context.Context, id, modelName string) error
}

// SessionCache invalidates cached session users after mutations.
type SessionCache interface {
	InvalidateUser(ctx context.Context, userID string) error
}

// AuthService handles signup, login and profile updates.
type AuthService struct {
	users  UserStore
	cache  SessionCache
	tokens *auth.TokenService
}

// NewAuthService creates a new AuthService.
// cache may be nil when no session cache is configured.
func NewAuthService(users UserStore, cache SessionCache, tokens *auth.TokenService) *AuthService {
	return &AuthService{
		users:  users,
		cache:  cache,
		tokens: tokens,
	}
}

// SignupInput defines input for creating an account.
type SignupInput struct {
	Email    string
	Name     string
	Username string
	Password string
}

// Signup validates the input, hashes the password and creates the user.
// Uniqueness conflicts are reported email-first.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*model.User, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))
	username := strings.TrimSpace(input.Username)
	name := strings.TrimSpace(input.Name)

	if !emailRegex.MatchString(email) {
		return nil, ErrInvalidEmail
	}
	if username == "" || name == "" {
		return nil, ErrMissingField
	}
	if len(input.Password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:           model.NewUserID(),
		Email:        email,
		Username:     username,
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailTaken):
			return nil, ErrEmailTaken
		case errors.Is(err, repository.ErrUsernameTaken):
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user.Sanitized(), nil
}

// Login verifies credentials and issues a session token.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, "", ErrInvalidCredentials
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to look up user: %w", err)
	}

	// A malformed stored hash verifies false rather than erroring out.
	match, err := auth.VerifyPassword(password, user.PasswordHash)
	if err != nil || !match {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}

	return user.Sanitized(), token, nil
}

// UpdateProfileInput defines the optional profile fields.
// Nil means "leave unchanged".
type UpdateProfileInput struct {
	Username *string
	Name     *string
}

// UpdateProfile changes username and/or display name.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*model.User, error) {
	if input.Username == nil && input.Name == nil {
		return nil, ErrNoFieldsToUpdate
	}
	if input.Username != nil && strings.TrimSpace(*input.Username) == "" {
		return nil, ErrMissingField
	}
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, ErrMissingField
	}

	user, err := s.users.UpdateUserProfile(ctx, userID, input.Username, input.Name)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			return nil, ErrUserNotFound
		case errors.Is(err, repository.ErrUsernameTaken):
			return nil, ErrUsernameTaken
		case errors.Is(err, repository.ErrNothingToSet):
			return nil, ErrNoFieldsToUpdate
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	s.invalidate(ctx, userID)

	return user.Sanitized(), nil
}

// invalidate drops the cached session user; cache errors are non-fatal.
func (s *AuthService) invalidate(ctx context.Context, userID string) {
	if s.cache != nil {
		_ = s.cache.InvalidateUser(ctx, userID)
	}
}

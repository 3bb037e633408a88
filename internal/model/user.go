// Package model defines domain entities for the application.
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// User represents a registered account.
// PasswordHash is never serialized; responses carry the sanitized form only.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Username      string    `json:"username"`
	Name          string    `json:"name"`
	PasswordHash  string    `json:"-"`
	SelectedModel string    `json:"selected_model,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Sanitized returns a copy safe to hand back to clients.
// The password hash is dropped; everything else is visible to the owner.
func (u *User) Sanitized() *User {
	s := *u
	s.PasswordHash = ""
	return &s
}

// NewUserID generates a store-assigned user identifier.
func NewUserID() string {
	return uuid.NewString()
}

// ParseUserID validates a user identifier taken from an untrusted source
// (token subject, cache entry) and returns its canonical form.
// All string-to-identifier conversion goes through here.
func ParseUserID(s string) (string, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid user id %q: %w", s, err)
	}
	return id.String(), nil
}

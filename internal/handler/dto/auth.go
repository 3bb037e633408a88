// Package dto provides Data Transfer Objects for API requests and responses.
package dto

// Envelope is the uniform response body for every endpoint.
type Envelope struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
	Data    any    `json:"data"`
}

// SignupRequest is the body for POST /auth/signup.
type SignupRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateUserRequest is the body for PUT /auth/update-user.
// Nil fields are left unchanged.
type UpdateUserRequest struct {
	Username *string `json:"username,omitempty"`
	Name     *string `json:"name,omitempty"`
}

package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/llamacoach/llamacoach/internal/auth"
	"github.com/llamacoach/llamacoach/internal/handler/dto"
	"github.com/llamacoach/llamacoach/internal/service"
)

// AuthHandler handles signup, login, logout and profile endpoints.
type AuthHandler struct {
	svc          *service.AuthService
	logger       *slog.Logger
	cookieSecure bool
	cookieMaxAge int
}

// NewAuthHandler creates a new AuthHandler.
// cookieMaxAge is in seconds and should match the token TTL.
func NewAuthHandler(svc *service.AuthService, logger *slog.Logger, cookieSecure bool, cookieMaxAge int) *AuthHandler {
	return &AuthHandler{
		svc:          svc,
		logger:       logger,
		cookieSecure: cookieSecure,
		cookieMaxAge: cookieMaxAge,
	}
}

// Signup handles POST /auth/signup.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req dto.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.svc.Signup(r.Context(), service.SignupInput{
		Email:    req.Email,
		Name:     req.Name,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.logger.Info("user_created",
		"user_id", user.ID,
		"username", user.Username,
	)

	writeSuccess(w, http.StatusOK, "User created successfully!", nil)
}

// Login handles POST /auth/login.
// On success the session token is stored in an HTTP-only cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, token, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.handleError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   h.cookieMaxAge,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	h.logger.Info("user_logged_in", "user_id", user.ID)

	writeSuccess(w, http.StatusOK, "Login successful!", nil)
}

// Logout handles POST /auth/logout.
// Stateless tokens cannot be revoked; deleting the cookie ends the session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	writeSuccess(w, http.StatusOK, "User logged out successfully!", nil)
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := auth.MustUserFromContext(r.Context())
	writeSuccess(w, http.StatusOK, "User authenticated", user)
}

// UpdateUser handles PUT /auth/update-user.
func (h *AuthHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	current := auth.MustUserFromContext(r.Context())

	var req dto.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.svc.UpdateProfile(r.Context(), current.ID, service.UpdateProfileInput{
		Username: req.Username,
		Name:     req.Name,
	})
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.logger.Info("user_updated", "user_id", user.ID)

	writeSuccess(w, http.StatusOK, "User updated successfully", user)
}

// handleError maps auth service errors to HTTP responses.
func (h *AuthHandler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidEmail):
		writeError(w, http.StatusBadRequest, "Invalid email address")
	case errors.Is(err, service.ErrMissingField):
		writeError(w, http.StatusBadRequest, "Missing required field")
	case errors.Is(err, service.ErrPasswordTooShort):
		writeError(w, http.StatusBadRequest, "Password must be at least 8 characters")
	case errors.Is(err, service.ErrEmailTaken):
		writeError(w, http.StatusBadRequest, "Email already exists")
	case errors.Is(err, service.ErrUsernameTaken):
		writeError(w, http.StatusBadRequest, "Username already exists")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusBadRequest, "Invalid email or password")
	case errors.Is(err, service.ErrNoFieldsToUpdate):
		writeError(w, http.StatusBadRequest, "No fields to update")
	case errors.Is(err, service.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "User not found")
	default:
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "An internal error occurred")
	}
}

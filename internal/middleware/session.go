// Package middleware provides HTTP middleware components.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/llamacoach/llamacoach/internal/auth"
	"github.com/llamacoach/llamacoach/internal/handler/dto"
	"github.com/llamacoach/llamacoach/internal/model"
	"github.com/llamacoach/llamacoach/internal/repository"
)

// TokenValidator validates a session token and returns its subject user ID.
type TokenValidator interface {
	Validate(token string) (string, error)
}

// UserSource loads user records for session resolution.
type UserSource interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// SessionCache caches sanitized session users between requests.
type SessionCache interface {
	GetUser(ctx context.Context, userID string) (*model.User, error)
	SetUser(ctx context.Context, user *model.User) error
}

// SessionConfig holds configuration for the session middleware.
type SessionConfig struct {
	Logger *slog.Logger
	Tokens TokenValidator
	Users  UserSource
	Cache  SessionCache // optional
}

// Session returns a middleware that resolves the session cookie into an
// authenticated user. It is the sole authorization gate: a valid token
// for an existing user, nothing more.
func Session(cfg SessionConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(auth.SessionCookieName)
			if err != nil || cookie.Value == "" {
				cfg.Logger.Warn("session rejected",
					slog.String("reason", "missing_cookie"),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeSessionError(w, "Not authenticated")
				return
			}

			subject, err := cfg.Tokens.Validate(cookie.Value)
			if err != nil {
				reason := "invalid_token"
				message := "Invalid token"
				if errors.Is(err, auth.ErrTokenExpired) {
					reason = "expired_token"
					message = "Session expired"
				}
				cfg.Logger.Warn("session rejected",
					slog.String("reason", reason),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeSessionError(w, message)
				return
			}

			userID, err := model.ParseUserID(subject)
			if err != nil {
				cfg.Logger.Warn("session rejected",
					slog.String("reason", "malformed_subject"),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeSessionError(w, "Invalid token")
				return
			}

			// Check cache first
			if cfg.Cache != nil {
				if user, _ := cfg.Cache.GetUser(r.Context(), userID); user != nil {
					ctx := auth.ContextWithUser(r.Context(), user)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			user, err := cfg.Users.GetUserByID(r.Context(), userID)
			if err != nil {
				if errors.Is(err, repository.ErrUserNotFound) {
					// User deleted after the token was issued
					cfg.Logger.Warn("session rejected",
						slog.String("reason", "user_not_found"),
						slog.String("user_id", userID),
						slog.String("request_id", GetRequestID(r.Context())),
					)
					writeSessionError(w, "User not found")
					return
				}
				cfg.Logger.Error("database error during session resolution",
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeJSONEnvelope(w, http.StatusInternalServerError, "An internal error occurred")
				return
			}

			sanitized := user.Sanitized()

			if cfg.Cache != nil {
				_ = cfg.Cache.SetUser(r.Context(), sanitized)
			}

			ctx := auth.ContextWithUser(r.Context(), sanitized)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeSessionError writes a 401 response in the uniform envelope.
func writeSessionError(w http.ResponseWriter, message string) {
	writeJSONEnvelope(w, http.StatusUnauthorized, message)
}

func writeJSONEnvelope(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(dto.Envelope{Message: message, Success: false})
}

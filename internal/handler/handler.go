// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/llamacoach/llamacoach/internal/handler/dto"
)

// Handler wraps the dependency-free utility endpoints.
type Handler struct{}

// New creates a new Handler instance.
func New() *Handler {
	return &Handler{}
}

// Home is the root info endpoint.
// GET /
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, "Welcome to the Llamacoach API", nil)
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Resource not found")
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		_ = err
	}
}

// writeSuccess writes the uniform success envelope.
func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, dto.Envelope{
		Message: message,
		Success: true,
		Data:    data,
	})
}

// writeError writes the uniform failure envelope.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, dto.Envelope{
		Message: message,
		Success: false,
	})
}

package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/llamacoach/llamacoach/internal/auth"
	"github.com/llamacoach/llamacoach/internal/handler/dto"
	"github.com/llamacoach/llamacoach/internal/service"
)

// ChatHandler handles model selection and conversation endpoints.
type ChatHandler struct {
	svc    *service.ChatService
	logger *slog.Logger
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(svc *service.ChatService, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		svc:    svc,
		logger: logger,
	}
}

// SelectModel handles POST /chat/select_model.
func (h *ChatHandler) SelectModel(w http.ResponseWriter, r *http.Request) {
	user := auth.MustUserFromContext(r.Context())

	var req dto.SelectModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.svc.SelectModel(r.Context(), user.ID, req.Model); err != nil {
		h.handleError(w, err)
		return
	}

	h.logger.Info("model_selected",
		"user_id", user.ID,
		"model", req.Model,
	)

	writeSuccess(w, http.StatusOK, fmt.Sprintf("Model %q selected successfully", req.Model), nil)
}

// Ask handles POST /chat/ask.
func (h *ChatHandler) Ask(w http.ResponseWriter, r *http.Request) {
	user := auth.MustUserFromContext(r.Context())

	var req dto.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	response, err := h.svc.Ask(r.Context(), user, req.UserInput)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.logger.Info("question_answered",
		"user_id", user.ID,
		"model", user.SelectedModel,
		"response_length", len(response),
	)

	writeSuccess(w, http.StatusOK, "Request processed successfully", dto.AskResponse{
		Response: response,
		Model:    user.SelectedModel,
	})
}

// ClearConversation handles POST /chat/clear_conversation.
func (h *ChatHandler) ClearConversation(w http.ResponseWriter, r *http.Request) {
	user := auth.MustUserFromContext(r.Context())

	if err := h.svc.Clear(r.Context(), user.ID); err != nil {
		h.handleError(w, err)
		return
	}

	h.logger.Info("conversation_cleared", "user_id", user.ID)

	writeSuccess(w, http.StatusOK, "Conversation history cleared", nil)
}

// GetConversation handles GET /chat/get_conversation.
func (h *ChatHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	user := auth.MustUserFromContext(r.Context())

	exchanges, err := h.svc.History(r.Context(), user.ID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Conversation history", exchanges)
}

// handleError maps chat service errors to HTTP responses.
func (h *ChatHandler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidModel):
		writeError(w, http.StatusBadRequest, "Invalid model selected")
	case errors.Is(err, service.ErrNoModelSelected):
		writeError(w, http.StatusBadRequest, "No model selected")
	case errors.Is(err, service.ErrEmptyInput):
		writeError(w, http.StatusBadRequest, "User input is required")
	case errors.Is(err, service.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, service.ErrUpstreamFailure):
		h.logger.Error("upstream_error", "error", err)
		writeError(w, http.StatusBadGateway, "Completion service unavailable")
	default:
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "An internal error occurred")
	}
}

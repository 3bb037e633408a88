package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/llamacoach/llamacoach/internal/completion"
	"github.com/llamacoach/llamacoach/internal/model"
	"github.com/llamacoach/llamacoach/internal/repository"
)

// Chat service errors.
var (
	ErrInvalidModel    = errors.New("invalid model selected")
	ErrNoModelSelected = errors.New("no model selected")
	ErrEmptyInput      = errors.New("empty user input")
	ErrUpstreamFailure = errors.New("completion service failed")
)

// completionTemperature is fixed; the upstream call is deliberately boring.
const completionTemperature = 0.5

// ConversationStore is the transcript surface the chat service needs.
type ConversationStore interface {
	AppendExchange(ctx context.Context, userID string, exchange model.Exchange) error
	RecentExchanges(ctx context.Context, userID string, limit int) ([]model.Exchange, error)
	ClearConversation(ctx context.Context, userID string) error
}

// Completer performs one chat-completion call.
type Completer interface {
	Complete(ctx context.Context, model string, messages []completion.Message, temperature float64) (string, error)
}

// ChatService proxies user questions to the completion API and records
// the resulting exchanges.
type ChatService struct {
	users         UserStore
	conversations ConversationStore
	completer     Completer
	cache         SessionCache
	allowedModels map[string]struct{}
	contextWindow int
	historyLimit  int
}

// ChatConfig holds the immutable chat-proxy configuration.
type ChatConfig struct {
	// Models is the fixed allow-list of selectable model names.
	Models []string
	// ContextWindow bounds the exchanges replayed upstream per ask.
	ContextWindow int
	// HistoryLimit bounds transcript reads.
	HistoryLimit int
}

// NewChatService creates a new ChatService.
// cache may be nil when no session cache is configured.
func NewChatService(users UserStore, conversations ConversationStore, completer Completer, cache SessionCache, cfg ChatConfig) *ChatService {
	allowed := make(map[string]struct{}, len(cfg.Models))
	for _, m := range cfg.Models {
		allowed[m] = struct{}{}
	}

	return &ChatService{
		users:         users,
		conversations: conversations,
		completer:     completer,
		cache:         cache,
		allowedModels: allowed,
		contextWindow: cfg.ContextWindow,
		historyLimit:  cfg.HistoryLimit,
	}
}

// SelectModel persists the user's model choice after checking the allow-list.
// An invalid name leaves the stored selection untouched.
func (s *ChatService) SelectModel(ctx context.Context, userID, modelName string) error {
	if _, ok := s.allowedModels[modelName]; !ok {
		return ErrInvalidModel
	}

	if err := s.users.SetSelectedModel(ctx, userID, modelName); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to persist model selection: %w", err)
	}

	if s.cache != nil {
		_ = s.cache.InvalidateUser(ctx, userID)
	}

	return nil
}

// Ask sends the user's input to the selected model and records the exchange.
// A failed upstream call persists nothing.
func (s *ChatService) Ask(ctx context.Context, user *model.User, input string) (string, error) {
	if strings.TrimSpace(input) == "" {
		return "", ErrEmptyInput
	}
	if user.SelectedModel == "" {
		return "", ErrNoModelSelected
	}

	history, err := s.conversations.RecentExchanges(ctx, user.ID, s.contextWindow)
	if err != nil {
		return "", fmt.Errorf("failed to load history: %w", err)
	}

	messages := make([]completion.Message, 0, 2*len(history)+1)
	for _, ex := range history {
		messages = append(messages,
			completion.Message{Role: "user", Content: ex.UserMessage},
			completion.Message{Role: "assistant", Content: ex.ModelReply},
		)
	}
	messages = append(messages, completion.Message{Role: "user", Content: input})

	reply, err := s.completer.Complete(ctx, user.SelectedModel, messages, completionTemperature)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstreamFailure, err)
	}

	exchange := model.NewExchange(input, reply, user.SelectedModel)
	if err := s.conversations.AppendExchange(ctx, user.ID, exchange); err != nil {
		return "", fmt.Errorf("failed to record exchange: %w", err)
	}

	return reply, nil
}

// History returns the most recent exchanges in chronological order.
func (s *ChatService) History(ctx context.Context, userID string) ([]model.Exchange, error) {
	exchanges, err := s.conversations.RecentExchanges(ctx, userID, s.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return exchanges, nil
}

// Clear wipes the user's transcript. Idempotent.
func (s *ChatService) Clear(ctx context.Context, userID string) error {
	if err := s.conversations.ClearConversation(ctx, userID); err != nil {
		return fmt.Errorf("failed to clear conversation: %w", err)
	}
	return nil
}

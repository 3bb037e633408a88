package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/llamacoach/llamacoach/internal/auth"
	"github.com/llamacoach/llamacoach/internal/completion"
	"github.com/llamacoach/llamacoach/internal/handler/dto"
	"github.com/llamacoach/llamacoach/internal/model"
	"github.com/llamacoach/llamacoach/internal/repository"
	"github.com/llamacoach/llamacoach/internal/service"
)

// memUserStore is an in-memory user store shared by the handler tests.
type memUserStore struct {
	users map[string]*model.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[string]*model.User)}
}

func (s *memUserStore) CreateUser(_ context.Context, user *model.User) error {
	for _, u := range s.users {
		if u.Email == user.Email {
			return repository.ErrEmailTaken
		}
	}
	for _, u := range s.users {
		if u.Username == user.Username {
			return repository.ErrUsernameTaken
		}
	}
	clone := *user
	s.users[user.ID] = &clone
	return nil
}

func (s *memUserStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (s *memUserStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (s *memUserStore) UpdateUserProfile(_ context.Context, id string, username, name *string) (*model.User, error) {
	if username == nil && name == nil {
		return nil, repository.ErrNothingToSet
	}
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	if username != nil {
		for otherID, other := range s.users {
			if otherID != id && other.Username == *username {
				return nil, repository.ErrUsernameTaken
			}
		}
		u.Username = *username
	}
	if name != nil {
		u.Name = *name
	}
	u.UpdatedAt = time.Now().UTC()
	clone := *u
	return &clone, nil
}

func (s *memUserStore) SetSelectedModel(_ context.Context, id, modelName string) error {
	u, ok := s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.SelectedModel = modelName
	return nil
}

// memConversationStore is an in-memory transcript store.
type memConversationStore struct {
	exchanges map[string][]model.Exchange
}

func newMemConversationStore() *memConversationStore {
	return &memConversationStore{exchanges: make(map[string][]model.Exchange)}
}

func (s *memConversationStore) AppendExchange(_ context.Context, userID string, exchange model.Exchange) error {
	s.exchanges[userID] = append(s.exchanges[userID], exchange)
	return nil
}

func (s *memConversationStore) RecentExchanges(_ context.Context, userID string, limit int) ([]model.Exchange, error) {
	all := s.exchanges[userID]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]model.Exchange, len(all))
	copy(out, all)
	return out, nil
}

func (s *memConversationStore) ClearConversation(_ context.Context, userID string) error {
	delete(s.exchanges, userID)
	return nil
}

// scriptedCompleter returns a fixed reply or error.
type scriptedCompleter struct {
	reply string
	err   error
}

func (c *scriptedCompleter) Complete(_ context.Context, _ string, _ []completion.Message, _ float64) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	return c.reply, nil
}

// noopSessionCache satisfies the service cache surface without caching.
type noopSessionCache struct{}

func (noopSessionCache) InvalidateUser(context.Context, string) error { return nil }

var errUpstreamDown = errors.New("upstream down")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTokens() *auth.TokenService {
	return auth.NewTokenService([]byte("handler-test-secret"), time.Hour)
}

func testChatConfig() service.ChatConfig {
	return service.ChatConfig{
		Models:        []string{"llama3-8b-8192", "llama3-70b-8192"},
		ContextWindow: 5,
		HistoryLimit:  10,
	}
}

// decodeEnvelope unmarshals the uniform response envelope.
func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) dto.Envelope {
	t.Helper()

	var env dto.Envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	return env
}

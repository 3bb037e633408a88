package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/llamacoach/llamacoach/internal/auth"
	"github.com/llamacoach/llamacoach/internal/model"
	"github.com/llamacoach/llamacoach/internal/service"
)

type chatFixture struct {
	handler       *ChatHandler
	store         *memUserStore
	conversations *memConversationStore
	completer     *scriptedCompleter
	user          *model.User
}

func newChatFixture(t *testing.T, selectedModel string) *chatFixture {
	t.Helper()

	store := newMemUserStore()
	conversations := newMemConversationStore()
	completer := &scriptedCompleter{reply: "canned reply"}

	svc := service.NewChatService(store, conversations, completer, noopSessionCache{}, testChatConfig())

	user := &model.User{
		ID:            model.NewUserID(),
		Email:         "chat@example.com",
		Username:      "chatter",
		Name:          "Chatter",
		SelectedModel: selectedModel,
	}
	store.users[user.ID] = user

	return &chatFixture{
		handler:       NewChatHandler(svc, testLogger()),
		store:         store,
		conversations: conversations,
		completer:     completer,
		user:          user,
	}
}

func (f *chatFixture) request(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	return req.WithContext(auth.ContextWithUser(req.Context(), f.user.Sanitized()))
}

func TestChatHandler_SelectModel(t *testing.T) {
	t.Parallel()

	f := newChatFixture(t, "")

	rec := httptest.NewRecorder()
	f.handler.SelectModel(rec, f.request(http.MethodPost, "/chat/select_model", `{"model":"llama3-8b-8192"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if !env.Success || env.Message != `Model "llama3-8b-8192" selected successfully` {
		t.Errorf("unexpected envelope: %+v", env)
	}
	if f.store.users[f.user.ID].SelectedModel != "llama3-8b-8192" {
		t.Error("selection not persisted")
	}
}

func TestChatHandler_SelectModel_Invalid(t *testing.T) {
	t.Parallel()

	f := newChatFixture(t, "")

	rec := httptest.NewRecorder()
	f.handler.SelectModel(rec, f.request(http.MethodPost, "/chat/select_model", `{"model":"made-up-model"}`))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Success || env.Message != "Invalid model selected" {
		t.Errorf("unexpected envelope: %+v", env)
	}
	if f.store.users[f.user.ID].SelectedModel != "" {
		t.Error("rejected selection must not be persisted")
	}
}

func TestChatHandler_Ask(t *testing.T) {
	t.Parallel()

	f := newChatFixture(t, "llama3-8b-8192")

	rec := httptest.NewRecorder()
	f.handler.Ask(rec, f.request(http.MethodPost, "/chat/ask", `{"user_input":"hello there"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if !env.Success || env.Message != "Request processed successfully" {
		t.Errorf("unexpected envelope: %+v", env)
	}

	payload, ok := env.Data.(map[string]any)
	if !ok {
		t.Fatalf("unexpected data shape: %T", env.Data)
	}
	if payload["response"] != "canned reply" {
		t.Errorf("unexpected response field: %v", payload["response"])
	}
	if payload["model"] != "llama3-8b-8192" {
		t.Errorf("unexpected model field: %v", payload["model"])
	}

	if len(f.conversations.exchanges[f.user.ID]) != 1 {
		t.Error("exchange should be recorded")
	}
}

func TestChatHandler_Ask_Failures(t *testing.T) {
	t.Parallel()

	t.Run("no model selected", func(t *testing.T) {
		t.Parallel()

		f := newChatFixture(t, "")

		rec := httptest.NewRecorder()
		f.handler.Ask(rec, f.request(http.MethodPost, "/chat/ask", `{"user_input":"hello"}`))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if env := decodeEnvelope(t, rec); env.Message != "No model selected" {
			t.Errorf("unexpected message: %q", env.Message)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()

		f := newChatFixture(t, "llama3-8b-8192")

		rec := httptest.NewRecorder()
		f.handler.Ask(rec, f.request(http.MethodPost, "/chat/ask", `{"user_input":"  "}`))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if env := decodeEnvelope(t, rec); env.Message != "User input is required" {
			t.Errorf("unexpected message: %q", env.Message)
		}
	})

	t.Run("upstream failure", func(t *testing.T) {
		t.Parallel()

		f := newChatFixture(t, "llama3-8b-8192")
		f.completer.err = errUpstreamDown

		rec := httptest.NewRecorder()
		f.handler.Ask(rec, f.request(http.MethodPost, "/chat/ask", `{"user_input":"hello"}`))

		if rec.Code != http.StatusBadGateway {
			t.Fatalf("expected 502, got %d", rec.Code)
		}
		if env := decodeEnvelope(t, rec); env.Message != "Completion service unavailable" {
			t.Errorf("unexpected message: %q", env.Message)
		}
		if len(f.conversations.exchanges[f.user.ID]) != 0 {
			t.Error("failed ask must not be recorded")
		}
	})
}

func TestChatHandler_GetConversation(t *testing.T) {
	t.Parallel()

	f := newChatFixture(t, "llama3-8b-8192")
	f.conversations.exchanges[f.user.ID] = []model.Exchange{
		model.NewExchange("first", "one", "llama3-8b-8192"),
		model.NewExchange("second", "two", "llama3-8b-8192"),
	}

	rec := httptest.NewRecorder()
	f.handler.GetConversation(rec, f.request(http.MethodGet, "/chat/get_conversation", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if !env.Success || env.Message != "Conversation history" {
		t.Errorf("unexpected envelope: %+v", env)
	}

	items, ok := env.Data.([]any)
	if !ok {
		t.Fatalf("unexpected data shape: %T", env.Data)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 exchanges, got %d", len(items))
	}
	first, ok := items[0].(map[string]any)
	if !ok {
		t.Fatalf("unexpected item shape: %T", items[0])
	}
	if first["user"] != "first" || first["assistant"] != "one" {
		t.Errorf("unexpected first exchange: %v", first)
	}
}

func TestChatHandler_ClearConversation(t *testing.T) {
	t.Parallel()

	f := newChatFixture(t, "llama3-8b-8192")
	f.conversations.exchanges[f.user.ID] = []model.Exchange{
		model.NewExchange("q", "a", "llama3-8b-8192"),
	}

	rec := httptest.NewRecorder()
	f.handler.ClearConversation(rec, f.request(http.MethodPost, "/chat/clear_conversation", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if !env.Success || env.Message != "Conversation history cleared" {
		t.Errorf("unexpected envelope: %+v", env)
	}
	if len(f.conversations.exchanges[f.user.ID]) != 0 {
		t.Error("transcript should be empty")
	}
}

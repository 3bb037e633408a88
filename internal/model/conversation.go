package model

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Exchange is one question/answer pair in a user's conversation.
// JSON tags match the stored document shape.
type Exchange struct {
	ID          string    `json:"id"`
	UserMessage string    `json:"user"`
	ModelReply  string    `json:"assistant"`
	Model       string    `json:"model"`
	Timestamp   time.Time `json:"timestamp"`
}

// Conversation holds the full transcript for one user.
// At most one conversation exists per user; exchanges are append-only.
type Conversation struct {
	UserID    string     `json:"user_id"`
	Exchanges []Exchange `json:"exchanges"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewExchange builds an exchange with a fresh time-ordered ID.
func NewExchange(userMessage, modelReply, modelName string) Exchange {
	return Exchange{
		ID:          ulid.Make().String(),
		UserMessage: userMessage,
		ModelReply:  modelReply,
		Model:       modelName,
		Timestamp:   time.Now().UTC(),
	}
}

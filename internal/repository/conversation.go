package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/llamacoach/llamacoach/internal/model"
)

// AppendExchange pushes an exchange onto the user's conversation document,
// creating it lazily on first use. The upsert+append is a single statement,
// so concurrent appends for the same user cannot lose writes.
func (r *Repository) AppendExchange(ctx context.Context, userID string, exchange model.Exchange) error {
	payload, err := json.Marshal(exchange)
	if err != nil {
		return fmt.Errorf("failed to encode exchange: %w", err)
	}

	query := `
		INSERT INTO conversations (user_id, exchanges, created_at, updated_at)
		VALUES ($1, jsonb_build_array($2::jsonb), now(), now())
		ON CONFLICT (user_id)
		DO UPDATE SET
			exchanges = conversations.exchanges || $2::jsonb,
			updated_at = now()
	`

	if _, err := r.pool.Exec(ctx, query, userID, payload); err != nil {
		return fmt.Errorf("failed to append exchange: %w", err)
	}

	return nil
}

// RecentExchanges returns the last limit exchanges in chronological order
// (oldest of the window first). Returns an empty slice when the user has
// no conversation.
func (r *Repository) RecentExchanges(ctx context.Context, userID string, limit int) ([]model.Exchange, error) {
	query := `SELECT exchanges FROM conversations WHERE user_id = $1`

	var raw []byte
	err := r.pool.QueryRow(ctx, query, userID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []model.Exchange{}, nil
		}
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	var exchanges []model.Exchange
	if err := json.Unmarshal(raw, &exchanges); err != nil {
		return nil, fmt.Errorf("failed to decode conversation: %w", err)
	}

	if limit > 0 && len(exchanges) > limit {
		exchanges = exchanges[len(exchanges)-limit:]
	}

	return exchanges, nil
}

// ClearConversation deletes the user's conversation document.
// Clearing an absent conversation is not an error.
func (r *Repository) ClearConversation(ctx context.Context, userID string) error {
	query := `DELETE FROM conversations WHERE user_id = $1`

	if _, err := r.pool.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to clear conversation: %w", err)
	}

	return nil
}

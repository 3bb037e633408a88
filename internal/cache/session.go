package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/llamacoach/llamacoach/internal/model"
)

const (
	// sessionCachePrefix is the Redis key prefix for cached session users.
	sessionCachePrefix = "session:user:"
	// sessionCacheTTL is the time-to-live for cached session users.
	sessionCacheTTL = 5 * time.Minute
)

// GetUser retrieves a cached sanitized user record by user ID.
// Returns nil on cache miss.
func (c *Cache) GetUser(ctx context.Context, userID string) (*model.User, error) {
	key := sessionCachePrefix + userID

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		// Cache miss is not an error
		return nil, nil //nolint:nilerr
	}

	var user model.User
	if err := json.Unmarshal(data, &user); err != nil {
		// Corrupted cache entry - treat as miss
		return nil, nil //nolint:nilerr
	}

	return &user, nil
}

// SetUser caches a sanitized user record for session resolution.
// The password hash never reaches Redis.
func (c *Cache) SetUser(ctx context.Context, user *model.User) error {
	key := sessionCachePrefix + user.ID

	data, err := json.Marshal(user.Sanitized())
	if err != nil {
		return fmt.Errorf("marshal session user: %w", err)
	}

	return c.client.Set(ctx, key, data, sessionCacheTTL).Err()
}

// InvalidateUser removes a cached user record.
// Called after profile updates and model selection so resolvers see
// fresh state on the next request.
func (c *Cache) InvalidateUser(ctx context.Context, userID string) error {
	key := sessionCachePrefix + userID
	return c.client.Del(ctx, key).Err()
}

package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/plixa/plixa/internal/model"
)

const (
	// authCachePrefix is the Redis key prefix for auth context cache.
	authCachePrefix = "auth:ctx:"
	// authCacheTTL is the time-to-live for cached auth contexts.
	authCacheTTL = 5 * time.Minute
)

// cachedAuthContext is the auth context shape stored in Redis.
type cachedAuthContext struct {
	UserID string   `json:"user_id"`
	Type   string   `json:"type"`
	Scopes []string `json:"scopes"`
}

// TokenCacheKey derives the cache key for a bearer token. The raw token is
// never stored in Redis.
func TokenCacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// GetAuthContext retrieves a cached auth context by cache key.
// Returns nil if not found (cache miss).
func (c *Cache) GetAuthContext(ctx context.Context, cacheKey string) (*model.AuthContext, error) {
	key := authCachePrefix + cacheKey

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		// Cache miss is not an error
		return nil, nil //nolint:nilerr
	}

	var cached cachedAuthContext
	if err := json.Unmarshal(data, &cached); err != nil {
		// Corrupted cache entry - treat as miss
		return nil, nil //nolint:nilerr
	}

	return &model.AuthContext{
		UserID: cached.UserID,
		Type:   model.UserType(cached.Type),
		Scopes: cached.Scopes,
	}, nil
}

// SetAuthContext caches an auth context.
func (c *Cache) SetAuthContext(ctx context.Context, cacheKey string, auth *model.AuthContext) error {
	key := authCachePrefix + cacheKey

	cached := cachedAuthContext{
		UserID: auth.UserID,
		Type:   string(auth.Type),
		Scopes: auth.Scopes,
	}

	data, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("marshal auth context: %w", err)
	}

	return c.client.Set(ctx, key, data, authCacheTTL).Err()
}

// DeleteAuthContext removes a cached auth context.
// Used when a token is explicitly revoked.
func (c *Cache) DeleteAuthContext(ctx context.Context, cacheKey string) error {
	key := authCachePrefix + cacheKey
	return c.client.Del(ctx, key).Err()
}

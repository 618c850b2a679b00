package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"cat/internal/platform/redis"
	"cat/internal/user/models"
)

const keyPrefix = "cat:user:"

// ProfileCache is a read-through cache for resolved user profiles. Identity
// resolution runs on every request, so keeping roles and the deny flag close
// saves a store round-trip. TTL is short; deny-access additionally invalidates
// the entry so revocation takes effect immediately.
type ProfileCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// New returns a cache backed by the given client, or nil when the client is
// nil (Redis not configured). A nil *ProfileCache is safe to use.
func New(client *redis.Client, ttl time.Duration, logger *slog.Logger) *ProfileCache {
	if client == nil {
		return nil
	}
	return &ProfileCache{client: client, ttl: ttl, logger: logger}
}

// Get returns the cached profile, or nil on miss or error. Cache errors are
// logged and swallowed; the store remains authoritative.
func (c *ProfileCache) Get(ctx context.Context, userID string) *models.User {
	if c == nil {
		return nil
	}
	raw, err := c.client.Get(ctx, keyPrefix+userID).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.logger.WarnContext(ctx, "profile cache read failed", "error", err)
		}
		return nil
	}
	var user models.User
	if err := json.Unmarshal(raw, &user); err != nil {
		c.logger.WarnContext(ctx, "profile cache entry corrupt", "error", err)
		return nil
	}
	return &user
}

func (c *ProfileCache) Set(ctx context.Context, user *models.User) {
	if c == nil || user == nil {
		return
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, keyPrefix+user.ID, raw, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "profile cache write failed", "error", err)
	}
}

// Invalidate drops the cached profile. Called after deny-access so the
// revocation is visible before the TTL expires.
func (c *ProfileCache) Invalidate(ctx context.Context, userID string) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, keyPrefix+userID).Err(); err != nil {
		c.logger.WarnContext(ctx, "profile cache invalidate failed", "error", err)
	}
}

package session

import (
	"context"
	"fmt"
	"time"

	"donor-bot/internal/cache"
)

// RedisStore persists sessions in Redis so state survives restarts and can
// be shared by multiple instances.
type RedisStore struct {
	cache *cache.Redis
	ttl   time.Duration
}

// NewRedis returns a Redis-backed store with the given session TTL.
func NewRedis(c *cache.Redis, ttl time.Duration) *RedisStore {
	return &RedisStore{cache: c, ttl: ttl}
}

func sessionKey(chatID int64) string {
	return fmt.Sprintf("session:%d", chatID)
}

func (r *RedisStore) Get(ctx context.Context, chatID int64) (*Session, error) {
	var s Session
	found, err := r.cache.GetJSON(ctx, sessionKey(chatID), &s)
	if err != nil {
		return nil, fmt.Errorf("get session %d: %w", chatID, err)
	}
	if !found {
		return nil, nil
	}
	return &s, nil
}

func (r *RedisStore) Put(ctx context.Context, s *Session) error {
	stored := *s
	stored.UpdatedAt = time.Now()
	if err := r.cache.SetJSON(ctx, sessionKey(s.ChatID), &stored, r.ttl); err != nil {
		return fmt.Errorf("put session %d: %w", s.ChatID, err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, chatID int64) error {
	if err := r.cache.Delete(ctx, sessionKey(chatID)); err != nil {
		return fmt.Errorf("delete session %d: %w", chatID, err)
	}
	return nil
}

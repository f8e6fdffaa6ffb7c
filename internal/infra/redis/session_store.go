package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKey = "classquiz:session"

// SessionStore persists the session token in Redis under a fixed key, so
// a restarted process can restore the active session. Set refreshes the
// TTL, which is how heartbeats keep an idle session alive.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Set(ctx context.Context, token string) error {
	return s.client.Set(ctx, sessionKey, token, s.ttl).Err()
}

func (s *SessionStore) Get(ctx context.Context) (string, bool, error) {
	token, err := s.client.Get(ctx, sessionKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return token, true, nil
}

func (s *SessionStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, sessionKey).Err()
}

package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// LivenessStore mirrors the active-user set into Redis as per-user keys
// that expire with the freshness window, so other instances can observe
// who is online.
type LivenessStore struct {
	client *redis.Client
}

func NewLivenessStore(client *redis.Client) *LivenessStore {
	return &LivenessStore{client: client}
}

func (s *LivenessStore) Mark(ctx context.Context, userID string, ttl time.Duration) error {
	return s.client.Set(ctx, s.key(userID), "1", ttl).Err()
}

func (s *LivenessStore) key(userID string) string {
	return "classquiz:active:" + userID
}

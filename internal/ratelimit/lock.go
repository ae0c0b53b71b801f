package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// Slot is a single-holder Redis key guarding one in-flight bulk request.
type Slot struct {
	client *redis.Client
	script *redis.Script
}

func NewSlot(client *redis.Client) *Slot {
	if client == nil {
		return nil
	}
	return &Slot{
		client: client,
		script: redis.NewScript(releaseScript),
	}
}

// TryAcquire returns a token when the slot was free.
func (s *Slot) TryAcquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if s == nil || s.client == nil {
		return "", false, ErrNotConfigured
	}
	if key == "" || ttl <= 0 {
		return "", false, errors.New("slot key and ttl are required")
	}

	token := uuid.NewString()
	ok, err := s.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

// Release frees the slot only when token still owns it.
func (s *Slot) Release(ctx context.Context, key, token string) error {
	if s == nil || s.client == nil || key == "" || token == "" {
		return nil
	}
	return s.script.Run(ctx, s.client, []string{key}, token).Err()
}

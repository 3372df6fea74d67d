// internal/flags/store.go
package flags

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps runtime overrides in Redis so an admin action on any
// instance is visible process-wide. Keys are "<prefix>:<flag>" holding a
// JSON-encoded Override.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "flags"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(flag string) string {
	return fmt.Sprintf("%s:%s", s.prefix, flag)
}

// GetOverride fetches the override for flag. A missing key is not an error.
func (s *RedisStore) GetOverride(ctx context.Context, flag string) (*Override, error) {
	val, err := s.client.Get(ctx, s.key(flag)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch override for %s: %w", flag, err)
	}

	var override Override
	if err := json.Unmarshal([]byte(val), &override); err != nil {
		return nil, fmt.Errorf("parse override for %s: %w", flag, err)
	}
	return &override, nil
}

// SetOverride stores an override; the admin surface calls this.
func (s *RedisStore) SetOverride(ctx context.Context, flag string, override Override) error {
	data, err := json.Marshal(override)
	if err != nil {
		return fmt.Errorf("encode override for %s: %w", flag, err)
	}
	return s.client.Set(ctx, s.key(flag), data, 0).Err()
}

// ClearOverride removes a runtime override, reverting the flag to its
// config default.
func (s *RedisStore) ClearOverride(ctx context.Context, flag string) error {
	return s.client.Del(ctx, s.key(flag)).Err()
}

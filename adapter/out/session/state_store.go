package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const stateKeyPrefix = "webmail:oauth:state:"

// StateStore persists OAuth login state values in Redis for CSRF protection.
// Unlike credentials this is NOT fail-open: an unverifiable state must fail
// the login attempt.
type StateStore struct {
	client *redis.Client
}

// NewStateStore creates a state store.
func NewStateStore(client *redis.Client) *StateStore {
	return &StateStore{client: client}
}

// StoreState records a state value with a TTL.
func (s *StateStore) StoreState(ctx context.Context, state string, ttl time.Duration) error {
	if err := s.client.Set(ctx, stateKeyPrefix+state, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to store oauth state: %w", err)
	}
	return nil
}

// ValidateState checks and consumes a state value. A state can only be
// validated once.
func (s *StateStore) ValidateState(ctx context.Context, state string) error {
	res, err := s.client.GetDel(ctx, stateKeyPrefix+state).Result()
	if err == redis.Nil {
		return fmt.Errorf("unknown or expired oauth state")
	}
	if err != nil {
		return fmt.Errorf("failed to validate oauth state: %w", err)
	}
	if res == "" {
		return fmt.Errorf("unknown or expired oauth state")
	}
	return nil
}

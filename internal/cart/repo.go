package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/avendano-dev/storefront-backend/pkg/redis"
	"github.com/google/uuid"
)

// Store persists cart snapshots in the opaque key-value collaborator. Load
// returns (nil, nil) when no snapshot exists for the user.
type Store interface {
	Load(ctx context.Context, userID uuid.UUID) (*Cart, error)
	Save(ctx context.Context, userID uuid.UUID, cart *Cart) error
	Delete(ctx context.Context, userID uuid.UUID) error
}

type cartKV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CartKey(userID string) string
}

type redisStore struct {
	kv cartKV
}

// NewRedisStore builds the redis-backed cart snapshot store.
func NewRedisStore(kv cartKV) (Store, error) {
	if kv == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &redisStore{kv: kv}, nil
}

func (s *redisStore) Load(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	raw, err := s.kv.Get(ctx, s.kv.CartKey(userID.String()))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load cart snapshot: %w", err)
	}

	var cart Cart
	if err := json.Unmarshal([]byte(raw), &cart); err != nil {
		return nil, fmt.Errorf("decode cart snapshot: %w", err)
	}
	return &cart, nil
}

func (s *redisStore) Save(ctx context.Context, userID uuid.UUID, cart *Cart) error {
	raw, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encode cart snapshot: %w", err)
	}
	if err := s.kv.Set(ctx, s.kv.CartKey(userID.String()), raw, 0); err != nil {
		return fmt.Errorf("save cart snapshot: %w", err)
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, userID uuid.UUID) error {
	if err := s.kv.Del(ctx, s.kv.CartKey(userID.String())); err != nil {
		return fmt.Errorf("delete cart snapshot: %w", err)
	}
	return nil
}

package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/avendano-dev/storefront-backend/pkg/redis"
	"github.com/google/uuid"
)

// Sessions live at most this long between touches; an abandoned checkout
// simply expires from the store.
const sessionTTL = 24 * time.Hour

// SessionStore persists checkout sessions in the key-value collaborator.
// Load returns (nil, nil) when no session exists for the user.
type SessionStore interface {
	Load(ctx context.Context, userID uuid.UUID) (*Session, error)
	Save(ctx context.Context, userID uuid.UUID, session *Session) error
	Delete(ctx context.Context, userID uuid.UUID) error
}

type sessionKV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CheckoutSessionKey(userID string) string
}

type redisSessionStore struct {
	kv sessionKV
}

// NewRedisSessionStore builds the redis-backed session store.
func NewRedisSessionStore(kv sessionKV) (SessionStore, error) {
	if kv == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &redisSessionStore{kv: kv}, nil
}

func (s *redisSessionStore) Load(ctx context.Context, userID uuid.UUID) (*Session, error) {
	raw, err := s.kv.Get(ctx, s.kv.CheckoutSessionKey(userID.String()))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load checkout session: %w", err)
	}

	var session Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	return &session, nil
}

func (s *redisSessionStore) Save(ctx context.Context, userID uuid.UUID, session *Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode checkout session: %w", err)
	}
	if err := s.kv.Set(ctx, s.kv.CheckoutSessionKey(userID.String()), raw, sessionTTL); err != nil {
		return fmt.Errorf("save checkout session: %w", err)
	}
	return nil
}

func (s *redisSessionStore) Delete(ctx context.Context, userID uuid.UUID) error {
	if err := s.kv.Del(ctx, s.kv.CheckoutSessionKey(userID.String())); err != nil {
		return fmt.Errorf("delete checkout session: %w", err)
	}
	return nil
}

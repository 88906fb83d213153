package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pkgerrors "github.com/avendano-dev/storefront-backend/pkg/errors"
	"github.com/avendano-dev/storefront-backend/pkg/redis"
	"github.com/google/uuid"
)

// Service exposes the shopper profile surface the checkout flow depends on.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*Profile, error)
	Save(ctx context.Context, userID uuid.UUID, profile Profile) (*Profile, error)
}

type profileKV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	ProfileKey(userID string) string
}

type service struct {
	kv profileKV
}

// NewService builds the redis-backed profile service.
func NewService(kv profileKV) (Service, error) {
	if kv == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &service{kv: kv}, nil
}

// Get loads the stored profile, returning an empty one when none exists yet.
func (s *service) Get(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	raw, err := s.kv.Get(ctx, s.kv.ProfileKey(userID.String()))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &Profile{UserID: userID.String()}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}

	var profile Profile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode profile")
	}
	profile.UserID = userID.String()
	return &profile, nil
}

// Save validates and persists the profile. At most one address may carry the
// default flag; normalization happens here so stored snapshots stay clean.
func (s *service) Save(ctx context.Context, userID uuid.UUID, profile Profile) (*Profile, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	defaults := 0
	for i := range profile.Addresses {
		profile.Addresses[i].Address = profile.Addresses[i].Address.Normalized()
		if profile.Addresses[i].Address.IsZero() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "saved address is incomplete")
		}
		if profile.Addresses[i].IsDefault {
			defaults++
		}
	}
	if defaults > 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "only one address can be the default")
	}

	profile.UserID = userID.String()
	raw, err := json.Marshal(profile)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "encode profile")
	}
	if err := s.kv.Set(ctx, s.kv.ProfileKey(userID.String()), raw, 0); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save profile")
	}
	return &profile, nil
}

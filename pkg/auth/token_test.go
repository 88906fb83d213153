package auth

import (
	"testing"
	"time"

	"github.com/avendano-dev/storefront-backend/pkg/config"
	"github.com/google/uuid"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "storefront",
		ExpirationMinutes: 60,
	}
}

func TestMintAndParseRoundTrip(t *testing.T) {
	t.Parallel()

	cfg := testJWTConfig()
	userID := uuid.New()

	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		UserID: userID,
		Email:  "shopper@example.com",
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != userID {
		t.Fatalf("expected user id %s, got %s", userID, claims.UserID)
	}
	if claims.Email != "shopper@example.com" {
		t.Fatalf("unexpected email %q", claims.Email)
	}
	if claims.ID == "" {
		t.Fatalf("expected a generated jti")
	}
}

func TestMintValidatesInputs(t *testing.T) {
	t.Parallel()

	now := time.Now()

	cfg := testJWTConfig()
	cfg.Secret = ""
	if _, err := MintAccessToken(cfg, now, AccessTokenPayload{UserID: uuid.New()}); err == nil {
		t.Fatalf("expected error for missing secret")
	}

	cfg = testJWTConfig()
	if _, err := MintAccessToken(cfg, now, AccessTokenPayload{}); err == nil {
		t.Fatalf("expected error for missing user id")
	}

	cfg = testJWTConfig()
	cfg.ExpirationMinutes = 0
	if _, err := MintAccessToken(cfg, now, AccessTokenPayload{UserID: uuid.New()}); err == nil {
		t.Fatalf("expected error for zero expiration")
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	t.Parallel()

	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New()})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	other := cfg
	other.Secret = "different-secret"
	if _, err := ParseAccessToken(other, token); err == nil {
		t.Fatalf("expected signature mismatch")
	}
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	t.Parallel()

	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New()})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	other := cfg
	other.Issuer = "someone-else"
	if _, err := ParseAccessToken(other, token); err == nil {
		t.Fatalf("expected issuer mismatch")
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	t.Parallel()

	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now().Add(-2*time.Hour), AccessTokenPayload{UserID: uuid.New()})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	if _, err := ParseAccessToken(cfg, token); err == nil {
		t.Fatalf("expected expiry rejection")
	}
}

package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	cartsvc "github.com/avendano-dev/storefront-backend/internal/cart"
	checkoutsvc "github.com/avendano-dev/storefront-backend/internal/checkout"
	"github.com/avendano-dev/storefront-backend/internal/users"
	pkgAuth "github.com/avendano-dev/storefront-backend/pkg/auth"
	"github.com/avendano-dev/storefront-backend/pkg/config"
	"github.com/avendano-dev/storefront-backend/pkg/logger"
	"github.com/avendano-dev/storefront-backend/pkg/redis"
)

type routerCartService struct {
	cartsvc.Service
	gets int
}

func (s *routerCartService) Get(_ context.Context, _ uuid.UUID) (*cartsvc.Cart, error) {
	s.gets++
	return cartsvc.NewCart(cartsvc.Rules{
		MaxQuantity:           10,
		TaxRate:               decimal.RequireFromString("0.08"),
		FreeShippingThreshold: decimal.NewFromInt(100),
	}), nil
}

type routerCheckoutService struct{ checkoutsvc.Service }

type routerProfileService struct{ users.Service }

func routerFixture(t *testing.T) (http.Handler, *routerCartService, string) {
	t.Helper()

	cfg := &config.Config{
		App: config.AppConfig{Env: "dev", Port: "8080"},
		JWT: config.JWTConfig{Secret: "test-secret", Issuer: "storefront", ExpirationMinutes: 60},
	}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	carts := &routerCartService{}

	handler := NewRouter(cfg, logg, &redis.Client{}, nil, carts, &routerCheckoutService{}, &routerProfileService{})

	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Email:  "shopper@example.com",
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return handler, carts, token
}

func TestSubmitRequiresIdempotencyKey(t *testing.T) {
	handler, _, token := routerFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/submit", strings.NewReader("{}"))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without Idempotency-Key, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCartItemAddRequiresIdempotencyKey(t *testing.T) {
	handler, _, token := routerFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader("{}"))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without Idempotency-Key, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCartFetchIsNotGuarded(t *testing.T) {
	handler, carts, token := routerFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for unguarded read, got %d: %s", rec.Code, rec.Body.String())
	}
	if carts.gets != 1 {
		t.Fatalf("expected handler reached, got %d calls", carts.gets)
	}
}

func TestPrivateRoutesRequireAuth(t *testing.T) {
	handler, _, _ := routerFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/submit", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without credentials, got %d", rec.Code)
	}
}

package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avendano-dev/storefront-backend/api/middleware"
	cartsvc "github.com/avendano-dev/storefront-backend/internal/cart"
)

type stubCartService struct {
	cartsvc.Service

	lastProduct cartsvc.Product
	lastSize    string
	lastQty     int
	addCalls    int
	gets        int
}

func (s *stubCartService) Get(_ context.Context, _ uuid.UUID) (*cartsvc.Cart, error) {
	s.gets++
	return cartsvc.NewCart(testRules()), nil
}

func (s *stubCartService) AddItem(_ context.Context, _ uuid.UUID, product cartsvc.Product, size string, qty int) (*cartsvc.Cart, error) {
	s.addCalls++
	s.lastProduct = product
	s.lastSize = size
	s.lastQty = qty

	cart := cartsvc.NewCart(testRules())
	cart.AddItem(testRules(), product, size, qty)
	return cart, nil
}

func testRules() cartsvc.Rules {
	return cartsvc.Rules{
		MaxQuantity:           10,
		TaxRate:               decimal.RequireFromString("0.08"),
		FreeShippingThreshold: decimal.NewFromInt(100),
	}
}

func authedRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	return req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
}

func TestCartFetchReturnsCart(t *testing.T) {
	svc := &stubCartService{}
	handler := CartFetch(svc, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/cart", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.gets != 1 {
		t.Fatalf("expected one service call, got %d", svc.gets)
	}

	var envelope struct {
		Data struct {
			Items []json.RawMessage `json:"items"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestCartAddItemPassesPayloadThrough(t *testing.T) {
	svc := &stubCartService{}
	handler := CartAddItem(svc, nil)

	body := `{"product":{"id":"hoodie","name":"Hoodie","base_price":"80"},"size":"M","quantity":2}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/cart/items", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.lastProduct.ID != "hoodie" || svc.lastSize != "M" || svc.lastQty != 2 {
		t.Fatalf("unexpected service args: %+v size=%q qty=%d", svc.lastProduct, svc.lastSize, svc.lastQty)
	}
	if !svc.lastProduct.BasePrice.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("unexpected base price %s", svc.lastProduct.BasePrice)
	}
}

func TestCartAddItemAcceptsClampableQuantity(t *testing.T) {
	svc := &stubCartService{}
	handler := CartAddItem(svc, nil)

	body := `{"product":{"id":"hoodie","name":"Hoodie","base_price":"80"},"quantity":0}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/cart/items", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("clampable quantity must not be rejected, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.addCalls != 1 {
		t.Fatalf("expected the engine to receive the request, got %d calls", svc.addCalls)
	}
	if svc.lastQty != 0 {
		t.Fatalf("quantity must pass through unclamped to the engine, got %d", svc.lastQty)
	}
}

func TestCartAddItemRejectsInvalidPayload(t *testing.T) {
	svc := &stubCartService{}
	handler := CartAddItem(svc, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/cart/items", `{"size":"M"}`))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing product, got %d", rec.Code)
	}
	if svc.addCalls != 0 {
		t.Fatalf("service must not be called on invalid payload")
	}
}

func TestCartFetchRequiresAuthenticatedContext(t *testing.T) {
	handler := CartFetch(&stubCartService{}, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without user context, got %d", rec.Code)
	}
}

func TestCartFetchGuardsNilService(t *testing.T) {
	handler := CartFetch(nil, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/cart", ""))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 without service, got %d", rec.Code)
	}
}

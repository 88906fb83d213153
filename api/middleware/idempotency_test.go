package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeIdempotencyStore struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{
		data: map[string]string{},
		ttls: map[string]time.Duration{},
	}
}

func (f *fakeIdempotencyStore) IdempotencyKey(scope, key string) string {
	return "sf:idem:" + scope + ":" + key
}

func (f *fakeIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	v, ok := f.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (f *fakeIdempotencyStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	if s, ok := value.(string); ok {
		f.data[key] = s
		f.ttls[key] = ttl
	}
	return true, nil
}

func submitRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/submit", strings.NewReader(body))
	req.Header.Set("Idempotency-Key", "idem-1")
	return req
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newFakeIdempotencyStore()
	var calls atomic.Int32

	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"data":{"order_id":"ord_%d"}}`, n)
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, submitRequest(`{"note":"hi"}`))
	if first.Code != http.StatusCreated {
		t.Fatalf("first call: expected 201, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, submitRequest(`{"note":"hi"}`))
	if second.Code != http.StatusCreated {
		t.Fatalf("replay: expected 201, got %d", second.Code)
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("replay body differs: %q vs %q", second.Body.String(), first.Body.String())
	}
	if got := second.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("replay content type lost, got %q", got)
	}
	if calls.Load() != 1 {
		t.Fatalf("handler ran %d times, expected 1", calls.Load())
	}
}

func TestIdempotencyRejectsReusedKeyWithDifferentBody(t *testing.T) {
	store := newFakeIdempotencyStore()
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, submitRequest(`{"note":"hi"}`))

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, submitRequest(`{"note":"different"}`))
	if second.Code != http.StatusConflict {
		t.Fatalf("expected 409 for mismatched body, got %d", second.Code)
	}
}

func TestIdempotencyRequiresHeaderOnGuardedRoutes(t *testing.T) {
	handler := Idempotency(newFakeIdempotencyStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/submit", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without Idempotency-Key, got %d", rec.Code)
	}
}

func TestIdempotencySkipsUnguardedRoutes(t *testing.T) {
	var calls atomic.Int32
	handler := Idempotency(newFakeIdempotencyStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || calls.Load() != 1 {
		t.Fatalf("unguarded routes must pass through, got %d calls and status %d", calls.Load(), rec.Code)
	}
}

func TestIdempotencySubmitUsesLongTTL(t *testing.T) {
	store := newFakeIdempotencyStore()
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, submitRequest(`{}`))

	for key, ttl := range store.ttls {
		if !strings.Contains(key, "/api/v1/checkout/submit") {
			continue
		}
		if ttl != criticalIdempotencyTTL {
			t.Fatalf("expected 7d ttl on submit records, got %s", ttl)
		}
		return
	}
	t.Fatalf("no record stored for submit route")
}

func TestIdempotencyScopesByUser(t *testing.T) {
	store := newFakeIdempotencyStore()
	var calls atomic.Int32
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusCreated)
	}))

	first := submitRequest(`{}`)
	first = first.WithContext(WithUserID(first.Context(), "user-a"))
	handler.ServeHTTP(httptest.NewRecorder(), first)

	second := submitRequest(`{}`)
	second = second.WithContext(WithUserID(second.Context(), "user-b"))
	handler.ServeHTTP(httptest.NewRecorder(), second)

	if calls.Load() != 2 {
		t.Fatalf("different users must not share records, handler ran %d times", calls.Load())
	}
}

package orderapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/avendano-dev/storefront-backend/pkg/config"
	pkgerrors "github.com/avendano-dev/storefront-backend/pkg/errors"
	"github.com/avendano-dev/storefront-backend/pkg/types"
	"github.com/shopspring/decimal"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(config.OrdersConfig{
		BaseURL: server.URL,
		APIKey:  "test-key",
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func testRequest() CreateOrderRequest {
	addr := types.Address{Line1: "100 Congress Ave", City: "Austin", State: "TX", PostalCode: "78701", Country: "US"}
	return CreateOrderRequest{
		Items: []OrderItem{{
			ProductID: "hoodie",
			Name:      "Hoodie",
			Size:      "M",
			Quantity:  2,
			UnitPrice: decimal.NewFromInt(80),
		}},
		ShippingAddress:      addr,
		BillingAddress:       addr,
		ShippingMethod:       "standard",
		PaymentMethod:        types.PaymentMethod{Kind: "card", Token: "tok_visa"},
		UseShippingAsBilling: true,
		PaymentIntentID:      "pi_123",
		TransactionID:        "txn_789",
		Subtotal:             decimal.NewFromInt(160),
		Tax:                  decimal.RequireFromString("12.80"),
		Shipping:             decimal.Zero,
		Discount:             decimal.Zero,
		Total:                decimal.RequireFromString("172.80"),
	}
}

func TestCreateOrder(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/orders" || r.Method != http.MethodPost {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Fatalf("missing auth header, got %q", got)
		}

		var payload CreateOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if payload.PaymentIntentID != "pi_123" || len(payload.Items) != 1 {
			t.Fatalf("unexpected payload %+v", payload)
		}

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "ord_456",
			"number": "SO-1001",
			"status": "confirmed",
			"total":  payload.Total,
		})
	})

	order, err := client.CreateOrder(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.ID != "ord_456" || order.Number != "SO-1001" {
		t.Fatalf("unexpected order %+v", order)
	}
}

func TestCreateOrderRejectsEmptyItems(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("no request expected")
	})

	req := testRequest()
	req.Items = nil
	_, err := client.CreateOrder(context.Background(), req)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateOrderMissingID(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"status": "confirmed"})
	})

	_, err := client.CreateOrder(context.Background(), testRequest())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error for missing order id, got %v", err)
	}
}

func TestCreateOrderUpstreamFailure(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	_, err := client.CreateOrder(context.Background(), testRequest())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

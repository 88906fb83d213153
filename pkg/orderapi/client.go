package orderapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avendano-dev/storefront-backend/pkg/config"
	pkgerrors "github.com/avendano-dev/storefront-backend/pkg/errors"
	"github.com/avendano-dev/storefront-backend/pkg/types"
	"github.com/shopspring/decimal"
)

const responseBodyReadLimit int64 = 1024

var errBaseURLRequired = errors.New("order service base url is required")

// Client wraps the order service's creation API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds the order service client from configuration.
func NewClient(cfg config.OrdersConfig, opts ...Option) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errBaseURLRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		httpClient: &http.Client{Timeout: timeout},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: timeout}
	}

	return client, nil
}

// OrderItem is one purchased line inside the order payload.
type OrderItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Size      string          `json:"size"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// CreateOrderRequest carries everything the order service needs to persist a
// confirmed purchase.
type CreateOrderRequest struct {
	Items                []OrderItem         `json:"items"`
	ShippingAddress      types.Address       `json:"shipping_address"`
	BillingAddress       types.Address       `json:"billing_address"`
	ShippingMethod       string              `json:"shipping_method"`
	PaymentMethod        types.PaymentMethod `json:"payment_method"`
	UseShippingAsBilling bool                `json:"use_shipping_as_billing"`
	Notes                string              `json:"notes,omitempty"`
	PaymentIntentID      string              `json:"payment_intent_id"`
	TransactionID        string              `json:"transaction_id,omitempty"`
	Subtotal             decimal.Decimal     `json:"subtotal"`
	Tax                  decimal.Decimal     `json:"tax"`
	Shipping             decimal.Decimal     `json:"shipping"`
	Discount             decimal.Decimal     `json:"discount"`
	Total                decimal.Decimal     `json:"total"`
}

// Order is the order service's record of a confirmed purchase.
type Order struct {
	ID        string          `json:"id"`
	Number    string          `json:"number,omitempty"`
	Status    string          `json:"status,omitempty"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"created_at"`
}

// CreateOrder submits the order payload and returns the created record.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "order client not configured")
	}
	if len(req.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal order request")
	}

	url := fmt.Sprintf("%s/orders", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build order request")
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute order request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, pkgerrors.Wrap(
			pkgerrors.CodeDependency,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
			"order request failed",
		)
	}

	var order Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode order response")
	}
	if strings.TrimSpace(order.ID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "order service returned no order id")
	}

	return &order, nil
}

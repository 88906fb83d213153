package payments

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
	"github.com/avendano-dev/storefront-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const responseBodyReadLimit int64 = 1024

var errBaseURLRequired = errors.New("payment service base url is required")

// Client wraps the payment service's intent/confirm API with centralized
// auth headers, logging, idempotency keys, and error mapping.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *logger.Logger
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

// WithLogger attaches a structured logger to the client.
func WithLogger(logg *logger.Logger) Option {
	return func(c *Client) {
		c.logger = logg
	}
}

// NewClient builds the payment service client from configuration.
func NewClient(cfg config.PaymentsConfig, opts ...Option) (*Client, error) {
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

// Intent is the payment-service handle for an amount pending confirmation.
type Intent struct {
	ID     string          `json:"payment_intent_id"`
	Amount decimal.Decimal `json:"amount"`
	Status string          `json:"status,omitempty"`
}

// Confirmation reports the outcome of confirming an intent. Success=false is a
// declared decline, not a transport failure.
type Confirmation struct {
	Success       bool   `json:"success"`
	Message       string `json:"message,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
}

// PaymentMethodRef is the tokenized credential sent for confirmation.
type PaymentMethodRef struct {
	Kind  string `json:"kind"`
	Token string `json:"token"`
}

// CreateIntent registers the amount to charge and returns the intent handle.
func (c *Client) CreateIntent(ctx context.Context, amount decimal.Decimal) (*Intent, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment client not configured")
	}
	if amount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount cannot be negative")
	}

	payload := struct {
		Amount decimal.Decimal `json:"amount"`
	}{Amount: amount}

	c.log(ctx, "request", "create_intent", map[string]any{"amount": amount.String()})

	var intent Intent
	if err := c.post(ctx, "payment-intents", payload, &intent); err != nil {
		c.log(ctx, "error", "create_intent", map[string]any{"error": err.Error()})
		return nil, err
	}
	if strings.TrimSpace(intent.ID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment service returned no intent id")
	}

	c.log(ctx, "response", "create_intent", map[string]any{"payment_intent_id": intent.ID})
	return &intent, nil
}

// Confirm settles the intent with the provided method. A declined payment is
// returned as Confirmation{Success: false}, not as an error.
func (c *Client) Confirm(ctx context.Context, intentID string, method PaymentMethodRef) (*Confirmation, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment client not configured")
	}
	trimmed := strings.TrimSpace(intentID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id is required")
	}
	if strings.TrimSpace(method.Token) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method token is required")
	}

	payload := struct {
		PaymentMethod PaymentMethodRef `json:"payment_method"`
	}{PaymentMethod: method}

	c.log(ctx, "request", "confirm_payment", map[string]any{"payment_intent_id": trimmed})

	var confirmation Confirmation
	path := fmt.Sprintf("payment-intents/%s/confirm", trimmed)
	if err := c.post(ctx, path, payload, &confirmation); err != nil {
		c.log(ctx, "error", "confirm_payment", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "confirm_payment", map[string]any{
		"payment_intent_id": trimmed,
		"success":           confirmation.Success,
	})
	return &confirmation, nil
}

func (c *Client) post(ctx context.Context, path string, payload, dest any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal payment request")
	}

	url := fmt.Sprintf("%s/%s", c.baseURL, strings.TrimLeft(path, "/"))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build payment request")
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", uuid.NewString())
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute payment request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(
			codeForStatus(resp.StatusCode),
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
			"payment request failed",
		)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode payment response")
	}
	return nil
}

func codeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case http.StatusPaymentRequired:
		return pkgerrors.CodePaymentDeclined
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	case http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	case http.StatusBadRequest:
		return pkgerrors.CodeValidation
	default:
		return pkgerrors.CodeDependency
	}
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("payments %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("payments %s", phase))
	}
}

func redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"card", "token", "cvv", "cvc", "secret"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}

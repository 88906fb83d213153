package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/avendano-dev/storefront-backend/internal/cart"
	"github.com/avendano-dev/storefront-backend/internal/users"
	pkgerrors "github.com/avendano-dev/storefront-backend/pkg/errors"
	"github.com/avendano-dev/storefront-backend/pkg/logger"
	"github.com/avendano-dev/storefront-backend/pkg/metrics"
	"github.com/avendano-dev/storefront-backend/pkg/orderapi"
	"github.com/avendano-dev/storefront-backend/pkg/payments"
	"github.com/avendano-dev/storefront-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const submissionLockTTL = 30 * time.Second

// Redirect targets surfaced by gate validation.
const (
	RedirectLogin = "login"
	RedirectCart  = "cart"
)

type cartAccessor interface {
	Get(ctx context.Context, userID uuid.UUID) (*cart.Cart, error)
	Clear(ctx context.Context, userID uuid.UUID) (*cart.Cart, error)
}

type profileLoader interface {
	Get(ctx context.Context, userID uuid.UUID) (*users.Profile, error)
}

type paymentProcessor interface {
	CreateIntent(ctx context.Context, amount decimal.Decimal) (*payments.Intent, error)
	Confirm(ctx context.Context, intentID string, method payments.PaymentMethodRef) (*payments.Confirmation, error)
}

type orderCreator interface {
	CreateOrder(ctx context.Context, req orderapi.CreateOrderRequest) (*orderapi.Order, error)
}

type submissionLocker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
	CheckoutLockKey(userID string) string
}

// GateResult reports the outcome of pre-submission validation. Redirect is set
// for the gates that also navigate the shopper away.
type GateResult struct {
	OK       bool   `json:"ok"`
	Message  string `json:"message,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

// SubmitResult is returned after a confirmed submission.
type SubmitResult struct {
	Order      *orderapi.Order `json:"order"`
	RedirectTo string          `json:"redirect_to"`
}

// Service walks a shopper through the gated checkout sequence and executes the
// submission against the payment and order collaborators.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*Session, error)
	Reset(ctx context.Context, userID uuid.UUID) (*Session, error)
	UpdateShippingAddress(ctx context.Context, userID uuid.UUID, addr types.Address) (*Session, error)
	UpdateBillingAddress(ctx context.Context, userID uuid.UUID, addr types.Address) (*Session, error)
	ToggleUseShippingAsBilling(ctx context.Context, userID uuid.UUID) (*Session, error)
	SelectShippingMethod(ctx context.Context, userID uuid.UUID, method string) (*Session, error)
	SelectPaymentMethod(ctx context.Context, userID uuid.UUID, method types.PaymentMethod) (*Session, error)
	SetOrderNotes(ctx context.Context, userID uuid.UUID, notes string) (*Session, error)
	NextStep(ctx context.Context, userID uuid.UUID) (*Session, error)
	PreviousStep(ctx context.Context, userID uuid.UUID) (*Session, error)
	GoToStep(ctx context.Context, userID uuid.UUID, step int) (*Session, error)
	LoadDefaultAddresses(ctx context.Context, userID uuid.UUID) (*Session, error)
	Validate(ctx context.Context, userID uuid.UUID) (*GateResult, error)
	Process(ctx context.Context, userID uuid.UUID) (*SubmitResult, error)
}

type service struct {
	sessions SessionStore
	carts    cartAccessor
	profiles profileLoader
	payments paymentProcessor
	orders   orderCreator
	locker   submissionLocker
	metrics  *metrics.CheckoutMetrics
	logg     *logger.Logger
}

// ServiceParams collects the collaborators the checkout flow depends on.
type ServiceParams struct {
	Sessions SessionStore
	Carts    cartAccessor
	Profiles profileLoader
	Payments paymentProcessor
	Orders   orderCreator
	Locker   submissionLocker
	Metrics  *metrics.CheckoutMetrics
	Logger   *logger.Logger
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.Sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if params.Profiles == nil {
		return nil, fmt.Errorf("profile service required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payment client required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order client required")
	}
	if params.Locker == nil {
		return nil, fmt.Errorf("submission locker required")
	}
	return &service{
		sessions: params.Sessions,
		carts:    params.Carts,
		profiles: params.Profiles,
		payments: params.Payments,
		orders:   params.Orders,
		locker:   params.Locker,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*Session, error) {
	return s.load(ctx, userID)
}

func (s *service) Reset(ctx context.Context, userID uuid.UUID) (*Session, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if err := s.sessions.Delete(ctx, userID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reset checkout")
	}
	return NewSession(), nil
}

func (s *service) UpdateShippingAddress(ctx context.Context, userID uuid.UUID, addr types.Address) (*Session, error) {
	if addr.Normalized().IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address is incomplete")
	}
	return s.mutate(ctx, userID, func(session *Session) {
		session.SetShippingAddress(addr)
	})
}

func (s *service) UpdateBillingAddress(ctx context.Context, userID uuid.UUID, addr types.Address) (*Session, error) {
	if addr.Normalized().IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "billing address is incomplete")
	}
	session, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if session.UseShippingAsBilling {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "billing address is mirrored from shipping")
	}
	session.SetBillingAddress(addr)
	return s.save(ctx, userID, session)
}

func (s *service) ToggleUseShippingAsBilling(ctx context.Context, userID uuid.UUID) (*Session, error) {
	return s.mutate(ctx, userID, func(session *Session) {
		session.ToggleUseShippingAsBilling()
	})
}

func (s *service) SelectShippingMethod(ctx context.Context, userID uuid.UUID, method string) (*Session, error) {
	trimmed := strings.TrimSpace(method)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping method is required")
	}
	return s.mutate(ctx, userID, func(session *Session) {
		session.ShippingMethod = trimmed
	})
}

func (s *service) SelectPaymentMethod(ctx context.Context, userID uuid.UUID, method types.PaymentMethod) (*Session, error) {
	if method.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method token is required")
	}
	return s.mutate(ctx, userID, func(session *Session) {
		session.PaymentMethod = &method
	})
}

func (s *service) SetOrderNotes(ctx context.Context, userID uuid.UUID, notes string) (*Session, error) {
	return s.mutate(ctx, userID, func(session *Session) {
		session.OrderNotes = strings.TrimSpace(notes)
	})
}

func (s *service) NextStep(ctx context.Context, userID uuid.UUID) (*Session, error) {
	return s.mutate(ctx, userID, func(session *Session) {
		session.Next()
	})
}

func (s *service) PreviousStep(ctx context.Context, userID uuid.UUID) (*Session, error) {
	return s.mutate(ctx, userID, func(session *Session) {
		session.Previous()
	})
}

func (s *service) GoToStep(ctx context.Context, userID uuid.UUID, step int) (*Session, error) {
	return s.mutate(ctx, userID, func(session *Session) {
		session.GoTo(step)
	})
}

// LoadDefaultAddresses seeds the shipping address from the shopper's saved
// default address, honoring the mirror-to-billing rule. A shopper with no
// saved addresses keeps an untouched session.
func (s *service) LoadDefaultAddresses(ctx context.Context, userID uuid.UUID) (*Session, error) {
	session, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	addr, ok := profile.DefaultAddress()
	if !ok {
		return session, nil
	}
	session.SetShippingAddress(addr)
	return s.save(ctx, userID, session)
}

// Validate evaluates the pre-submission gates in fixed precedence, stopping at
// the first failure. It never mutates the session.
func (s *service) Validate(ctx context.Context, userID uuid.UUID) (*GateResult, error) {
	if userID == uuid.Nil {
		return &GateResult{Message: "please sign in to continue", Redirect: RedirectLogin}, nil
	}
	session, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	current, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return evaluateGates(session, current), nil
}

func evaluateGates(session *Session, current *cart.Cart) *GateResult {
	if current == nil || current.IsEmpty() {
		return &GateResult{Message: "your cart is empty", Redirect: RedirectCart}
	}
	if session.ShippingAddress == nil || session.ShippingAddress.IsZero() {
		return &GateResult{Message: "shipping address is required"}
	}
	if session.BillingAddress == nil || session.BillingAddress.IsZero() {
		return &GateResult{Message: "billing address is required"}
	}
	if strings.TrimSpace(session.ShippingMethod) == "" {
		return &GateResult{Message: "shipping method is required"}
	}
	if session.PaymentMethod == nil || session.PaymentMethod.IsZero() {
		return &GateResult{Message: "payment method is required"}
	}
	return &GateResult{OK: true}
}

// Process runs the guarded submission sequence: payment intent, confirmation,
// order creation, cart clear. Submission is single-flight per shopper; a
// second concurrent attempt is refused rather than queued.
func (s *service) Process(ctx context.Context, userID uuid.UUID) (*SubmitResult, error) {
	started := time.Now()
	s.metrics.IncAttempt()

	if userID == uuid.Nil {
		s.metrics.IncFailure("unauthenticated")
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "please sign in to continue").
			WithDetails(map[string]any{"redirect": RedirectLogin})
	}

	acquired, err := s.locker.AcquireLock(ctx, s.locker.CheckoutLockKey(userID.String()), submissionLockTTL)
	if err != nil {
		s.metrics.IncFailure("lock")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checkout failed")
	}
	if !acquired {
		s.metrics.IncFailure("in_flight")
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "checkout is already in progress")
	}
	defer func() {
		if err := s.locker.ReleaseLock(ctx, s.locker.CheckoutLockKey(userID.String())); err != nil && s.logg != nil {
			s.logg.Warn(ctx, "failed to release checkout lock")
		}
	}()

	session, err := s.load(ctx, userID)
	if err != nil {
		s.metrics.IncFailure("session")
		return nil, err
	}
	if session.ProcessingInFlight(time.Now(), submissionLockTTL) {
		s.metrics.IncFailure("in_flight")
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "checkout is already in progress")
	}

	current, err := s.carts.Get(ctx, userID)
	if err != nil {
		s.metrics.IncFailure("cart")
		return nil, err
	}

	if gate := evaluateGates(session, current); !gate.OK {
		s.metrics.IncFailure("validation")
		details := map[string]any{}
		if gate.Redirect != "" {
			details["redirect"] = gate.Redirect
		}
		return nil, pkgerrors.New(pkgerrors.CodeValidation, gate.Message).WithDetails(details)
	}

	session.MarkProcessing(time.Now())
	if _, err := s.save(ctx, userID, session); err != nil {
		s.metrics.IncFailure("session")
		return nil, err
	}

	intent, err := s.payments.CreateIntent(ctx, current.Totals.Total)
	if err != nil {
		return nil, s.abort(ctx, userID, session, started, "payment_intent", err)
	}

	confirmation, err := s.payments.Confirm(ctx, intent.ID, payments.PaymentMethodRef{
		Kind:  session.PaymentMethod.Kind,
		Token: session.PaymentMethod.Token,
	})
	if err != nil {
		return nil, s.abort(ctx, userID, session, started, "payment_confirm", err)
	}
	if !confirmation.Success {
		msg := strings.TrimSpace(confirmation.Message)
		if msg == "" {
			msg = "payment was not completed"
		}
		return nil, s.abort(ctx, userID, session, started, "payment_declined",
			pkgerrors.New(pkgerrors.CodePaymentDeclined, msg))
	}

	order, err := s.orders.CreateOrder(ctx, buildOrderRequest(session, current, intent.ID, confirmation.TransactionID))
	if err != nil {
		return nil, s.abort(ctx, userID, session, started, "order_create", err)
	}

	// Cart clearing strictly follows successful order creation.
	if _, err := s.carts.Clear(ctx, userID); err != nil && s.logg != nil {
		s.logg.Error(ctx, "failed to clear cart after order creation", err)
	}

	session.CompletedOrder = order
	session.ClearProcessing()
	session.CurrentStep = StepConfirmation
	if _, err := s.save(ctx, userID, session); err != nil && s.logg != nil {
		s.logg.Error(ctx, "failed to persist completed checkout session", err)
	}

	s.metrics.IncSuccess()
	s.metrics.ObserveDuration("success", time.Since(started))
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "order_id", order.ID), "checkout completed")
	}

	return &SubmitResult{
		Order:      order,
		RedirectTo: fmt.Sprintf("/orders/%s/confirmation", order.ID),
	}, nil
}

// abort clears the processing flag, records the failure, and hands back an
// error the transport layer can surface. Nothing downstream of the failure has
// happened: the order is never partially created and the cart is untouched.
// If the clearing save itself fails, the persisted flag expires via its
// timestamp rather than wedging the session.
func (s *service) abort(ctx context.Context, userID uuid.UUID, session *Session, started time.Time, reason string, cause error) error {
	session.ClearProcessing()
	if _, err := s.save(ctx, userID, session); err != nil && s.logg != nil {
		s.logg.Error(ctx, "failed to clear processing flag", err)
	}

	s.metrics.IncFailure(reason)
	s.metrics.ObserveDuration("failure", time.Since(started))
	if s.logg != nil {
		s.logg.Error(s.logg.WithField(ctx, "reason", reason), "checkout submission failed", cause)
	}

	if typed := pkgerrors.As(cause); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, cause, "checkout failed")
}

func buildOrderRequest(session *Session, current *cart.Cart, intentID, transactionID string) orderapi.CreateOrderRequest {
	items := make([]orderapi.OrderItem, 0, len(current.Items))
	for _, item := range current.Items {
		items = append(items, orderapi.OrderItem{
			ProductID: item.Product.ID,
			Name:      item.Product.Name,
			Size:      item.Size,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice(),
		})
	}

	return orderapi.CreateOrderRequest{
		Items:                items,
		ShippingAddress:      *session.ShippingAddress,
		BillingAddress:       *session.BillingAddress,
		ShippingMethod:       session.ShippingMethod,
		PaymentMethod:        *session.PaymentMethod,
		UseShippingAsBilling: session.UseShippingAsBilling,
		Notes:                session.OrderNotes,
		PaymentIntentID:      intentID,
		TransactionID:        transactionID,
		Subtotal:             current.Totals.Subtotal,
		Tax:                  current.Totals.Tax,
		Shipping:             current.Totals.Shipping,
		Discount:             current.Totals.Discount,
		Total:                current.Totals.Total,
	}
}

func (s *service) load(ctx context.Context, userID uuid.UUID) (*Session, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	session, err := s.sessions.Load(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkout session")
	}
	if session == nil {
		return NewSession(), nil
	}
	return session, nil
}

func (s *service) save(ctx context.Context, userID uuid.UUID, session *Session) (*Session, error) {
	if err := s.sessions.Save(ctx, userID, session); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save checkout session")
	}
	return session, nil
}

func (s *service) mutate(ctx context.Context, userID uuid.UUID, apply func(*Session)) (*Session, error) {
	session, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	apply(session)
	return s.save(ctx, userID, session)
}

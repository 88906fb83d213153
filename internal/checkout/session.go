package checkout

import (
	"strings"
	"time"

	"github.com/avendano-dev/storefront-backend/pkg/orderapi"
	"github.com/avendano-dev/storefront-backend/pkg/types"
)

// Checkout steps, in walk order. Step 4 is complete only once an order exists.
const (
	StepAddress      = 1
	StepShipping     = 2
	StepPayment      = 3
	StepConfirmation = 4
)

// Session is the transient state of one purchase attempt.
type Session struct {
	CurrentStep          int                  `json:"current_step"`
	ShippingAddress      *types.Address       `json:"shipping_address,omitempty"`
	BillingAddress       *types.Address       `json:"billing_address,omitempty"`
	UseShippingAsBilling bool                 `json:"use_shipping_as_billing"`
	ShippingMethod       string               `json:"shipping_method,omitempty"`
	PaymentMethod        *types.PaymentMethod `json:"payment_method,omitempty"`
	OrderNotes           string               `json:"order_notes,omitempty"`
	IsProcessing         bool                 `json:"is_processing"`
	ProcessingAt         *time.Time           `json:"processing_at,omitempty"`
	CompletedOrder       *orderapi.Order      `json:"completed_order,omitempty"`
}

// NewSession returns a session at step 1 with billing mirrored from shipping.
func NewSession() *Session {
	return &Session{
		CurrentStep:          StepAddress,
		UseShippingAsBilling: true,
	}
}

// Next advances one step, clamped at the confirmation step.
func (s *Session) Next() {
	if s.CurrentStep < StepConfirmation {
		s.CurrentStep++
	}
}

// Previous steps back, clamped at the first step.
func (s *Session) Previous() {
	if s.CurrentStep > StepAddress {
		s.CurrentStep--
	}
}

// GoTo jumps to the given step unconditionally; out-of-range values clamp.
// Forward gating is advisory via StepComplete/CanProceed, not enforced here.
func (s *Session) GoTo(step int) {
	if step < StepAddress {
		step = StepAddress
	}
	if step > StepConfirmation {
		step = StepConfirmation
	}
	s.CurrentStep = step
}

// SetShippingAddress stores the address and keeps billing mirrored while the
// use-shipping-as-billing flag is on.
func (s *Session) SetShippingAddress(addr types.Address) {
	normalized := addr.Normalized()
	s.ShippingAddress = &normalized
	if s.UseShippingAsBilling {
		mirrored := normalized
		s.BillingAddress = &mirrored
	}
}

// SetBillingAddress stores a distinct billing address. It only has effect
// while the mirror flag is off; otherwise billing stays synced to shipping.
func (s *Session) SetBillingAddress(addr types.Address) {
	if s.UseShippingAsBilling {
		return
	}
	normalized := addr.Normalized()
	s.BillingAddress = &normalized
}

// ToggleUseShippingAsBilling flips the mirror flag. Turning it on immediately
// re-mirrors the current shipping address into billing.
func (s *Session) ToggleUseShippingAsBilling() {
	s.UseShippingAsBilling = !s.UseShippingAsBilling
	if s.UseShippingAsBilling && s.ShippingAddress != nil {
		mirrored := *s.ShippingAddress
		s.BillingAddress = &mirrored
	}
}

// MarkProcessing raises the in-flight flag and stamps it with now.
func (s *Session) MarkProcessing(now time.Time) {
	s.IsProcessing = true
	s.ProcessingAt = &now
}

// ClearProcessing drops the in-flight flag and its timestamp.
func (s *Session) ClearProcessing() {
	s.IsProcessing = false
	s.ProcessingAt = nil
}

// ProcessingInFlight reports whether a marked submission is still live at now.
// Flags older than the window, or missing a timestamp, are treated as stale
// leftovers from a submission that failed to clean up and do not block.
func (s *Session) ProcessingInFlight(now time.Time, window time.Duration) bool {
	if !s.IsProcessing || s.ProcessingAt == nil {
		return false
	}
	return now.Sub(*s.ProcessingAt) < window
}

// StepComplete reports whether the given step's requirement is met.
func (s *Session) StepComplete(step int) bool {
	switch step {
	case StepAddress:
		return s.ShippingAddress != nil && !s.ShippingAddress.IsZero()
	case StepShipping:
		return strings.TrimSpace(s.ShippingMethod) != ""
	case StepPayment:
		return s.PaymentMethod != nil && !s.PaymentMethod.IsZero()
	case StepConfirmation:
		return s.CompletedOrder != nil
	default:
		return false
	}
}

// CanProceed reports whether the current step's requirement is met.
func (s *Session) CanProceed() bool {
	return s.StepComplete(s.CurrentStep)
}

// Reset returns every field to its initial value.
func (s *Session) Reset() {
	*s = *NewSession()
}

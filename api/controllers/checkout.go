package controllers

import (
	"net/http"

	"github.com/avendano-dev/storefront-backend/api/responses"
	"github.com/avendano-dev/storefront-backend/api/validators"
	checkoutsvc "github.com/avendano-dev/storefront-backend/internal/checkout"
	pkgerrors "github.com/avendano-dev/storefront-backend/pkg/errors"
	"github.com/avendano-dev/storefront-backend/pkg/logger"
	"github.com/avendano-dev/storefront-backend/pkg/types"
)

type shippingMethodRequest struct {
	Method string `json:"method" validate:"required"`
}

type orderNotesRequest struct {
	Notes string `json:"notes"`
}

type goToStepRequest struct {
	Step int `json:"step" validate:"required,min=1,max=4"`
}

// sessionHandler wraps the common fetch-user, run, respond shape shared by the
// step and field mutations.
func sessionHandler(logg *logger.Logger, run func(r *http.Request) (*checkoutsvc.Session, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := run(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}

// CheckoutFetch returns the current checkout session, a fresh one when absent.
func CheckoutFetch(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return sessionHandler(logg, func(r *http.Request) (*checkoutsvc.Session, error) {
		if svc == nil {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable")
		}
		userID, err := userIDFromContext(r)
		if err != nil {
			return nil, err
		}
		return svc.Get(r.Context(), userID)
	})
}

// CheckoutReset discards the session and starts over at step one.
func CheckoutReset(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return sessionHandler(logg, func(r *http.Request) (*checkoutsvc.Session, error) {
		if svc == nil {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable")
		}
		userID, err := userIDFromContext(r)
		if err != nil {
			return nil, err
		}
		return svc.Reset(r.Context(), userID)
	})
}

// CheckoutShippingAddress stores the shipping address, mirroring to billing
// while the sync flag is on.
func CheckoutShippingAddress(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return sessionHandler(logg, func(r *http.Request) (*checkoutsvc.Session, error) {
		if svc == nil {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable")
		}
		userID, err := userIDFromContext(r)
		if err != nil {
			return nil, err
		}
		var payload types.Address
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return svc.UpdateShippingAddress(r.Context(), userID, payload)
	})
}

// CheckoutBillingAddress stores a distinct billing address.
func CheckoutBillingAddress(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return sessionHandler(logg, func(r *http.Request) (*checkoutsvc.Session, error) {
		if svc == nil {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable")
		}
		userID, err := userIDFromContext(r)
		if err != nil {
			return nil, err
		}
		var payload types.Address
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return svc.UpdateBillingAddress(r.Context(), userID, payload)
	})
}

// CheckoutBillingSync toggles the use-shipping-as-billing flag.
func CheckoutBillingSync(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return sessionHandler(logg, func(r *http.Request) (*checkoutsvc.Session, error) {
		if svc == nil {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable")
		}
		userID, err := userIDFromContext(r)
		if err != nil {
			return nil, err
		}
		return svc.ToggleUseShippingAsBilling(r.Context(), userID)
	})
}

// CheckoutShippingMethod selects the delivery option for step two.
func CheckoutShippingMethod(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return sessionHandler(logg, func(r *http.Request) (*checkoutsvc.Session, error) {
		if svc == nil {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable")
		}
		userID, err := userIDFromContext(r)
		if err != nil {
			return nil, err
		}
		var payload shippingMethodRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return svc.SelectShippingMethod(r.Context(), userID, payload.Method)
	})
}

// CheckoutPaymentMethod records the tokenized payment credential for step three.
func CheckoutPaymentMethod(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return sessionHandler(logg, func(r *http.Request) (*checkoutsvc.Session, error) {
		if svc == nil {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable")
		}
		userID, err := userIDFromContext(r)
		if err != nil {
			return nil, err
		}
		var payload types.PaymentMethod
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return svc.SelectPaymentMethod(r.Context(), userID, payload)
	})
}

// CheckoutNotes attaches free-form order notes.
func CheckoutNotes(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return sessionHandler(logg, func(r *http.Request) (*checkoutsvc.Session, error) {
		if svc == nil {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable")
		}
		userID, err := userIDFromContext(r)
		if err != nil {
			return nil, err
		}
		var payload orderNotesRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return svc.SetOrderNotes(r.Context(), userID, payload.Notes)
	})
}

// CheckoutNextStep advances the walk one step.
func CheckoutNextStep(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return sessionHandler(logg, func(r *http.Request) (*checkoutsvc.Session, error) {
		if svc == nil {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable")
		}
		userID, err := userIDFromContext(r)
		if err != nil {
			return nil, err
		}
		return svc.NextStep(r.Context(), userID)
	})
}

// CheckoutPreviousStep steps the walk back.
func CheckoutPreviousStep(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return sessionHandler(logg, func(r *http.Request) (*checkoutsvc.Session, error) {
		if svc == nil {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable")
		}
		userID, err := userIDFromContext(r)
		if err != nil {
			return nil, err
		}
		return svc.PreviousStep(r.Context(), userID)
	})
}

// CheckoutGoToStep jumps directly to a step.
func CheckoutGoToStep(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return sessionHandler(logg, func(r *http.Request) (*checkoutsvc.Session, error) {
		if svc == nil {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable")
		}
		userID, err := userIDFromContext(r)
		if err != nil {
			return nil, err
		}
		var payload goToStepRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return svc.GoToStep(r.Context(), userID, payload.Step)
	})
}

// CheckoutLoadDefaults seeds the session from the shopper's saved default address.
func CheckoutLoadDefaults(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return sessionHandler(logg, func(r *http.Request) (*checkoutsvc.Session, error) {
		if svc == nil {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable")
		}
		userID, err := userIDFromContext(r)
		if err != nil {
			return nil, err
		}
		return svc.LoadDefaultAddresses(r.Context(), userID)
	})
}

// CheckoutValidate runs the pre-submission gates without mutating anything.
func CheckoutValidate(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := userIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		gate, err := svc.Validate(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, gate)
	}
}

// CheckoutSubmit executes the guarded submission sequence.
func CheckoutSubmit(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := userIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Process(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

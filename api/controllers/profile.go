package controllers

import (
	"net/http"

	"github.com/avendano-dev/storefront-backend/api/responses"
	"github.com/avendano-dev/storefront-backend/api/validators"
	"github.com/avendano-dev/storefront-backend/internal/users"
	pkgerrors "github.com/avendano-dev/storefront-backend/pkg/errors"
	"github.com/avendano-dev/storefront-backend/pkg/logger"
	"github.com/avendano-dev/storefront-backend/pkg/types"
)

type profileRequest struct {
	Email     string                `json:"email,omitempty" validate:"omitempty,email"`
	Addresses []savedAddressPayload `json:"addresses,omitempty" validate:"dive"`
}

type savedAddressPayload struct {
	Label     string        `json:"label,omitempty"`
	Address   types.Address `json:"address" validate:"required"`
	IsDefault bool          `json:"is_default"`
}

// ProfileFetch returns the shopper's saved profile, empty when none exists.
func ProfileFetch(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "profile service unavailable"))
			return
		}

		userID, err := userIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, err := svc.Get(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, profile)
	}
}

// ProfileUpdate replaces the shopper's stored profile.
func ProfileUpdate(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "profile service unavailable"))
			return
		}

		userID, err := userIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload profileRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		addresses := make([]users.SavedAddress, 0, len(payload.Addresses))
		for _, saved := range payload.Addresses {
			addresses = append(addresses, users.SavedAddress{
				Label:     saved.Label,
				Address:   saved.Address,
				IsDefault: saved.IsDefault,
			})
		}

		profile, err := svc.Save(r.Context(), userID, users.Profile{
			Email:     payload.Email,
			Addresses: addresses,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, profile)
	}
}

package cart

import (
	"context"
	"fmt"
	"strings"

	"github.com/avendano-dev/storefront-backend/pkg/config"
	pkgerrors "github.com/avendano-dev/storefront-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service exposes the cart operations. Every mutation loads the stored
// snapshot, applies the change, fully recomputes totals, and saves the result
// back, so derived fields can never drift from the items.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*Cart, error)
	AddItem(ctx context.Context, userID uuid.UUID, product Product, size string, qty int) (*Cart, error)
	RemoveItem(ctx context.Context, userID uuid.UUID, productID, size string) (*Cart, error)
	UpdateQuantity(ctx context.Context, userID uuid.UUID, productID, size string, qty int) (*Cart, error)
	SetShippingCost(ctx context.Context, userID uuid.UUID, cost decimal.Decimal) (*Cart, error)
	ApplyDiscount(ctx context.Context, userID uuid.UUID, code string, amount decimal.Decimal) (*Cart, error)
	RemoveDiscount(ctx context.Context, userID uuid.UUID) (*Cart, error)
	Clear(ctx context.Context, userID uuid.UUID) (*Cart, error)
}

type service struct {
	store Store
	rules Rules
}

// NewService builds a cart service backed by the provided snapshot store.
func NewService(store Store, cfg config.CartConfig) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if cfg.MaxQuantity < 1 {
		return nil, fmt.Errorf("cart max quantity must be at least 1")
	}
	return &service{
		store: store,
		rules: Rules{
			MaxQuantity:           cfg.MaxQuantity,
			TaxRate:               cfg.TaxRate,
			FreeShippingThreshold: cfg.FreeShippingThreshold,
		},
	}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	return s.load(ctx, userID)
}

func (s *service) AddItem(ctx context.Context, userID uuid.UUID, product Product, size string, qty int) (*Cart, error) {
	if strings.TrimSpace(product.ID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if product.BasePrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product price cannot be negative")
	}
	return s.mutate(ctx, userID, func(c *Cart) {
		c.AddItem(s.rules, product, size, qty)
	})
}

func (s *service) RemoveItem(ctx context.Context, userID uuid.UUID, productID, size string) (*Cart, error) {
	return s.mutate(ctx, userID, func(c *Cart) {
		c.RemoveItem(s.rules, productID, size)
	})
}

func (s *service) UpdateQuantity(ctx context.Context, userID uuid.UUID, productID, size string, qty int) (*Cart, error) {
	return s.mutate(ctx, userID, func(c *Cart) {
		c.UpdateQuantity(s.rules, productID, size, qty)
	})
}

func (s *service) SetShippingCost(ctx context.Context, userID uuid.UUID, cost decimal.Decimal) (*Cart, error) {
	return s.mutate(ctx, userID, func(c *Cart) {
		c.SetShippingCost(s.rules, cost)
	})
}

func (s *service) ApplyDiscount(ctx context.Context, userID uuid.UUID, code string, amount decimal.Decimal) (*Cart, error) {
	if strings.TrimSpace(code) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount code is required")
	}
	return s.mutate(ctx, userID, func(c *Cart) {
		c.ApplyDiscount(s.rules, code, amount)
	})
}

func (s *service) RemoveDiscount(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	return s.mutate(ctx, userID, func(c *Cart) {
		c.RemoveDiscount(s.rules)
	})
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if err := s.store.Delete(ctx, userID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return NewCart(s.rules), nil
}

func (s *service) load(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	cart, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if cart == nil {
		return NewCart(s.rules), nil
	}
	// Rehydrated snapshots are re-derived under the current rules rather than
	// trusted as stored.
	cart.recompute(s.rules)
	return cart, nil
}

func (s *service) mutate(ctx context.Context, userID uuid.UUID, apply func(*Cart)) (*Cart, error) {
	cart, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	apply(cart)
	if err := s.store.Save(ctx, userID, cart); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	return cart, nil
}

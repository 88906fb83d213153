package users

import "github.com/avendano-dev/storefront-backend/pkg/types"

// SavedAddress is one entry in a shopper's address book.
type SavedAddress struct {
	Label     string        `json:"label,omitempty"`
	Address   types.Address `json:"address"`
	IsDefault bool          `json:"is_default"`
}

// Profile is the persisted shopper record consumed by the checkout flow.
type Profile struct {
	UserID    string         `json:"user_id"`
	Email     string         `json:"email,omitempty"`
	Addresses []SavedAddress `json:"addresses,omitempty"`
}

// DefaultAddress returns the default-flagged saved address, falling back to
// the first entry. The second return is false when the book is empty.
func (p *Profile) DefaultAddress() (types.Address, bool) {
	if p == nil || len(p.Addresses) == 0 {
		return types.Address{}, false
	}
	for _, saved := range p.Addresses {
		if saved.IsDefault {
			return saved.Address, true
		}
	}
	return p.Addresses[0].Address, true
}

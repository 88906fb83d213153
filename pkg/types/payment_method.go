package types

import "strings"

// PaymentMethod references a tokenized payment credential held by the payment
// service. The raw card data never transits this system.
type PaymentMethod struct {
	Kind      string `json:"kind"`
	Token     string `json:"token"`
	Brand     string `json:"brand,omitempty"`
	LastFour  string `json:"last_four,omitempty"`
	ExpiryMon int    `json:"expiry_month,omitempty"`
	ExpiryYr  int    `json:"expiry_year,omitempty"`
}

// IsZero reports whether the reference carries no usable token.
func (p PaymentMethod) IsZero() bool {
	return strings.TrimSpace(p.Token) == ""
}

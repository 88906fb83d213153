package types

import "strings"

// Address is the structured postal address exchanged with collaborators and
// persisted inside cart/checkout snapshots.
type Address struct {
	FirstName  string  `json:"first_name,omitempty"`
	LastName   string  `json:"last_name,omitempty"`
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country"`
	Phone      string  `json:"phone,omitempty"`
}

// IsZero reports whether no meaningful field is populated.
func (a Address) IsZero() bool {
	return strings.TrimSpace(a.Line1) == "" &&
		strings.TrimSpace(a.City) == "" &&
		strings.TrimSpace(a.PostalCode) == ""
}

// Normalized trims whitespace and defaults the country to US.
func (a Address) Normalized() Address {
	out := a
	out.FirstName = strings.TrimSpace(a.FirstName)
	out.LastName = strings.TrimSpace(a.LastName)
	out.Line1 = strings.TrimSpace(a.Line1)
	out.City = strings.TrimSpace(a.City)
	out.State = strings.ToUpper(strings.TrimSpace(a.State))
	out.PostalCode = strings.TrimSpace(a.PostalCode)
	out.Country = strings.ToUpper(strings.TrimSpace(a.Country))
	if out.Country == "" {
		out.Country = "US"
	}
	if a.Line2 != nil {
		trimmed := strings.TrimSpace(*a.Line2)
		if trimmed == "" {
			out.Line2 = nil
		} else {
			out.Line2 = &trimmed
		}
	}
	return out
}

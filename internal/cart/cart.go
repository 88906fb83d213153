package cart

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Product is the priced snapshot of a catalog item captured at add time.
type Product struct {
	ID         string                     `json:"id"`
	Name       string                     `json:"name"`
	BasePrice  decimal.Decimal            `json:"base_price"`
	SizePrices map[string]decimal.Decimal `json:"size_prices,omitempty"`
	ImageURL   string                     `json:"image_url,omitempty"`
}

// EffectivePrice returns the size-specific override for the selected size,
// falling back to the base price.
func (p Product) EffectivePrice(size string) decimal.Decimal {
	if p.SizePrices != nil {
		if price, ok := p.SizePrices[size]; ok {
			return price
		}
	}
	return p.BasePrice
}

// LineItem is one product+size selection with its quantity. The (ProductID,
// Size) pair is the uniqueness key within a cart.
type LineItem struct {
	Product  Product `json:"product"`
	Size     string  `json:"size"`
	Quantity int     `json:"quantity"`
}

// UnitPrice is the line's effective per-unit price.
func (li LineItem) UnitPrice() decimal.Decimal {
	return li.Product.EffectivePrice(li.Size)
}

// Totals holds the derived monetary fields, fully recomputed on every mutation.
type Totals struct {
	TotalItems int             `json:"total_items"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Tax        decimal.Decimal `json:"tax"`
	Shipping   decimal.Decimal `json:"shipping"`
	Discount   decimal.Decimal `json:"discount"`
	Total      decimal.Decimal `json:"total"`
}

// Rules are the pricing constants applied during recomputation.
type Rules struct {
	MaxQuantity           int
	TaxRate               decimal.Decimal
	FreeShippingThreshold decimal.Decimal
}

// Cart is an ordered sequence of line items plus shipping/discount state and
// the derived totals.
type Cart struct {
	Items          []LineItem      `json:"items"`
	ShippingCost   decimal.Decimal `json:"shipping_cost"`
	DiscountCode   string          `json:"discount_code,omitempty"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Totals         Totals          `json:"totals"`
}

// NewCart returns an empty cart with totals derived under the given rules.
func NewCart(rules Rules) *Cart {
	c := &Cart{Items: []LineItem{}}
	c.recompute(rules)
	return c
}

// AddItem merges into an existing line for the same (productID, size) pair or
// appends a new one. Quantities are clamped to [1, MaxQuantity].
func (c *Cart) AddItem(rules Rules, product Product, size string, qty int) {
	if qty < 1 {
		qty = 1
	}
	for i := range c.Items {
		if c.Items[i].matches(product.ID, size) {
			c.Items[i].Quantity = clampQty(c.Items[i].Quantity+qty, rules.MaxQuantity)
			c.recompute(rules)
			return
		}
	}
	c.Items = append(c.Items, LineItem{
		Product:  product,
		Size:     size,
		Quantity: clampQty(qty, rules.MaxQuantity),
	})
	c.recompute(rules)
}

// RemoveItem deletes the matching line. Absent items are a no-op.
func (c *Cart) RemoveItem(rules Rules, productID, size string) {
	for i := range c.Items {
		if c.Items[i].matches(productID, size) {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			break
		}
	}
	c.recompute(rules)
}

// UpdateQuantity sets the line's quantity, clamped to MaxQuantity. A quantity
// of zero or below removes the line instead. Absent items are a no-op.
func (c *Cart) UpdateQuantity(rules Rules, productID, size string, qty int) {
	if qty <= 0 {
		c.RemoveItem(rules, productID, size)
		return
	}
	for i := range c.Items {
		if c.Items[i].matches(productID, size) {
			c.Items[i].Quantity = clampQty(qty, rules.MaxQuantity)
			break
		}
	}
	c.recompute(rules)
}

// SetShippingCost stores the raw shipping quote. The free-shipping override is
// applied during recomputation, never to the stored value.
func (c *Cart) SetShippingCost(rules Rules, cost decimal.Decimal) {
	if cost.IsNegative() {
		cost = decimal.Zero
	}
	c.ShippingCost = cost
	c.recompute(rules)
}

// ApplyDiscount records an absolute discount amount, floored at zero.
func (c *Cart) ApplyDiscount(rules Rules, code string, amount decimal.Decimal) {
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	c.DiscountCode = strings.TrimSpace(code)
	c.DiscountAmount = amount
	c.recompute(rules)
}

// RemoveDiscount clears the discount state.
func (c *Cart) RemoveDiscount(rules Rules) {
	c.DiscountCode = ""
	c.DiscountAmount = decimal.Zero
	c.recompute(rules)
}

// Clear resets the cart to empty and shipping/discount state to defaults.
func (c *Cart) Clear(rules Rules) {
	c.Items = []LineItem{}
	c.ShippingCost = decimal.Zero
	c.DiscountCode = ""
	c.DiscountAmount = decimal.Zero
	c.recompute(rules)
}

// ItemQuantity returns the quantity for the matching line, zero when absent.
func (c *Cart) ItemQuantity(productID, size string) int {
	for i := range c.Items {
		if c.Items[i].matches(productID, size) {
			return c.Items[i].Quantity
		}
	}
	return 0
}

// Contains reports whether a line exists for the (productID, size) pair.
func (c *Cart) Contains(productID, size string) bool {
	return c.ItemQuantity(productID, size) > 0
}

// IsEmpty reports whether the cart holds no items.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// recompute derives every total from scratch. The order is fixed: item count,
// subtotal, tax, shipping override, then the floored grand total.
func (c *Cart) recompute(rules Rules) {
	totalItems := 0
	subtotal := decimal.Zero
	for i := range c.Items {
		totalItems += c.Items[i].Quantity
		lineTotal := c.Items[i].UnitPrice().Mul(decimal.NewFromInt(int64(c.Items[i].Quantity)))
		subtotal = subtotal.Add(lineTotal)
	}

	tax := subtotal.Mul(rules.TaxRate).Round(2)

	shipping := c.ShippingCost
	if subtotal.GreaterThanOrEqual(rules.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	discount := c.DiscountAmount
	if discount.IsNegative() {
		discount = decimal.Zero
	}

	total := subtotal.Add(tax).Add(shipping).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	c.Totals = Totals{
		TotalItems: totalItems,
		Subtotal:   subtotal,
		Tax:        tax,
		Shipping:   shipping,
		Discount:   discount,
		Total:      total,
	}
}

func (li LineItem) matches(productID, size string) bool {
	return li.Product.ID == productID && li.Size == size
}

func clampQty(qty, max int) int {
	if max > 0 && qty > max {
		return max
	}
	if qty < 1 {
		return 1
	}
	return qty
}

package cart

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"barakapos/backend/internal/domain"
	"barakapos/backend/internal/store"
)

var hundred = decimal.NewFromInt(100)

// Cart is a single session's list of product snapshots. It is not safe for
// concurrent use; callers serialize access per session.
type Cart struct {
	items []domain.CartItem
}

type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

func New() *Cart {
	return &Cart{}
}

// Add puts one unit of the live product in the cart. It reports whether
// the cart changed: out-of-stock products and increments past live stock
// are silently ignored.
func (c *Cart) Add(live domain.Product) bool {
	if live.Quantity <= 0 {
		return false
	}
	for i := range c.items {
		if c.items[i].Product.ID != live.ID {
			continue
		}
		if c.items[i].Quantity+1 > live.Quantity {
			return false
		}
		c.items[i].Quantity++
		c.items[i].Product = live
		return true
	}
	c.items = append(c.items, domain.CartItem{Product: live, Quantity: 1})
	return true
}

// SetQuantity removes the line when qty <= 0, otherwise clamps qty to the
// live stock. Unknown lines are left alone.
func (c *Cart) SetQuantity(productID string, qty int, liveQuantity int) {
	if qty <= 0 {
		c.Remove(productID)
		return
	}
	for i := range c.items {
		if c.items[i].Product.ID != productID {
			continue
		}
		if qty > liveQuantity {
			qty = liveQuantity
		}
		if qty <= 0 {
			c.items = slices.Delete(c.items, i, i+1)
			return
		}
		c.items[i].Quantity = qty
		return
	}
}

func (c *Cart) Remove(productID string) {
	c.items = slices.DeleteFunc(c.items, func(item domain.CartItem) bool {
		return item.Product.ID == productID
	})
}

func (c *Cart) Clear() {
	c.items = nil
}

func (c *Cart) Len() int {
	return len(c.items)
}

func (c *Cart) Has(productID string) bool {
	for _, item := range c.items {
		if item.Product.ID == productID {
			return true
		}
	}
	return false
}

// Items returns a value copy of the lines.
func (c *Cart) Items() []domain.CartItem {
	items := make([]domain.CartItem, len(c.items))
	for i, item := range c.items {
		items[i] = item
		if item.Product.ExpiryDate != nil {
			expiry := *item.Product.ExpiryDate
			items[i].Product.ExpiryDate = &expiry
		}
	}
	return items
}

func (c *Cart) Subtotal() decimal.Decimal {
	return Subtotal(c.items)
}

// Totals prices the cart with taxRatePercent (14 means 14%) and a discount
// bounded by subtotal + tax.
func (c *Cart) Totals(taxRatePercent decimal.Decimal, discount decimal.Decimal) (Totals, error) {
	return Compute(c.items, taxRatePercent, discount)
}

func Subtotal(items []domain.CartItem) decimal.Decimal {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return subtotal
}

func Compute(items []domain.CartItem, taxRatePercent decimal.Decimal, discount decimal.Decimal) (Totals, error) {
	subtotal := Subtotal(items)
	tax := subtotal.Mul(taxRatePercent).Div(hundred)
	gross := subtotal.Add(tax)
	if discount.IsNegative() {
		return Totals{}, fmt.Errorf("%w: discount must not be negative", store.ErrValidation)
	}
	if discount.GreaterThan(gross) {
		return Totals{}, fmt.Errorf("%w: discount %s exceeds %s", store.ErrValidation, discount, gross)
	}
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Discount: discount,
		Total:    gross.Sub(discount),
	}, nil
}

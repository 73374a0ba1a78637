package cart

import (
	"errors"

	"github.com/orderhub/backend-oms/internal/pricing"
)

// ErrDuplicate reports an attempt to add a product that is already in the
// cart. It is an informational notice, not a failure: the cart is unchanged
// and callers surface it as a toast, never as an error response.
var ErrDuplicate = errors.New("cart: product already in cart")

// Product is the catalogue data denormalised onto a line at insertion time.
type Product struct {
	ID         string
	Name       string
	Brand      string
	Rate       float64
	TaxPercent float64
	Stock      int
}

// Line is one product-quantity pair within an in-progress order.
type Line struct {
	Product
	Quantity int
}

// Cart holds the mutable line set for a single order session. Lines are
// keyed by product id and kept in insertion order. The engine performs no
// locking: callers serialise mutations themselves.
type Cart struct {
	cfg   pricing.Config
	lines []Line
	index map[string]int
}

// New creates an empty cart bound to a customer's margin configuration.
func New(cfg pricing.Config) *Cart {
	return &Cart{cfg: cfg, index: make(map[string]int)}
}

// Load creates a cart pre-populated with existing lines, preserving their
// order. Quantities are clamped the same way Add clamps them.
func Load(cfg pricing.Config, lines []Line) *Cart {
	c := New(cfg)
	for _, ln := range lines {
		if _, ok := c.index[ln.ID]; ok {
			continue
		}
		ln.Quantity = clampQty(ln.Quantity, ln.Stock)
		c.index[ln.ID] = len(c.lines)
		c.lines = append(c.lines, ln)
	}
	return c
}

// Config returns the margin configuration the cart prices against.
func (c *Cart) Config() pricing.Config { return c.cfg }

// Add appends a new line for the product with the quantity clamped to
// [1, stock]. Adding a product already present leaves the cart untouched
// and returns ErrDuplicate.
func (c *Cart) Add(p Product, qty int) error {
	if _, ok := c.index[p.ID]; ok {
		return ErrDuplicate
	}
	c.index[p.ID] = len(c.lines)
	c.lines = append(c.lines, Line{Product: p, Quantity: clampQty(qty, p.Stock)})
	return nil
}

// Remove deletes the line for the product. Removing an absent product is a
// no-op.
func (c *Cart) Remove(productID string) {
	pos, ok := c.index[productID]
	if !ok {
		return
	}
	c.lines = append(c.lines[:pos], c.lines[pos+1:]...)
	delete(c.index, productID)
	for i := pos; i < len(c.lines); i++ {
		c.index[c.lines[i].ID] = i
	}
}

// SetQuantity updates the line quantity, clamped to [1, stock] for that
// line's stock. It reports whether the product was present.
func (c *Cart) SetQuantity(productID string, qty int) bool {
	pos, ok := c.index[productID]
	if !ok {
		return false
	}
	c.lines[pos].Quantity = clampQty(qty, c.lines[pos].Stock)
	return true
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.lines = nil
	c.index = make(map[string]int)
}

// Len returns the number of lines.
func (c *Cart) Len() int { return len(c.lines) }

// Lines returns a copy of the current line set in insertion order.
func (c *Cart) Lines() []Line {
	return append([]Line(nil), c.lines...)
}

// Totals recomputes order totals as a pure fold over the complete current
// line set. Totals are never patched incrementally.
func (c *Cart) Totals() pricing.Totals {
	items := make([]pricing.Item, 0, len(c.lines))
	for _, ln := range c.lines {
		items = append(items, pricing.Item{
			ProductID:  ln.ID,
			Rate:       ln.Rate,
			TaxPercent: ln.TaxPercent,
			Quantity:   ln.Quantity,
		})
	}
	return pricing.ComputeTotals(items, c.cfg)
}

// clampQty bounds a requested quantity to [1, stock]. A non-positive stock
// leaves only the lower bound in effect.
func clampQty(qty, stock int) int {
	if stock > 0 && qty > stock {
		qty = stock
	}
	if qty < 1 {
		qty = 1
	}
	return qty
}

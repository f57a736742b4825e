// Package cart holds the in-memory shopping cart. A cart belongs to one
// browser session and lives only for that session, but two requests with
// the same session cookie can land in parallel, so every cart operation
// takes the cart's own lock.
package cart

import (
	"sync"

	"github.com/shopspring/decimal"
)

// Product is the slice of a catalog record the cart needs. Callers load the
// full record from the document store and hand the cart only this.
type Product struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// LineItem is one product in the cart. At most one line per product id.
type LineItem struct {
	ProductID string          `json:"product_id"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// Cart keeps line items in insertion order, indexed by product id.
type Cart struct {
	mu    sync.Mutex
	items []LineItem
	index map[string]int
}

func New() *Cart {
	return &Cart{index: make(map[string]int)}
}

// AddItem puts qty units of p into the cart. If the product is already
// present its quantity is incremented, it never produces a second line.
func (c *Cart) AddItem(p Product, qty int) error {
	if qty < 1 {
		return ErrInvalidInput
	}
	if p.ID == "" || p.UnitPrice.IsNegative() {
		return ErrInvalidInput
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if i, ok := c.index[p.ID]; ok {
		c.items[i].Quantity += qty
		return nil
	}

	c.index[p.ID] = len(c.items)
	c.items = append(c.items, LineItem{
		ProductID: p.ID,
		Title:     p.Title,
		UnitPrice: p.UnitPrice,
		Quantity:  qty,
	})
	return nil
}

// UpdateQuantity sets the quantity of a line exactly (not additive).
// qty <= 0 removes the line. Unknown product ids are ignored.
func (c *Cart) UpdateQuantity(productID string, qty int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.index[productID]
	if !ok {
		return
	}
	if qty <= 0 {
		c.remove(productID)
		return
	}
	c.items[i].Quantity = qty
}

// RemoveItem deletes the line if present. Removing an absent id is a no-op.
func (c *Cart) RemoveItem(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remove(productID)
}

// remove is RemoveItem without the lock, for callers that already hold it.
func (c *Cart) remove(productID string) {
	i, ok := c.index[productID]
	if !ok {
		return
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	delete(c.index, productID)
	for j := i; j < len(c.items); j++ {
		c.index[c.items[j].ProductID] = j
	}
}

// Total recomputes the sum over the current lines on every call. The total
// is never stored on the cart, so it cannot go stale.
func (c *Cart) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := decimal.Zero
	for _, it := range c.items {
		total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

// ItemCount is the sum of all quantities, shown on the cart badge.
func (c *Cart) ItemCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

// Items returns a copy of the lines in insertion order.
func (c *Cart) Items() []LineItem {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]LineItem, len(c.items))
	copy(out, c.items)
	return out
}

// Clear empties the cart. Called after a confirmed checkout.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	c.index = make(map[string]int)
}

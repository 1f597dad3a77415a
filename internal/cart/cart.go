// Package cart holds the in-memory line items of one in-progress
// invoice form. A cart is exclusively owned by its form view, created
// empty when the view initializes and cleared after submission.
package cart

import (
	"errors"
	"math"
)

var (
	// ErrNoProductSelected reports an add without a catalog selection,
	// including the "create new product" placeholder choice.
	ErrNoProductSelected = errors.New("no product selected")

	// ErrInvalidQuantity reports a quantity that is not a positive
	// finite number.
	ErrInvalidQuantity = errors.New("invalid quantity")
)

// CatalogEntry is the slice of a product the cart needs. The fields are
// copied at add time; later catalog price changes never touch lines
// already in the cart. An ID of zero or less is the sentinel for "no
// real product selected".
type CatalogEntry struct {
	ID    int64
	Name  string
	Price float64
}

// LineItem is one row of the cart. Name is a denormalized copy kept for
// rendering only. The subtotal is always derived, never stored.
type LineItem struct {
	ProductID int64
	Name      string
	Quantity  float64
	UnitPrice float64
}

// Subtotal returns quantity times the unit price frozen at add time.
func (li LineItem) Subtotal() float64 {
	return li.Quantity * li.UnitPrice
}

// Item is the wire shape the invoice-creation endpoint expects in its
// items array.
type Item struct {
	ProductID int64   `json:"productId"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

// Cart is an insertion-ordered sequence of line items. The zero value
// is usable; New exists so owning views hold an explicit reference.
type Cart struct {
	lines []LineItem
}

func New() *Cart {
	return &Cart{}
}

// AddItem validates the selection and quantity and appends a snapshot
// of the catalog entry. Adding the same product twice keeps two rows:
// an invoice may legitimately list one SKU at different quantities or
// prices.
func (c *Cart) AddItem(entry *CatalogEntry, quantity float64) error {
	if entry == nil || entry.ID <= 0 {
		return ErrNoProductSelected
	}
	if math.IsNaN(quantity) || math.IsInf(quantity, 0) || quantity <= 0 {
		return ErrInvalidQuantity
	}
	c.lines = append(c.lines, LineItem{
		ProductID: entry.ID,
		Name:      entry.Name,
		Quantity:  quantity,
		UnitPrice: entry.Price,
	})
	return nil
}

// RemoveItem deletes the line at index. Out-of-range indexes are a
// no-op: the UI may fire a stale index after a concurrent removal and
// that is tolerated rather than treated as an error.
func (c *Cart) RemoveItem(index int) {
	if index < 0 || index >= len(c.lines) {
		return
	}
	c.lines = append(c.lines[:index], c.lines[index+1:]...)
}

// Items returns the lines in submission shape. The slice is a copy;
// mutating it does not affect the cart.
func (c *Cart) Items() []Item {
	items := make([]Item, len(c.lines))
	for i, li := range c.lines {
		items[i] = Item{
			ProductID: li.ProductID,
			Quantity:  li.Quantity,
			UnitPrice: li.UnitPrice,
		}
	}
	return items
}

// Lines returns a copy of the full line items, product names included,
// for rendering the cart table.
func (c *Cart) Lines() []LineItem {
	return append([]LineItem(nil), c.lines...)
}

// Total recomputes the cart total on every call. There is no cached
// total to drift out of sync with the lines.
func (c *Cart) Total() float64 {
	var total float64
	for _, li := range c.lines {
		total += li.Subtotal()
	}
	return total
}

// Clear empties the cart. Idempotent; the cart stays usable for the
// next invoice.
func (c *Cart) Clear() {
	c.lines = nil
}

// Len returns the number of lines.
func (c *Cart) Len() int {
	return len(c.lines)
}

package cart

import (
	"sync"

	"KataSweetShop/internal/catalog"
)

// Item pairs a sweet snapshot with the quantity the shopper wants. The
// snapshot's Quantity is the last-known available stock, advisory only; the
// server re-checks at purchase time.
type Item struct {
	Sweet    catalog.Sweet `json:"sweet"`
	Quantity int64         `json:"quantity"`
}

// GSTPercent is the fixed surcharge applied at checkout.
const GSTPercent = 18

// Quote is the advisory checkout math over the current items.
type Quote struct {
	SubtotalCents int64 `json:"subtotal_cents"`
	GSTCents      int64 `json:"gst_cents"`
	TotalCents    int64 `json:"total_cents"`
}

// Cart is the per-browser aggregation of intended purchases. Ordered,
// single-writer, hydrated from Storage on construction and serialized back
// after every mutation.
type Cart struct {
	mu      sync.Mutex
	items   []Item
	storage Storage
}

func New(storage Storage) (*Cart, error) {
	items, err := storage.Load()
	if err != nil {
		return nil, err
	}
	return &Cart{items: items, storage: storage}, nil
}

// Add inserts the sweet or accumulates onto an existing line. The held
// quantity is clamped to the snapshot's available stock. A sold-out snapshot
// never creates a line; an existing line for it is dropped.
func (c *Cart) Add(sw catalog.Sweet, qty int64) error {
	if qty <= 0 {
		qty = 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i, it := range c.items {
		if it.Sweet.ID == sw.ID {
			held := clamp(it.Quantity+qty, sw.Quantity)
			if held <= 0 {
				c.items = append(c.items[:i], c.items[i+1:]...)
				return c.save()
			}
			c.items[i].Sweet = sw
			c.items[i].Quantity = held
			return c.save()
		}
	}

	held := clamp(qty, sw.Quantity)
	if held <= 0 {
		return nil
	}
	c.items = append(c.items, Item{Sweet: sw, Quantity: held})
	return c.save()
}

// UpdateQuantity sets the held quantity for a line. Zero or negative removes
// the line; anything else is clamped to the snapshot's available stock.
func (c *Cart) UpdateQuantity(sweetID string, qty int64) error {
	if qty <= 0 {
		return c.Remove(sweetID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i, it := range c.items {
		if it.Sweet.ID == sweetID {
			c.items[i].Quantity = clamp(qty, it.Sweet.Quantity)
			return c.save()
		}
	}
	return nil
}

// Remove deletes the line if present, no-op otherwise.
func (c *Cart) Remove(sweetID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, it := range c.items {
		if it.Sweet.ID == sweetID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return c.save()
		}
	}
	return nil
}

func (c *Cart) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = nil
	return c.save()
}

// Items returns a copy of the current lines in insertion order.
func (c *Cart) Items() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) TotalItems() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var n int64
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

func (c *Cart) TotalPriceCents() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return subtotal(c.items)
}

// Quote computes subtotal, GST and total without mutating the cart.
func (c *Cart) Quote() Quote {
	c.mu.Lock()
	defer c.mu.Unlock()
	return quoteOf(c.items)
}

// QuoteItems is Quote over an arbitrary line set, used for receipts covering
// only the lines that actually purchased.
func QuoteItems(items []Item) Quote {
	return quoteOf(items)
}

func quoteOf(items []Item) Quote {
	sub := subtotal(items)
	gst := sub * GSTPercent / 100
	return Quote{SubtotalCents: sub, GSTCents: gst, TotalCents: sub + gst}
}

func subtotal(items []Item) int64 {
	var sum int64
	for _, it := range items {
		sum += it.Sweet.PriceCents * it.Quantity
	}
	return sum
}

func clamp(qty, available int64) int64 {
	if qty > available {
		return available
	}
	return qty
}

// save serializes the current items. Callers hold c.mu.
func (c *Cart) save() error {
	return c.storage.Save(c.items)
}

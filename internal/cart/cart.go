// Package cart manages the shopping cart: one entry per product, quantities
// merged on add, persisted and broadcast after every change.
package cart

import (
	"context"
	"fmt"

	"bookself/internal/catalog"
	"bookself/internal/collection"
	"bookself/internal/storage"

	"go.uber.org/zap"
)

// CollectionName is the storage key of the cart.
const CollectionName = "cart"

// Entry is one product line of the cart.
type Entry struct {
	ProductID catalog.ProductID `json:"id"`
	Quantity  int               `json:"quantity"`
}

// Line is an entry resolved against the catalog.
type Line struct {
	Product   catalog.Product
	Quantity  int
	LineTotal int64
}

// Manager mutates the persisted cart. It holds no copy of the cart; every
// call reads the current persisted value first.
type Manager struct {
	catalog *catalog.Store
	coll    *collection.Collection[[]Entry]
	logger  *zap.Logger
}

// NewManager returns a cart manager over backend.
func NewManager(cat *catalog.Store, backend *storage.Backend, logger *zap.Logger, opts ...collection.Option) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = append([]collection.Option{collection.WithLogger(logger)}, opts...)
	return &Manager{
		catalog: cat,
		coll:    collection.New[[]Entry](CollectionName, backend, opts...),
		logger:  logger,
	}
}

// Add puts qty copies of id into the cart, merging with an existing entry.
// qty below 1 counts as 1. Stock is not checked.
func (m *Manager) Add(ctx context.Context, id catalog.ProductID, qty int) ([]Entry, error) {
	if qty < 1 {
		qty = 1
	}
	if _, err := m.catalog.Get(id); err != nil {
		return nil, err
	}

	change := collection.Change{Action: string(ActionAdd), Subject: id.String(), Quantity: qty}
	entries, err := m.coll.Mutate(ctx, change, func(cur []Entry) ([]Entry, bool, error) {
		next := clone(cur)
		if i := indexOf(next, id); i >= 0 {
			next[i].Quantity += qty
		} else {
			next = append(next, Entry{ProductID: id, Quantity: qty})
		}
		return next, true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("add to cart: %w", err)
	}

	m.logger.Info("added to cart",
		zap.Stringer("product_id", id),
		zap.Int("quantity", qty))
	return entries, nil
}

// Remove drops the entry for id. Removing an absent product is a no-op.
func (m *Manager) Remove(ctx context.Context, id catalog.ProductID) ([]Entry, error) {
	change := collection.Change{Action: string(ActionRemove), Subject: id.String()}
	entries, err := m.coll.Mutate(ctx, change, func(cur []Entry) ([]Entry, bool, error) {
		i := indexOf(cur, id)
		if i < 0 {
			return cur, false, nil
		}
		next := make([]Entry, 0, len(cur)-1)
		next = append(next, cur[:i]...)
		next = append(next, cur[i+1:]...)
		return next, true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("remove from cart: %w", err)
	}

	m.logger.Info("removed from cart", zap.Stringer("product_id", id))
	return entries, nil
}

// SetQuantity sets the quantity of an entry already in the cart. A quantity
// of zero or less removes the entry.
func (m *Manager) SetQuantity(ctx context.Context, id catalog.ProductID, qty int) ([]Entry, error) {
	if qty <= 0 {
		return m.Remove(ctx, id)
	}

	change := collection.Change{Action: string(ActionUpdate), Subject: id.String(), Quantity: qty}
	entries, err := m.coll.Mutate(ctx, change, func(cur []Entry) ([]Entry, bool, error) {
		i := indexOf(cur, id)
		if i < 0 || cur[i].Quantity == qty {
			return cur, false, nil
		}
		next := clone(cur)
		next[i].Quantity = qty
		return next, true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("update cart quantity: %w", err)
	}

	m.logger.Info("updated cart quantity",
		zap.Stringer("product_id", id),
		zap.Int("quantity", qty))
	return entries, nil
}

// Clear empties the cart, typically after checkout.
func (m *Manager) Clear(ctx context.Context) error {
	_, err := m.coll.Mutate(ctx, collection.Change{Action: string(ActionClear)}, func(cur []Entry) ([]Entry, bool, error) {
		return []Entry{}, len(cur) > 0, nil
	})
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// Entries returns the persisted cart.
func (m *Manager) Entries(ctx context.Context) ([]Entry, error) {
	entries, err := m.coll.Load(ctx)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

// Quantity returns how many copies of id are in the cart.
func (m *Manager) Quantity(ctx context.Context, id catalog.ProductID) (int, error) {
	entries, err := m.Entries(ctx)
	if err != nil {
		return 0, err
	}
	if i := indexOf(entries, id); i >= 0 {
		return entries[i].Quantity, nil
	}
	return 0, nil
}

// TotalItemCount sums the quantities in the cart.
func (m *Manager) TotalItemCount(ctx context.Context) (int, error) {
	entries, err := m.Entries(ctx)
	if err != nil {
		return 0, err
	}
	return ItemCount(entries), nil
}

// TotalValue prices the cart at current catalog prices.
func (m *Manager) TotalValue(ctx context.Context) (int64, error) {
	entries, err := m.Entries(ctx)
	if err != nil {
		return 0, err
	}
	return Value(m.catalog, entries), nil
}

// Lines resolves the cart against the catalog, skipping unknown products.
func (m *Manager) Lines(ctx context.Context) ([]Line, error) {
	entries, err := m.Entries(ctx)
	if err != nil {
		return nil, err
	}
	lines := make([]Line, 0, len(entries))
	for _, e := range entries {
		p, err := m.catalog.Get(e.ProductID)
		if err != nil {
			continue
		}
		lines = append(lines, Line{Product: p, Quantity: e.Quantity, LineTotal: p.Price * int64(e.Quantity)})
	}
	return lines, nil
}

// Watch returns a live view of the cart that follows broadcasts from every context.
func (m *Manager) Watch(ctx context.Context) (*collection.View[[]Entry], error) {
	return m.coll.Watch(ctx)
}

// ItemCount sums the quantities of entries.
func ItemCount(entries []Entry) int {
	n := 0
	for _, e := range entries {
		n += e.Quantity
	}
	return n
}

// Value sums price*quantity over entries whose product still resolves.
// Unresolvable entries are skipped rather than failing the whole total.
func Value(cat *catalog.Store, entries []Entry) int64 {
	var total int64
	for _, e := range entries {
		p, err := cat.Get(e.ProductID)
		if err != nil {
			continue
		}
		total += p.Price * int64(e.Quantity)
	}
	return total
}

func indexOf(entries []Entry, id catalog.ProductID) int {
	for i, e := range entries {
		if e.ProductID == id {
			return i
		}
	}
	return -1
}

func clone(entries []Entry) []Entry {
	return append(make([]Entry, 0, len(entries)+1), entries...)
}

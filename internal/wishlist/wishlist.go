// Package wishlist keeps the saved-for-later set of product ids.
package wishlist

import (
	"context"
	"fmt"
	"slices"

	"bookself/internal/catalog"
	"bookself/internal/collection"
	"bookself/internal/storage"

	"go.uber.org/zap"
)

// CollectionName is the storage key of the wishlist.
const CollectionName = "wishlist"

// Change actions published on the wishlist collection.
const (
	ActionAdd    = "add"
	ActionRemove = "remove"
	ActionToggle = "toggle"
)

// AddResult tells the caller whether Add changed the wishlist.
type AddResult int

const (
	Added AddResult = iota
	AlreadyPresent
)

func (r AddResult) String() string {
	if r == AlreadyPresent {
		return "already present"
	}
	return "added"
}

// Manager mutates the persisted wishlist. The wishlist is a set: an id
// appears at most once.
type Manager struct {
	catalog *catalog.Store
	coll    *collection.Collection[[]catalog.ProductID]
	logger  *zap.Logger
}

// NewManager returns a wishlist manager over backend.
func NewManager(cat *catalog.Store, backend *storage.Backend, logger *zap.Logger, opts ...collection.Option) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = append([]collection.Option{collection.WithLogger(logger)}, opts...)
	return &Manager{
		catalog: cat,
		coll:    collection.New[[]catalog.ProductID](CollectionName, backend, opts...),
		logger:  logger,
	}
}

// Add saves id. Adding an id already present writes nothing and reports
// AlreadyPresent; that is a notice for the caller, not an error.
func (m *Manager) Add(ctx context.Context, id catalog.ProductID) (AddResult, error) {
	if _, err := m.catalog.Get(id); err != nil {
		return Added, err
	}
	result := Added
	change := collection.Change{Action: ActionAdd, Subject: id.String()}
	_, err := m.coll.Mutate(ctx, change, func(cur []catalog.ProductID) ([]catalog.ProductID, bool, error) {
		if slices.Contains(cur, id) {
			result = AlreadyPresent
			return cur, false, nil
		}
		return append(slices.Clone(cur), id), true, nil
	})
	if err != nil {
		return Added, fmt.Errorf("add to wishlist: %w", err)
	}

	m.logger.Info("wishlist add",
		zap.Stringer("product_id", id),
		zap.Stringer("result", result))
	return result, nil
}

// Remove drops id. Removing an absent id is a no-op.
func (m *Manager) Remove(ctx context.Context, id catalog.ProductID) error {
	change := collection.Change{Action: ActionRemove, Subject: id.String()}
	_, err := m.coll.Mutate(ctx, change, func(cur []catalog.ProductID) ([]catalog.ProductID, bool, error) {
		i := slices.Index(cur, id)
		if i < 0 {
			return cur, false, nil
		}
		return slices.Delete(slices.Clone(cur), i, i+1), true, nil
	})
	if err != nil {
		return fmt.Errorf("remove from wishlist: %w", err)
	}
	return nil
}

// Toggle removes id if present and adds it otherwise, in one read-modify-write.
// It returns whether id is in the wishlist afterwards.
func (m *Manager) Toggle(ctx context.Context, id catalog.ProductID) (bool, error) {
	var in bool
	change := collection.Change{Action: ActionToggle, Subject: id.String()}
	_, err := m.coll.Mutate(ctx, change, func(cur []catalog.ProductID) ([]catalog.ProductID, bool, error) {
		if i := slices.Index(cur, id); i >= 0 {
			in = false
			return slices.Delete(slices.Clone(cur), i, i+1), true, nil
		}
		if _, err := m.catalog.Get(id); err != nil {
			return nil, false, err
		}
		in = true
		return append(slices.Clone(cur), id), true, nil
	})
	if err != nil {
		return false, fmt.Errorf("toggle wishlist: %w", err)
	}

	m.logger.Info("wishlist toggle",
		zap.Stringer("product_id", id),
		zap.Bool("in_wishlist", in))
	return in, nil
}

// Contains reports membership. raw may be a ProductID, any integer or a
// numeric string; ids that do not parse are never members.
func (m *Manager) Contains(ctx context.Context, raw any) (bool, error) {
	id, err := catalog.ParseProductID(raw)
	if err != nil {
		return false, nil
	}
	ids, err := m.Items(ctx)
	if err != nil {
		return false, err
	}
	return slices.Contains(ids, id), nil
}

// Items returns the saved ids in the order they were added.
func (m *Manager) Items(ctx context.Context) ([]catalog.ProductID, error) {
	ids, err := m.coll.Load(ctx)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []catalog.ProductID{}
	}
	return ids, nil
}

// Products resolves the saved ids, skipping any the catalog no longer has.
func (m *Manager) Products(ctx context.Context) ([]catalog.Product, error) {
	ids, err := m.Items(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]catalog.Product, 0, len(ids))
	for _, id := range ids {
		p, err := m.catalog.Get(id)
		if err != nil {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// Watch returns a live view of the wishlist.
func (m *Manager) Watch(ctx context.Context) (*collection.View[[]catalog.ProductID], error) {
	return m.coll.Watch(ctx)
}

package order

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"bookself/internal/cart"
	"bookself/internal/catalog"
	"bookself/internal/collection"
	"bookself/internal/storage"

	"go.uber.org/zap"
)

// Change actions published on the orders collection.
const (
	ActionCreate = "create"
	ActionStatus = "status"
)

// CancelNote is recorded when a customer cancels an order.
const CancelNote = "Cancelled by customer"

// Manager creates orders and records their status changes. Orders are never
// deleted.
type Manager struct {
	catalog *catalog.Store
	coll    *collection.Collection[[]Order]
	logger  *zap.Logger
	policy  TransitionPolicy
	now     func() time.Time
}

// Option customizes a Manager.
type Option func(*managerOptions)

type managerOptions struct {
	policy   TransitionPolicy
	now      func() time.Time
	collOpts []collection.Option
}

// WithPolicy replaces the default Permissive transition policy.
func WithPolicy(p TransitionPolicy) Option {
	return func(o *managerOptions) {
		o.policy = p
	}
}

// WithClock overrides the time source for createdAt and history timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *managerOptions) {
		o.now = now
	}
}

// WithCollectionOptions passes options to the underlying collection handle.
func WithCollectionOptions(opts ...collection.Option) Option {
	return func(o *managerOptions) {
		o.collOpts = append(o.collOpts, opts...)
	}
}

// NewManager returns an order manager over backend.
func NewManager(cat *catalog.Store, backend *storage.Backend, logger *zap.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := managerOptions{
		policy: Permissive{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	collOpts := append([]collection.Option{collection.WithLogger(logger), collection.WithClock(o.now)}, o.collOpts...)
	return &Manager{
		catalog: cat,
		coll:    collection.New[[]Order](CollectionName, backend, collOpts...),
		logger:  logger,
		policy:  o.policy,
		now:     o.now,
	}
}

// CreateFromCart places an order for userID from a cart snapshot. Clearing
// the cart is left to the caller.
func (m *Manager) CreateFromCart(ctx context.Context, userID string, entries []cart.Entry, checkout Checkout) (Order, error) {
	o, err := Build(m.catalog, userID, entries, checkout, m.now())
	if err != nil {
		return Order{}, err
	}
	created, err := m.Append(ctx, o)
	if err != nil {
		return Order{}, err
	}
	o = created[0]

	m.logger.Info("order created",
		zap.Int("order_id", o.ID),
		zap.String("user_id", o.UserID),
		zap.Int("items", o.ItemCount()),
		zap.Int64("total", o.Total()))
	return o, nil
}

// Append stores already built orders, assigning each the next sequential id.
func (m *Manager) Append(ctx context.Context, orders ...Order) ([]Order, error) {
	if len(orders) == 0 {
		return nil, nil
	}
	var created []Order
	change := collection.Change{Action: ActionCreate, Quantity: len(orders)}
	_, err := m.coll.Mutate(ctx, change, func(cur []Order) ([]Order, bool, error) {
		nextID := 1
		for _, o := range cur {
			if o.ID >= nextID {
				nextID = o.ID + 1
			}
		}
		next := append(make([]Order, 0, len(cur)+len(orders)), cur...)
		created = make([]Order, 0, len(orders))
		for _, o := range orders {
			o = o.clone()
			o.ID = nextID
			nextID++
			next = append(next, o)
			created = append(created, o)
		}
		return next, true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("store orders: %w", err)
	}
	return created, nil
}

// List returns every order in creation order.
func (m *Manager) List(ctx context.Context) ([]Order, error) {
	orders, err := m.coll.Load(ctx)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []Order{}
	}
	return orders, nil
}

// ListByUser returns the orders placed by userID.
func (m *Manager) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	orders, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Order, 0)
	for _, o := range orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

// Get returns the order with the given id.
func (m *Manager) Get(ctx context.Context, id int) (Order, error) {
	orders, err := m.List(ctx)
	if err != nil {
		return Order{}, err
	}
	for _, o := range orders {
		if o.ID == id {
			return o, nil
		}
	}
	return Order{}, fmt.Errorf("%w: %d", ErrOrderNotFound, id)
}

// UpdateStatus sets the status of an order and appends the change to its
// history. Earlier history entries are never modified.
func (m *Manager) UpdateStatus(ctx context.Context, id int, status Status, note, actor string) (Order, error) {
	if _, err := ParseStatus(string(status)); err != nil {
		return Order{}, err
	}

	var updated Order
	change := collection.Change{Action: ActionStatus, Subject: strconv.Itoa(id)}
	_, err := m.coll.Mutate(ctx, change, func(cur []Order) ([]Order, bool, error) {
		for i, o := range cur {
			if o.ID != id {
				continue
			}
			if err := m.policy.Allow(o.Status, status); err != nil {
				return nil, false, err
			}
			o = o.clone()
			o.Status = status
			o.StatusHistory = append(o.StatusHistory, StatusChange{
				Status:    status,
				Timestamp: m.now(),
				Note:      note,
				UpdatedBy: actor,
			})
			next := append([]Order(nil), cur...)
			next[i] = o
			updated = o
			return next, true, nil
		}
		return nil, false, fmt.Errorf("%w: %d", ErrOrderNotFound, id)
	})
	if err != nil {
		return Order{}, err
	}

	m.logger.Info("order status updated",
		zap.Int("order_id", id),
		zap.String("status", string(status)),
		zap.String("updated_by", actor))
	return updated, nil
}

// Cancel marks an order cancelled on behalf of the customer. Only pending
// orders are meant to be cancelled; the active policy decides whether others can be.
func (m *Manager) Cancel(ctx context.Context, id int) (Order, error) {
	return m.UpdateStatus(ctx, id, StatusCancelled, CancelNote, "customer")
}

// Watch returns a live view of the order list.
func (m *Manager) Watch(ctx context.Context) (*collection.View[[]Order], error) {
	return m.coll.Watch(ctx)
}

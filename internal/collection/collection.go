// Package collection gives typed, read-modify-write access to a persisted
// collection and publishes the full new value after every successful write.
package collection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bookself/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Change describes a mutation for the broadcast that follows it.
type Change struct {
	Action   string
	Subject  string
	Quantity int
}

// MutateFunc returns the new value and whether it differs from cur.
// Returning changed=false skips both the write and the broadcast.
type MutateFunc[T any] func(cur T) (next T, changed bool, err error)

// Collection is a typed handle over one persisted collection. It keeps no
// copy of the value: every read goes to storage.
type Collection[T any] struct {
	name    string
	origin  string
	backend *storage.Backend
	logger  *zap.Logger
	now     func() time.Time
}

// Option customizes a Collection.
type Option func(*options)

type options struct {
	origin string
	logger *zap.Logger
	now    func() time.Time
}

// WithOrigin names the context (tab, process) that owns the handle.
func WithOrigin(origin string) Option {
	return func(o *options) {
		o.origin = origin
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClock overrides the time source used to stamp events.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// New returns a handle for the collection stored under name.
func New[T any](name string, backend *storage.Backend, opts ...Option) *Collection[T] {
	o := options{
		origin: uuid.NewString(),
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Collection[T]{
		name:    name,
		origin:  o.origin,
		backend: backend,
		logger:  o.logger.With(zap.String("collection", name)),
		now:     o.now,
	}
}

// Name returns the storage key of the collection.
func (c *Collection[T]) Name() string {
	return c.name
}

// Origin identifies this handle in published events.
func (c *Collection[T]) Origin() string {
	return c.origin
}

// Load reads the current persisted value. A missing value decodes as the zero T.
func (c *Collection[T]) Load(ctx context.Context) (T, error) {
	raw, err := c.backend.Storage.Get(ctx, c.name)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("load %s: %w", c.name, err)
	}
	return Decode[T](raw)
}

// Mutate applies fn to the current persisted value, stores the result and
// publishes it. Backends implementing storage.Updater run the cycle atomically.
func (c *Collection[T]) Mutate(ctx context.Context, change Change, fn MutateFunc[T]) (T, error) {
	var (
		result  T
		payload []byte
		changed bool
	)
	update := func(current []byte) ([]byte, error) {
		cur, err := Decode[T](current)
		if err != nil {
			return nil, err
		}
		next, ok, err := fn(cur)
		if err != nil {
			return nil, err
		}
		changed = ok
		if !ok {
			result = cur
			return nil, nil
		}
		data, err := json.Marshal(next)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", c.name, err)
		}
		result, payload = next, data
		return data, nil
	}

	var err error
	if u, ok := c.backend.Storage.(storage.Updater); ok {
		err = u.Update(ctx, c.name, update)
	} else {
		err = c.getPut(ctx, update)
	}
	if err != nil {
		var zero T
		return zero, err
	}
	if changed {
		c.publish(ctx, change, payload)
	}
	return result, nil
}

// Replace overwrites the persisted value without reading it first. Writers
// holding a stale copy lose concurrent updates made by other contexts.
func (c *Collection[T]) Replace(ctx context.Context, change Change, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.name, err)
	}
	if err := c.backend.Storage.Put(ctx, c.name, data); err != nil {
		return fmt.Errorf("store %s: %w", c.name, err)
	}
	c.publish(ctx, change, data)
	return nil
}

func (c *Collection[T]) getPut(ctx context.Context, fn storage.UpdateFunc) error {
	current, err := c.backend.Storage.Get(ctx, c.name)
	if err != nil {
		return fmt.Errorf("load %s: %w", c.name, err)
	}
	next, err := fn(current)
	if err != nil || next == nil {
		return err
	}
	if err := c.backend.Storage.Put(ctx, c.name, next); err != nil {
		return fmt.Errorf("store %s: %w", c.name, err)
	}
	return nil
}

// publish runs only after the value is persisted; a broadcast failure is
// logged because storage already holds the new value.
func (c *Collection[T]) publish(ctx context.Context, change Change, payload []byte) {
	if c.backend.Broadcaster == nil {
		return
	}
	ev := storage.Event{
		ID:         uuid.NewString(),
		Origin:     c.origin,
		Collection: c.name,
		Action:     change.Action,
		Subject:    change.Subject,
		Quantity:   change.Quantity,
		Value:      payload,
		Time:       c.now(),
	}
	if err := c.backend.Broadcaster.Publish(ctx, ev); err != nil {
		c.logger.Warn("failed to broadcast change",
			zap.String("action", change.Action),
			zap.String("event_id", ev.ID),
			zap.Error(err))
		return
	}
	c.logger.Debug("change broadcast",
		zap.String("action", change.Action),
		zap.String("subject", change.Subject),
		zap.String("event_id", ev.ID))
}

// Decode unmarshals a persisted value; nil or empty input yields the zero T.
func Decode[T any](raw []byte) (T, error) {
	var v T
	if len(raw) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return v, nil
}

// ErrCorrupt reports a persisted value that does not decode.
var ErrCorrupt = errors.New("collection: corrupt persisted value")

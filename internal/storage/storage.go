// Package storage persists named collections as opaque JSON documents and
// broadcasts their changes to every context sharing the same backend.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrClosed is returned by operations on a backend that has been closed.
var ErrClosed = errors.New("storage: backend closed")

// Storage reads and writes the serialized value of a collection.
// Get returns (nil, nil) when nothing has been stored under key yet.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// UpdateFunc receives the currently persisted value (nil when absent) and
// returns the value to store. Returning a nil slice leaves storage untouched.
type UpdateFunc func(current []byte) ([]byte, error)

// Updater is implemented by backends able to run a read-modify-write cycle
// without another writer interleaving between the read and the write.
type Updater interface {
	Update(ctx context.Context, key string, fn UpdateFunc) error
}

// Event is the change notification published after a successful write.
type Event struct {
	ID         string          `json:"id"`
	Origin     string          `json:"origin"`
	Collection string          `json:"collection"`
	Action     string          `json:"action"`
	Subject    string          `json:"subject,omitempty"`
	Quantity   int             `json:"quantity,omitempty"`
	Value      json.RawMessage `json:"value"`
	Time       time.Time       `json:"time"`
}

// Broadcaster fans change events out to every subscriber of the backend,
// including subscribers living in other processes when the backend allows it.
type Broadcaster interface {
	Publish(ctx context.Context, ev Event) error
	// Subscribe returns a channel of events and a function that ends the
	// subscription. The channel is closed once the subscription ends.
	Subscribe(ctx context.Context) (<-chan Event, func(), error)
}

// Backend pairs a Storage with the Broadcaster its writers publish to.
type Backend struct {
	Storage     Storage
	Broadcaster Broadcaster
	closers     []func() error
}

// NewBackend assembles a backend; closers run in order on Close.
func NewBackend(s Storage, b Broadcaster, closers ...func() error) *Backend {
	return &Backend{Storage: s, Broadcaster: b, closers: closers}
}

// Close releases the resources held by the backend.
func (b *Backend) Close() error {
	var errs []error
	for _, c := range b.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

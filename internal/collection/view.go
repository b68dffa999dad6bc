package collection

import (
	"context"
	"sync"

	"bookself/internal/storage"

	"go.uber.org/zap"
)

// View is a live, cached copy of a collection for readers such as a
// rendering layer. It resynchronizes from every broadcast of the collection,
// including those published by other contexts.
type View[T any] struct {
	coll *Collection[T]

	mu       sync.RWMutex
	value    T
	lastID   string
	handlers []func(storage.Event, T)

	stop func()
	done chan struct{}
}

// Watch loads the current value and keeps it updated until ctx ends or Close is called.
func (c *Collection[T]) Watch(ctx context.Context) (*View[T], error) {
	events, stop, err := c.backend.Broadcaster.Subscribe(ctx)
	if err != nil {
		return nil, err
	}
	// Subscribe before loading so a write landing in between is not missed.
	value, err := c.Load(ctx)
	if err != nil {
		stop()
		return nil, err
	}

	v := &View[T]{
		coll:  c,
		value: value,
		stop:  stop,
		done:  make(chan struct{}),
	}
	go v.run(events)
	return v, nil
}

func (v *View[T]) run(events <-chan storage.Event) {
	defer close(v.done)
	for ev := range events {
		if ev.Collection != v.coll.name {
			continue
		}
		value, err := Decode[T](ev.Value)
		if err != nil {
			v.coll.logger.Warn("ignoring undecodable broadcast",
				zap.String("event_id", ev.ID),
				zap.Error(err))
			continue
		}

		v.mu.Lock()
		v.value = value
		v.lastID = ev.ID
		handlers := append([]func(storage.Event, T){}, v.handlers...)
		v.mu.Unlock()

		for _, h := range handlers {
			h(ev, value)
		}
	}
}

// Snapshot returns the most recently observed value.
func (v *View[T]) Snapshot() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.value
}

// LastEventID returns the id of the last applied broadcast, empty before the first.
func (v *View[T]) LastEventID() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.lastID
}

// OnChange registers h to run after every applied broadcast.
func (v *View[T]) OnChange(h func(ev storage.Event, value T)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.handlers = append(v.handlers, h)
}

// Resync reloads the value from storage, for callers that suspect a missed broadcast.
func (v *View[T]) Resync(ctx context.Context) (T, error) {
	value, err := v.coll.Load(ctx)
	if err != nil {
		return value, err
	}
	v.mu.Lock()
	v.value = value
	v.mu.Unlock()
	return value, nil
}

// Close ends the subscription and waits for the update loop to exit.
func (v *View[T]) Close() {
	v.stop()
	<-v.done
}

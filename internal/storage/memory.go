package storage

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

const subscriberBuffer = 256

// Memory keeps collections in process memory. Several collection handles
// sharing one Memory behave like browser tabs sharing one local storage.
type Memory struct {
	mu     sync.RWMutex
	values map[string][]byte

	subMu  sync.Mutex
	subs   map[int]*subscriber
	nextID int
	closed bool

	logger *zap.Logger
}

// MemoryOption customizes a Memory.
type MemoryOption func(*Memory)

// WithMemoryLogger sets the logger used to report dropped broadcasts.
func WithMemoryLogger(logger *zap.Logger) MemoryOption {
	return func(m *Memory) {
		m.logger = logger
	}
}

// NewMemory returns an empty in-memory store.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		values: make(map[string][]byte),
		subs:   make(map[int]*subscriber),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewMemoryBackend returns a Backend whose storage and broadcast are the same Memory.
func NewMemoryBackend(opts ...MemoryOption) *Backend {
	m := NewMemory(opts...)
	return NewBackend(m, m, m.Close)
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), value...)
	return nil
}

// Update holds the write lock for the whole read-modify-write cycle.
func (m *Memory) Update(_ context.Context, key string, fn UpdateFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var current []byte
	if v, ok := m.values[key]; ok {
		current = append([]byte(nil), v...)
	}
	next, err := fn(current)
	if err != nil {
		return err
	}
	if next == nil {
		return nil
	}
	m.values[key] = append([]byte(nil), next...)
	return nil
}

// Publish delivers ev to every subscriber. A subscriber whose buffer is full
// misses the event; the next event carries the full value again.
func (m *Memory) Publish(_ context.Context, ev Event) error {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	if m.closed {
		return ErrClosed
	}
	for id, sub := range m.subs {
		select {
		case sub.ch <- ev:
		default:
			m.logger.Warn("subscriber buffer full, dropping broadcast",
				zap.Int("subscriber", id),
				zap.String("collection", ev.Collection),
				zap.String("event_id", ev.ID))
		}
	}
	return nil
}

func (m *Memory) Subscribe(ctx context.Context) (<-chan Event, func(), error) {
	m.subMu.Lock()
	if m.closed {
		m.subMu.Unlock()
		return nil, nil, ErrClosed
	}
	id := m.nextID
	m.nextID++
	sub := &subscriber{ch: make(chan Event, subscriberBuffer), done: make(chan struct{})}
	m.subs[id] = sub
	m.subMu.Unlock()

	cancel := func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		if _, ok := m.subs[id]; ok {
			delete(m.subs, id)
			sub.stop()
		}
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-sub.done:
		}
	}()
	return sub.ch, cancel, nil
}

// Close ends every subscription.
func (m *Memory) Close() error {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	for id, sub := range m.subs {
		delete(m.subs, id)
		sub.stop()
	}
	return nil
}

type subscriber struct {
	ch   chan Event
	done chan struct{}
}

// stop must be called with subMu held.
func (s *subscriber) stop() {
	close(s.ch)
	close(s.done)
}

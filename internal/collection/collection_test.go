package collection

import (
	"context"
	"errors"
	"testing"
	"time"

	"bookself/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStorage struct {
	storage.Storage
	putErr error
}

func (f failingStorage) Put(context.Context, string, []byte) error {
	return f.putErr
}

func TestLoadMissingIsZero(t *testing.T) {
	c := New[[]int]("wishlist", storage.NewMemoryBackend())
	v, err := c.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestMutatePersistsAndPublishes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	backend := storage.NewMemoryBackend()
	c := New[[]int]("wishlist", backend, WithOrigin("tab-a"))

	events, stop, err := backend.Broadcaster.Subscribe(ctx)
	require.NoError(t, err)
	defer stop()

	got, err := c.Mutate(ctx, Change{Action: "add", Subject: "7"}, func(cur []int) ([]int, bool, error) {
		return append(cur, 7), true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{7}, got)

	stored, err := c.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{7}, stored)

	select {
	case ev := <-events:
		assert.Equal(t, "wishlist", ev.Collection)
		assert.Equal(t, "add", ev.Action)
		assert.Equal(t, "7", ev.Subject)
		assert.Equal(t, "tab-a", ev.Origin)
		assert.NotEmpty(t, ev.ID)
		assert.JSONEq(t, `[7]`, string(ev.Value))
	case <-time.After(time.Second):
		t.Fatal("no broadcast")
	}
}

func TestMutateUnchangedSkipsWriteAndBroadcast(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	backend := storage.NewMemoryBackend()
	c := New[[]int]("wishlist", backend)

	events, stop, err := backend.Broadcaster.Subscribe(ctx)
	require.NoError(t, err)
	defer stop()

	got, err := c.Mutate(ctx, Change{Action: "noop"}, func(cur []int) ([]int, bool, error) {
		return cur, false, nil
	})
	require.NoError(t, err)
	assert.Empty(t, got)

	raw, err := backend.Storage.Get(ctx, "wishlist")
	require.NoError(t, err)
	assert.Nil(t, raw)

	select {
	case ev := <-events:
		t.Fatalf("unexpected broadcast %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMutateErrorLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	c := New[[]int]("wishlist", storage.NewMemoryBackend())
	_, err := c.Mutate(ctx, Change{}, func(cur []int) ([]int, bool, error) {
		return append(cur, 1), true, nil
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = c.Mutate(ctx, Change{}, func(cur []int) ([]int, bool, error) {
		return append(cur, 2), true, boom
	})
	assert.ErrorIs(t, err, boom)

	v, err := c.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, v)
}

func TestFailedWriteDoesNotPublish(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mem := storage.NewMemory()
	putErr := errors.New("disk full")
	backend := storage.NewBackend(failingStorage{Storage: mem, putErr: putErr}, mem)
	c := New[[]int]("cart", backend)

	events, stop, err := mem.Subscribe(ctx)
	require.NoError(t, err)
	defer stop()

	_, err = c.Mutate(ctx, Change{Action: "add"}, func(cur []int) ([]int, bool, error) {
		return append(cur, 1), true, nil
	})
	assert.ErrorIs(t, err, putErr)

	select {
	case ev := <-events:
		t.Fatalf("unexpected broadcast %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCorruptValue(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryBackend()
	require.NoError(t, backend.Storage.Put(ctx, "cart", []byte("{not json")))

	c := New[[]int]("cart", backend)
	_, err := c.Load(ctx)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestViewFollowsOtherContexts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	backend := storage.NewMemoryBackend()

	tabA := New[[]int]("wishlist", backend, WithOrigin("a"))
	tabB := New[[]int]("wishlist", backend, WithOrigin("b"))
	other := New[[]int]("cart", backend)

	view, err := tabB.Watch(ctx)
	require.NoError(t, err)
	defer view.Close()

	seen := make(chan string, 4)
	view.OnChange(func(ev storage.Event, _ []int) { seen <- ev.Origin })

	_, err = other.Mutate(ctx, Change{Action: "add"}, func(cur []int) ([]int, bool, error) {
		return append(cur, 99), true, nil
	})
	require.NoError(t, err)
	_, err = tabA.Mutate(ctx, Change{Action: "add"}, func(cur []int) ([]int, bool, error) {
		return append(cur, 5), true, nil
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return len(view.Snapshot()) == 1 && view.Snapshot()[0] == 5
	}, time.Second, 5*time.Millisecond)

	select {
	case origin := <-seen:
		assert.Equal(t, "a", origin)
	case <-time.After(time.Second):
		t.Fatal("handler not called")
	}
	assert.NotEmpty(t, view.LastEventID())
}

func TestViewResync(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryBackend()
	c := New[[]int]("wishlist", backend)

	view, err := c.Watch(ctx)
	require.NoError(t, err)
	defer view.Close()

	// written behind the broadcaster's back
	require.NoError(t, backend.Storage.Put(ctx, "wishlist", []byte(`[1,2]`)))
	v, err := view.Resync(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, v)
	assert.Equal(t, []int{1, 2}, view.Snapshot())
}

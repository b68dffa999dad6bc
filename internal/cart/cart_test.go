package cart

import (
	"context"
	"testing"
	"time"

	"bookself/internal/catalog"
	"bookself/internal/collection"
	"bookself/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog(t *testing.T) *catalog.Store {
	t.Helper()
	s, err := catalog.New([]catalog.Product{
		{ID: 1, Title: "One", Category: catalog.CategoryVietnamese, Price: 100000, Images: []string{"1.jpg"}},
		{ID: 2, Title: "Two", Category: catalog.CategoryForeign, Price: 250000, Images: []string{"2.jpg"}},
		{ID: 3, Title: "Three", Category: catalog.CategoryForeign, Price: 50000, Images: []string{"3.jpg"}},
	})
	require.NoError(t, err)
	return s
}

func newManager(t *testing.T) (*Manager, *storage.Backend) {
	t.Helper()
	backend := storage.NewMemoryBackend()
	t.Cleanup(func() { _ = backend.Close() })
	return NewManager(testCatalog(t), backend, nil), backend
}

func TestAddMergesDuplicates(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	_, err := m.Add(ctx, 1, 2)
	require.NoError(t, err)
	entries, err := m.Add(ctx, 1, 3)
	require.NoError(t, err)

	assert.Equal(t, []Entry{{ProductID: 1, Quantity: 5}}, entries)

	persisted, err := m.Entries(ctx)
	require.NoError(t, err)
	assert.Equal(t, entries, persisted)
}

func TestAddDefaultsQuantity(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	entries, err := m.Add(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{ProductID: 2, Quantity: 1}}, entries)
}

func TestAddUnknownProduct(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	_, err := m.Add(ctx, 42, 1)
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)

	entries, err := m.Entries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSetQuantity(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	_, err := m.Add(ctx, 1, 1)
	require.NoError(t, err)
	_, err = m.Add(ctx, 2, 1)
	require.NoError(t, err)

	entries, err := m.SetQuantity(ctx, 2, 4)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{1, 1}, {2, 4}}, entries)

	entries, err = m.SetQuantity(ctx, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{2, 4}}, entries)

	q, err := m.Quantity(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, q)

	// setting a product that is not in the cart changes nothing
	entries, err = m.SetQuantity(ctx, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{2, 4}}, entries)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	for _, id := range []catalog.ProductID{1, 2, 3} {
		_, err := m.Add(ctx, id, 1)
		require.NoError(t, err)
	}
	entries, err := m.Remove(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{1, 1}, {3, 1}}, entries)

	entries, err = m.Remove(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{1, 1}, {3, 1}}, entries)
}

func TestTotals(t *testing.T) {
	ctx := context.Background()
	m, backend := newManager(t)

	_, err := m.Add(ctx, 1, 2)
	require.NoError(t, err)
	_, err = m.Add(ctx, 3, 1)
	require.NoError(t, err)

	// product 99 left over from an older catalog, id stored as a string
	raw := []byte(`[{"id":1,"quantity":2},{"id":"3","quantity":1},{"id":99,"quantity":5}]`)
	require.NoError(t, backend.Storage.Put(ctx, CollectionName, raw))

	count, err := m.TotalItemCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, count)

	value, err := m.TotalValue(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(250000), value)

	lines, err := m.Lines(ctx)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, int64(200000), lines[0].LineTotal)

	// mixed id forms resolve to the same entry
	entries, err := m.Add(ctx, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, Entry{ProductID: 3, Quantity: 2}, entries[1])
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	_, err := m.Add(ctx, 1, 1)
	require.NoError(t, err)
	require.NoError(t, m.Clear(ctx))

	entries, err := m.Entries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestChangeEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m, backend := newManager(t)

	events, stop, err := backend.Broadcaster.Subscribe(ctx)
	require.NoError(t, err)
	defer stop()

	_, err = m.Add(ctx, 2, 3)
	require.NoError(t, err)
	_, err = m.SetQuantity(ctx, 2, 1)
	require.NoError(t, err)
	_, err = m.Remove(ctx, 2)
	require.NoError(t, err)

	var got []ChangeEvent
	for len(got) < 3 {
		select {
		case ev := <-events:
			change, err := DecodeChange(ev)
			require.NoError(t, err)
			got = append(got, change)
		case <-time.After(time.Second):
			t.Fatalf("got %d events", len(got))
		}
	}

	assert.Equal(t, ActionAdd, got[0].Action)
	assert.Equal(t, catalog.ProductID(2), got[0].ProductID)
	assert.Equal(t, 3, got[0].Quantity)
	assert.Equal(t, []Entry{{2, 3}}, got[0].Cart)

	assert.Equal(t, ActionUpdate, got[1].Action)
	assert.Equal(t, []Entry{{2, 1}}, got[1].Cart)

	assert.Equal(t, ActionRemove, got[2].Action)
	assert.Empty(t, got[2].Cart)

	_, err = DecodeChange(storage.Event{Collection: "orders"})
	assert.Error(t, err)
}

func TestTabsStayInSync(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend := storage.NewMemoryBackend()
	defer backend.Close()
	cat := testCatalog(t)

	tabA := NewManager(cat, backend, nil, collection.WithOrigin("tab-a"))
	tabB := NewManager(cat, backend, nil, collection.WithOrigin("tab-b"))

	view, err := tabB.Watch(ctx)
	require.NoError(t, err)
	defer view.Close()

	_, err = tabA.Add(ctx, 1, 1)
	require.NoError(t, err)
	// tab B re-reads before mutating, so A's entry survives
	entries, err := tabB.Add(ctx, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{1, 1}, {2, 1}}, entries)

	assert.Eventually(t, func() bool {
		return len(view.Snapshot()) == 2
	}, time.Second, 5*time.Millisecond)
}

// A context that writes from a stale copy instead of re-reading loses the
// other context's update: last writer wins.
func TestStaleWriterLosesUpdate(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryBackend()
	defer backend.Close()
	cat := testCatalog(t)

	tabA := NewManager(cat, backend, nil)
	tabB := NewManager(cat, backend, nil)

	staleB, err := tabB.Entries(ctx)
	require.NoError(t, err)
	require.Empty(t, staleB)

	_, err = tabA.Add(ctx, 1, 1)
	require.NoError(t, err)

	staleB = append(staleB, Entry{ProductID: 2, Quantity: 1})
	require.NoError(t, tabB.coll.Replace(ctx, collection.Change{Action: string(ActionAdd)}, staleB))

	final, err := tabA.Entries(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{ProductID: 2, Quantity: 1}}, final, "tab A's add was overwritten")
}

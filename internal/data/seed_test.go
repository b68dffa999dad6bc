package data

import (
	"context"
	"testing"
	"time"

	"bookself/internal/catalog"
	"bookself/internal/order"
	"bookself/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var anchor = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newOrders(t *testing.T) (*order.Manager, *catalog.Store) {
	t.Helper()
	backend := storage.NewMemoryBackend()
	t.Cleanup(func() { _ = backend.Close() })
	cat := catalog.Default()
	return order.NewManager(cat, backend, nil), cat
}

func TestSeedDatasetIsIdempotent(t *testing.T) {
	ctx := context.Background()
	orders, cat := newOrders(t)
	cfg := SeedConfig{Orders: 30, BatchSize: 7, Now: anchor}

	created, err := SeedDataset(ctx, orders, cat, cfg)
	require.NoError(t, err)
	assert.Equal(t, 30, created)

	created, err = SeedDataset(ctx, orders, cat, cfg)
	require.NoError(t, err)
	assert.Zero(t, created)

	cfg.Orders = 35
	created, err = SeedDataset(ctx, orders, cat, cfg)
	require.NoError(t, err)
	assert.Equal(t, 5, created)

	all, err := orders.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 35)
	for i, o := range all {
		assert.Equal(t, i+1, o.ID)
	}
}

func TestSeedDatasetIsDeterministic(t *testing.T) {
	ctx := context.Background()
	cfg := SeedConfig{Orders: 20, Now: anchor}

	a, cat := newOrders(t)
	_, err := SeedDataset(ctx, a, cat, cfg)
	require.NoError(t, err)
	b, _ := newOrders(t)
	_, err = SeedDataset(ctx, b, cat, cfg)
	require.NoError(t, err)

	first, err := a.List(ctx)
	require.NoError(t, err)
	second, err := b.List(ctx)
	require.NoError(t, err)
	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Total(), second[i].Total())
		assert.True(t, first[i].CreatedAt.Equal(second[i].CreatedAt))
		assert.Equal(t, first[i].Status, second[i].Status)
	}
}

func TestSeededOrdersAreConsistent(t *testing.T) {
	ctx := context.Background()
	orders, cat := newOrders(t)

	_, err := SeedDataset(ctx, orders, cat, SeedConfig{Orders: 60, Now: anchor})
	require.NoError(t, err)
	all, err := orders.List(ctx)
	require.NoError(t, err)

	yearAgo := anchor.Add(-365 * 24 * time.Hour)
	for i, o := range all {
		assert.NotEmpty(t, o.Items)
		assert.False(t, o.CreatedAt.Before(yearAgo), "order %d too old", o.ID)
		assert.False(t, o.CreatedAt.After(anchor), "order %d in the future", o.ID)
		if i > 0 {
			assert.False(t, o.CreatedAt.Before(all[i-1].CreatedAt), "ids follow creation time")
		}

		var subtotal int64
		for _, it := range o.Items {
			subtotal += it.LineTotal
		}
		assert.Equal(t, subtotal, o.Subtotal)
		assert.Equal(t, order.ShippingCost(o.DeliveryMethod, o.Subtotal), o.ShippingCost)

		if o.Status == order.StatusPending {
			assert.Empty(t, o.StatusHistory)
		} else {
			require.NotEmpty(t, o.StatusHistory)
			assert.Equal(t, o.Status, o.StatusHistory[len(o.StatusHistory)-1].Status)
		}
	}
}

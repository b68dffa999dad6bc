package main

import (
	"bytes"
	"testing"
	"time"

	"bookself/internal/catalog"
	"bookself/internal/order"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDay(t *testing.T) {
	zero, err := parseDay("", true)
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	start, err := parseDay("2025-03-14", false)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.Local), start)

	end, err := parseDay("2025-03-14", true)
	require.NoError(t, err)
	assert.Equal(t, 14, end.Day())
	assert.True(t, end.Add(time.Nanosecond).Equal(start.AddDate(0, 0, 1)))

	_, err = parseDay("14/03/2025", false)
	assert.Error(t, err)
}

func TestOrderID(t *testing.T) {
	id, err := orderID([]string{"12"}, "order <id>")
	require.NoError(t, err)
	assert.Equal(t, 12, id)

	_, err = orderID(nil, "order <id>")
	assert.ErrorContains(t, err, "usage: order <id>")
	_, err = orderID([]string{"x"}, "order <id>")
	assert.Error(t, err)
}

func TestPrintTables(t *testing.T) {
	var buf bytes.Buffer
	cat := catalog.Default()

	require.NoError(t, printProducts(&buf, cat.ListFeatured()))
	assert.Contains(t, buf.String(), "Atomic Habits")

	buf.Reset()
	printOrder(&buf, order.Order{
		ID:       3,
		Status:   order.StatusPending,
		Items:    []order.Item{{Title: "Sapiens", Quantity: 2, LineTotal: 600000}},
		Subtotal: 600000,
	})
	assert.Contains(t, buf.String(), "order #3")
	assert.Contains(t, buf.String(), "600.000 ₫")
}

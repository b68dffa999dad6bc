package report

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"bookself/internal/order"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 3, 14, 18, 0, 0, 0, time.UTC)

func sampleOrders() []order.Order {
	return []order.Order{
		{ID: 1, Status: order.StatusDelivered, Subtotal: 100000, ShippingCost: 30000, CreatedAt: now.Add(-2 * time.Hour)},
		{ID: 2, Status: order.StatusCancelled, Subtotal: 500000, CreatedAt: now.Add(-3 * time.Hour)},
		{ID: 3, Status: order.StatusPending, Subtotal: 200000, CreatedAt: time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)},
		{ID: 4, Status: order.StatusShipped, Subtotal: 80000, ShippingCost: 50000, CreatedAt: time.Date(2025, 1, 20, 9, 0, 0, 0, time.UTC)},
		{ID: 5, Status: order.StatusDelivered, Subtotal: 900000, CreatedAt: time.Date(2024, 11, 5, 9, 0, 0, 0, time.UTC)},
	}
}

func rowByName(t *testing.T, rows []Row, typ, name string) Row {
	t.Helper()
	for _, r := range rows {
		if r.Type == typ && r.Name == name {
			return r
		}
	}
	t.Fatalf("no %s/%s row", typ, name)
	return Row{}
}

func TestBuildRevenue(t *testing.T) {
	rows := Build(sampleOrders(), Rollups(now))

	today := rowByName(t, rows, "Revenue", "Today")
	assert.Equal(t, 1, today.Orders)
	assert.Equal(t, int64(130000), today.Revenue)

	month := rowByName(t, rows, "Revenue", "This month")
	assert.Equal(t, 2, month.Orders)
	assert.Equal(t, int64(330000), month.Revenue)

	year := rowByName(t, rows, "Revenue", "This year")
	assert.Equal(t, 3, year.Orders)
	assert.Equal(t, int64(460000), year.Revenue)

	all := rowByName(t, rows, "Revenue", "All time")
	assert.Equal(t, 4, all.Orders)
	assert.Equal(t, int64(1360000), all.Revenue)
}

func TestBuildStatusBreakdown(t *testing.T) {
	rows := Build(sampleOrders(), Rollups(now))

	assert.Equal(t, 2, rowByName(t, rows, "Status", "delivered").Orders)
	cancelled := rowByName(t, rows, "Status", "cancelled")
	assert.Equal(t, 1, cancelled.Orders)
	assert.Equal(t, int64(500000), cancelled.Revenue)
	assert.Zero(t, rowByName(t, rows, "Status", "processing").Orders)
}

type staticSource []order.Order

func (s staticSource) List(context.Context) ([]order.Order, error) { return s, nil }

type failingSource struct{}

func (failingSource) List(context.Context) ([]order.Order, error) {
	return nil, errors.New("backend down")
}

func TestRun(t *testing.T) {
	rows, err := Run(context.Background(), staticSource(sampleOrders()), now)
	require.NoError(t, err)
	assert.Len(t, rows, 4+len(order.Statuses))

	_, err = Run(context.Background(), failingSource{}, now)
	assert.ErrorContains(t, err, "backend down")
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, Build(sampleOrders(), Rollups(now))))

	out := buf.String()
	assert.Contains(t, out, "This month")
	assert.Contains(t, out, "delivered")
	assert.Contains(t, out, "330.000 ₫")
}

func TestFormatVND(t *testing.T) {
	assert.Equal(t, "1.250.000 ₫", FormatVND(1250000))
	assert.Equal(t, "0 ₫", FormatVND(0))
}

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "short", TruncateText("short", 10))
	assert.Equal(t, "Đắc N…", TruncateText("Đắc Nhân Tâm", 5))
	assert.Equal(t, "Tôi", TruncateText("Tôi", 3))
	assert.Equal(t, "…", TruncateText("Số Đỏ", 0))
	assert.Equal(t, "", TruncateText("", 4))
}

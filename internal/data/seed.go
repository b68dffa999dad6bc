// Package data generates deterministic demo orders for the admin views.
package data

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"bookself/internal/cart"
	"bookself/internal/catalog"
	"bookself/internal/order"
)

// SeedConfig controls how many demo orders are stored.
type SeedConfig struct {
	Orders    int
	BatchSize int
	// Now anchors the generated dates; zero means time.Now().
	Now time.Time
}

// DefaultSeedOrders is the order count used when SeedConfig.Orders is unset.
const DefaultSeedOrders = 200

// SeedDataset tops the order list up to cfg.Orders with synthetic orders
// spread over the past year. Running it again with the same target stores
// nothing. It returns the number of orders created.
func SeedDataset(ctx context.Context, orders *order.Manager, cat *catalog.Store, cfg SeedConfig) (int, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.Orders <= 0 {
		cfg.Orders = DefaultSeedOrders
	}
	if cfg.Now.IsZero() {
		cfg.Now = time.Now()
	}
	if cat.Len() == 0 {
		return 0, fmt.Errorf("seed orders: empty catalog")
	}
	return seedOrders(ctx, orders, cat, cfg)
}

func seedOrders(ctx context.Context, orders *order.Manager, cat *catalog.Store, cfg SeedConfig) (int, error) {
	existing, err := orders.List(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) >= cfg.Orders {
		return 0, nil
	}

	toCreate := cfg.Orders - len(existing)
	rnd := rand.New(rand.NewSource(42))
	products := cat.All()

	generated := make([]order.Order, 0, toCreate)
	for i := 0; i < toCreate; i++ {
		o, err := buildSyntheticOrder(len(existing)+i, rnd, cat, products, cfg.Now)
		if err != nil {
			return 0, err
		}
		generated = append(generated, o)
	}
	// ids follow creation time
	sort.SliceStable(generated, func(i, j int) bool {
		return generated[i].CreatedAt.Before(generated[j].CreatedAt)
	})

	created := 0
	for start := 0; start < len(generated); start += cfg.BatchSize {
		end := min(start+cfg.BatchSize, len(generated))
		stored, err := orders.Append(ctx, generated[start:end]...)
		if err != nil {
			return created, fmt.Errorf("seed orders %d-%d: %w", start, end, err)
		}
		created += len(stored)
	}
	return created, nil
}

func buildSyntheticOrder(globalIdx int, rnd *rand.Rand, cat *catalog.Store, products []catalog.Product, now time.Time) (order.Order, error) {
	lines := rnd.Intn(3) + 1
	entries := make([]cart.Entry, 0, lines)
	for len(entries) < lines {
		p := products[rnd.Intn(len(products))]
		if containsProduct(entries, p.ID) {
			if len(entries) == len(products) {
				break
			}
			continue
		}
		entries = append(entries, cart.Entry{ProductID: p.ID, Quantity: rnd.Intn(3) + 1})
	}

	customerNo := rnd.Intn(40) + 1
	delivery := randomChoice([]order.DeliveryMethod{order.DeliveryStandard, order.DeliveryStandard, order.DeliveryExpress}, rnd)
	created := now.Add(-time.Duration(rnd.Intn(365*24*60)) * time.Minute)

	checkout := order.Checkout{
		Customer: order.CustomerInfo{
			Name:     customerName(customerNo),
			Phone:    randomPhone(rnd),
			Email:    customerEmail(customerNo),
			Address:  fmt.Sprintf("%d %s", rnd.Intn(300)+1, randomChoice(streets, rnd)),
			City:     randomChoice(cities, rnd),
			District: fmt.Sprintf("Quận %d", rnd.Intn(12)+1),
		},
		PaymentMethod:  randomChoice(payments, rnd),
		DeliveryMethod: delivery,
		Note:           randomChoice(notes, rnd),
	}
	checkout.ShippingCost = order.ShippingCost(delivery, cart.Value(cat, entries))

	o, err := order.Build(cat, customerEmail(customerNo), entries, checkout, created)
	if err != nil {
		return order.Order{}, fmt.Errorf("synthetic order %d: %w", globalIdx, err)
	}
	o.Status, o.StatusHistory = syntheticHistory(randomChoiceWeighted(order.Statuses, rnd), created, rnd)
	return o, nil
}

// syntheticHistory walks the usual fulfilment path up to final.
func syntheticHistory(final order.Status, created time.Time, rnd *rand.Rand) (order.Status, []order.StatusChange) {
	var path []order.Status
	switch final {
	case order.StatusProcessing:
		path = []order.Status{order.StatusProcessing}
	case order.StatusShipped:
		path = []order.Status{order.StatusProcessing, order.StatusShipped}
	case order.StatusDelivered:
		path = []order.Status{order.StatusProcessing, order.StatusShipped, order.StatusDelivered}
	case order.StatusCancelled:
		if rnd.Intn(2) == 0 {
			path = []order.Status{order.StatusCancelled}
		} else {
			path = []order.Status{order.StatusProcessing, order.StatusCancelled}
		}
	}

	history := make([]order.StatusChange, 0, len(path))
	at := created
	for _, s := range path {
		at = at.Add(time.Duration(rnd.Intn(48)+1) * time.Hour)
		history = append(history, order.StatusChange{
			Status:    s,
			Timestamp: at,
			Note:      statusNotes[s],
			UpdatedBy: "admin",
		})
	}
	if len(path) == 0 {
		return order.StatusPending, history
	}
	return final, history
}

func containsProduct(entries []cart.Entry, id catalog.ProductID) bool {
	for _, e := range entries {
		if e.ProductID == id {
			return true
		}
	}
	return false
}

func customerName(n int) string {
	return fmt.Sprintf("Khách hàng %03d", n)
}

func customerEmail(n int) string {
	return fmt.Sprintf("reader%03d@example.com", n)
}

var (
	cities   = []string{"Hà Nội", "Hồ Chí Minh", "Đà Nẵng", "Cần Thơ", "Hải Phòng"}
	streets  = []string{"Lê Lợi", "Nguyễn Huệ", "Trần Hưng Đạo", "Hai Bà Trưng", "Lý Thường Kiệt"}
	payments = []order.PaymentMethod{order.PaymentCOD, order.PaymentBankTransfer, order.PaymentCard, order.PaymentEWallet}
	notes    = []string{
		"",
		"",
		"Giao giờ hành chính.",
		"Gói quà giúp mình nhé.",
		"Gọi trước khi giao.",
	}
	statusNotes = map[order.Status]string{
		order.StatusProcessing: "Đang chuẩn bị hàng",
		order.StatusShipped:    "Đã giao cho đơn vị vận chuyển",
		order.StatusDelivered:  "Giao hàng thành công",
		order.StatusCancelled:  "Đơn hàng đã hủy",
	}
	statusWeights = map[order.Status]int{
		order.StatusPending:    15,
		order.StatusProcessing: 15,
		order.StatusShipped:    15,
		order.StatusDelivered:  45,
		order.StatusCancelled:  10,
	}
)

func randomChoice[T any](items []T, rnd *rand.Rand) T {
	return items[rnd.Intn(len(items))]
}

func randomChoiceWeighted(items []order.Status, rnd *rand.Rand) order.Status {
	total := 0
	for _, item := range items {
		total += statusWeights[item]
	}
	n := rnd.Intn(total)
	for _, item := range items {
		n -= statusWeights[item]
		if n < 0 {
			return item
		}
	}
	return items[0]
}

func randomPhone(rnd *rand.Rand) string {
	prefixes := []string{"090", "091", "098", "097", "086"}
	prefix := prefixes[rnd.Intn(len(prefixes))]
	return fmt.Sprintf("%s%07d", prefix, rnd.Intn(10000000))
}

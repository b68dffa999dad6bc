package order

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"bookself/internal/cart"
	"bookself/internal/catalog"
)

const (
	StandardShippingCost int64 = 30000
	ExpressShippingCost  int64 = 50000
	// FreeShippingThreshold waives standard shipping for large orders.
	FreeShippingThreshold int64 = 500000
)

// ShippingCost prices delivery for an order of the given subtotal.
func ShippingCost(method DeliveryMethod, subtotal int64) int64 {
	switch method {
	case DeliveryExpress:
		return ExpressShippingCost
	default:
		if subtotal >= FreeShippingThreshold {
			return 0
		}
		return StandardShippingCost
	}
}

// Checkout holds the choices made on the checkout form.
type Checkout struct {
	Customer       CustomerInfo
	ShippingCost   int64
	PaymentMethod  PaymentMethod
	DeliveryMethod DeliveryMethod
	Note           string
}

// Validate reports every missing or malformed field at once.
func (c Checkout) Validate() error {
	var fields []string
	required := []struct {
		name  string
		value string
	}{
		{"name", c.Customer.Name},
		{"phone", c.Customer.Phone},
		{"email", c.Customer.Email},
		{"address", c.Customer.Address},
		{"city", c.Customer.City},
		{"district", c.Customer.District},
		{"paymentMethod", string(c.PaymentMethod)},
		{"deliveryMethod", string(c.DeliveryMethod)},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			fields = append(fields, f.name)
		}
	}
	if email := strings.TrimSpace(c.Customer.Email); email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			fields = append(fields, "email")
		}
	}
	if c.ShippingCost < 0 {
		fields = append(fields, "shippingCost")
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Build creates a pending order from a cart snapshot without persisting it.
// The returned order has no id yet.
func Build(cat *catalog.Store, userID string, entries []cart.Entry, checkout Checkout, now time.Time) (Order, error) {
	if strings.TrimSpace(userID) == "" {
		return Order{}, ErrNotAuthenticated
	}
	if len(entries) == 0 {
		return Order{}, ErrEmptyCart
	}
	if err := checkout.Validate(); err != nil {
		return Order{}, err
	}

	items := make([]Item, 0, len(entries))
	var subtotal int64
	for _, e := range entries {
		if e.Quantity < 1 {
			continue
		}
		p, err := cat.Get(e.ProductID)
		if err != nil {
			return Order{}, fmt.Errorf("build order: %w", err)
		}
		line := p.Price * int64(e.Quantity)
		items = append(items, Item{
			ProductID: p.ID,
			Title:     p.Title,
			Author:    p.Author,
			Price:     p.Price,
			Quantity:  e.Quantity,
			LineTotal: line,
			Image:     p.Cover(),
		})
		subtotal += line
	}
	if len(items) == 0 {
		return Order{}, ErrEmptyCart
	}

	return Order{
		UserID:         userID,
		Items:          items,
		Customer:       trimCustomer(checkout.Customer),
		Subtotal:       subtotal,
		ShippingCost:   checkout.ShippingCost,
		Status:         StatusPending,
		CreatedAt:      now,
		StatusHistory:  make([]StatusChange, 0),
		PaymentMethod:  checkout.PaymentMethod,
		DeliveryMethod: checkout.DeliveryMethod,
		Note:           strings.TrimSpace(checkout.Note),
	}, nil
}

func trimCustomer(c CustomerInfo) CustomerInfo {
	return CustomerInfo{
		Name:     strings.TrimSpace(c.Name),
		Phone:    strings.TrimSpace(c.Phone),
		Email:    strings.TrimSpace(c.Email),
		Address:  strings.TrimSpace(c.Address),
		City:     strings.TrimSpace(c.City),
		District: strings.TrimSpace(c.District),
	}
}

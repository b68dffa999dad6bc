// Package checkout turns the current cart into an order for the signed-in user.
package checkout

import (
	"context"
	"fmt"

	"bookself/internal/cart"
	"bookself/internal/catalog"
	"bookself/internal/order"
	"bookself/internal/session"

	"go.uber.org/zap"
)

// Request is the checkout form.
type Request struct {
	Customer order.CustomerInfo
	Payment  order.PaymentMethod
	Delivery order.DeliveryMethod
	Note     string
}

// Quote is the price summary shown before an order is placed.
type Quote struct {
	Items    int
	Subtotal int64
	Shipping int64
	Total    int64
}

// Service coordinates session, cart and orders.
type Service struct {
	session session.Provider
	cart    *cart.Manager
	orders  *order.Manager
	catalog *catalog.Store
	logger  *zap.Logger
}

// NewService returns a checkout service.
func NewService(sp session.Provider, carts *cart.Manager, orders *order.Manager, cat *catalog.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		session: sp,
		cart:    carts,
		orders:  orders,
		catalog: cat,
		logger:  logger,
	}
}

// Quote prices the current cart for the given delivery method.
func (s *Service) Quote(ctx context.Context, delivery order.DeliveryMethod) (Quote, error) {
	entries, err := s.cart.Entries(ctx)
	if err != nil {
		return Quote{}, err
	}
	return quote(s.catalog, entries, delivery), nil
}

func quote(cat *catalog.Store, entries []cart.Entry, delivery order.DeliveryMethod) Quote {
	subtotal := cart.Value(cat, entries)
	shipping := order.ShippingCost(delivery, subtotal)
	return Quote{
		Items:    cart.ItemCount(entries),
		Subtotal: subtotal,
		Shipping: shipping,
		Total:    subtotal + shipping,
	}
}

// Place creates an order from the persisted cart and then clears the cart.
// If clearing fails the order still exists and is returned with the error.
func (s *Service) Place(ctx context.Context, req Request) (order.Order, error) {
	userID, _ := s.session.CurrentUserID()

	entries, err := s.cart.Entries(ctx)
	if err != nil {
		return order.Order{}, err
	}
	q := quote(s.catalog, entries, req.Delivery)

	o, err := s.orders.CreateFromCart(ctx, userID, entries, order.Checkout{
		Customer:       req.Customer,
		ShippingCost:   q.Shipping,
		PaymentMethod:  req.Payment,
		DeliveryMethod: req.Delivery,
		Note:           req.Note,
	})
	if err != nil {
		return order.Order{}, err
	}

	if err := s.cart.Clear(ctx); err != nil {
		s.logger.Error("order placed but cart not cleared",
			zap.Int("order_id", o.ID),
			zap.Error(err))
		return o, fmt.Errorf("order %d placed: %w", o.ID, err)
	}
	return o, nil
}

// Package order turns cart snapshots into orders and tracks their status.
package order

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"bookself/internal/catalog"
)

// CollectionName is the storage key of the order list.
const CollectionName = "orders"

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrNotAuthenticated  = errors.New("not authenticated")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidStatus     = errors.New("unknown order status")
)

// ValidationError lists the checkout fields that are missing or malformed.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing or invalid checkout fields: " + strings.Join(e.Fields, ", ")
}

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled}

// ParseStatus validates s.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Statuses {
		if st == known {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// PaymentMethod is how the customer pays. Payment is never processed here.
type PaymentMethod string

const (
	PaymentCOD          PaymentMethod = "cod"
	PaymentBankTransfer PaymentMethod = "bank-transfer"
	PaymentCard         PaymentMethod = "card"
	PaymentEWallet      PaymentMethod = "e-wallet"
)

// DeliveryMethod is the shipping option chosen at checkout.
type DeliveryMethod string

const (
	DeliveryStandard DeliveryMethod = "standard"
	DeliveryExpress  DeliveryMethod = "express"
)

// Item is a frozen copy of the product data at purchase time.
type Item struct {
	ProductID catalog.ProductID `json:"productId"`
	Title     string            `json:"title"`
	Author    string            `json:"author"`
	Price     int64             `json:"price"`
	Quantity  int               `json:"quantity"`
	LineTotal int64             `json:"lineTotal"`
	Image     string            `json:"image"`
}

// CustomerInfo is the shipping contact entered at checkout.
type CustomerInfo struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Address  string `json:"address"`
	City     string `json:"city"`
	District string `json:"district"`
}

// StatusChange is one entry of the append-only status history.
type StatusChange struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note"`
	UpdatedBy string    `json:"updatedBy"`
}

// Order is a placed order. Items and amounts never change after creation;
// only Status and StatusHistory do.
type Order struct {
	ID             int            `json:"id"`
	UserID         string         `json:"userId"`
	Items          []Item         `json:"items"`
	Customer       CustomerInfo   `json:"customerInfo"`
	Subtotal       int64          `json:"subtotal"`
	ShippingCost   int64          `json:"shippingCost"`
	Status         Status         `json:"status"`
	CreatedAt      time.Time      `json:"createdAt"`
	StatusHistory  []StatusChange `json:"statusHistory"`
	PaymentMethod  PaymentMethod  `json:"paymentMethod"`
	DeliveryMethod DeliveryMethod `json:"deliveryMethod"`
	Note           string         `json:"note,omitempty"`
}

// Total is always subtotal plus shipping.
func (o Order) Total() int64 {
	return o.Subtotal + o.ShippingCost
}

// ItemCount sums the item quantities.
func (o Order) ItemCount() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}

// MarshalJSON adds the derived total for readers of the persisted form.
// The stored total is ignored on decode and recomputed from its parts.
func (o Order) MarshalJSON() ([]byte, error) {
	type plain Order
	return json.Marshal(struct {
		plain
		Total int64 `json:"total"`
	}{plain(o), o.Total()})
}

func (o Order) clone() Order {
	o.Items = append([]Item(nil), o.Items...)
	o.StatusHistory = append(make([]StatusChange, 0, len(o.StatusHistory)+1), o.StatusHistory...)
	return o
}

package model

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus describes storefront order lifecycle inside the relay.
type OrderStatus string

const (
	OrderStatusReceived   OrderStatus = "received"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusFulfilled  OrderStatus = "fulfilled"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// HasProvider reports whether orders in this status carry an assigned provider.
func (s OrderStatus) HasProvider() bool {
	return s == OrderStatusProcessing || s == OrderStatusFulfilled
}

// ShippingAddress is the destination of an order. Country drives provider routing.
type ShippingAddress struct {
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
}

// Order is a paid storefront order accepted for fulfillment.
type Order struct {
	ID                  uuid.UUID
	StorefrontOrderID   string
	CustomerEmail       string
	CustomerName        string
	Shipping            ShippingAddress
	TotalCents          int64
	Currency            string
	Status              OrderStatus
	FulfillmentProvider *Provider
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// OrderItem is a single line of an order.
type OrderItem struct {
	ID             uuid.UUID
	OrderID        uuid.UUID
	ProductID      string
	VariantID      string
	Name           string
	Quantity       int
	UnitPriceCents int64
}

// OrderWithItems bundles an order with its line items.
type OrderWithItems struct {
	Order Order
	Items []OrderItem
}

// Storefront event types handled by the relay.
const (
	StorefrontOrderPaid      = "order.paid"
	StorefrontOrderCancelled = "order.cancelled"
)

// StorefrontEvent is a decoded storefront webhook. Order and Items are set for paid orders only.
type StorefrontEvent struct {
	Type              string
	StorefrontOrderID string
	Order             *Order
	Items             []OrderItem
}

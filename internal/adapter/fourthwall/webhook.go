package fourthwall

import (
	"encoding/json"
	"fmt"

	domainErrors "github.com/polkiloo/fulfillrelay/internal/domain/errors"
	"github.com/polkiloo/fulfillrelay/internal/domain/model"
)

// Webhook is the storefront event envelope.
type Webhook struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		ID         string          `json:"id"`
		Type       string          `json:"type"`
		Attributes OrderAttributes `json:"attributes"`
	} `json:"data"`
	CreatedAt string `json:"created_at"`
}

// Money is an amount in minor units.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// OrderAttributes describes the storefront order carried by the event.
type OrderAttributes struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Total    Money  `json:"total"`
	Customer struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"customer"`
	ShippingAddress struct {
		Line1      string `json:"line1"`
		Line2      string `json:"line2"`
		City       string `json:"city"`
		State      string `json:"state"`
		PostalCode string `json:"postal_code"`
		Country    string `json:"country"`
	} `json:"shipping_address"`
	LineItems []LineItem `json:"line_items"`
}

// LineItem is a purchased product line.
type LineItem struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Price     Money  `json:"price"`
}

// ParseWebhook decodes a storefront event.
func ParseWebhook(payload []byte) (*Webhook, error) {
	var hook Webhook
	if err := json.Unmarshal(payload, &hook); err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrInvalidPayload, err)
	}
	if hook.Type == "" {
		return nil, fmt.Errorf("%w: missing event type", domainErrors.ErrInvalidPayload)
	}
	return &hook, nil
}

// OrderID returns the storefront order id of the event.
func (w *Webhook) OrderID() string {
	if w.Data.Attributes.ID != "" {
		return w.Data.Attributes.ID
	}
	return w.Data.ID
}

// Order converts the event attributes into a received order and its items.
func (w *Webhook) Order() (*model.Order, []model.OrderItem, error) {
	attrs := w.Data.Attributes
	if w.OrderID() == "" {
		return nil, nil, fmt.Errorf("%w: missing order id", domainErrors.ErrInvalidPayload)
	}

	order := &model.Order{
		StorefrontOrderID: w.OrderID(),
		CustomerEmail:     attrs.Customer.Email,
		CustomerName:      attrs.Customer.Name,
		Shipping: model.ShippingAddress{
			Line1:      attrs.ShippingAddress.Line1,
			Line2:      attrs.ShippingAddress.Line2,
			City:       attrs.ShippingAddress.City,
			State:      attrs.ShippingAddress.State,
			PostalCode: attrs.ShippingAddress.PostalCode,
			Country:    attrs.ShippingAddress.Country,
		},
		TotalCents: attrs.Total.Amount,
		Currency:   attrs.Total.Currency,
		Status:     model.OrderStatusReceived,
	}

	items := make([]model.OrderItem, 0, len(attrs.LineItems))
	for _, line := range attrs.LineItems {
		if line.Quantity <= 0 {
			return nil, nil, fmt.Errorf("%w: line item %s has quantity %d", domainErrors.ErrInvalidPayload, line.ID, line.Quantity)
		}
		items = append(items, model.OrderItem{
			ProductID:      line.ProductID,
			VariantID:      line.VariantID,
			Name:           line.Name,
			Quantity:       line.Quantity,
			UnitPriceCents: line.Price.Amount,
		})
	}
	return order, items, nil
}

// ParseOrderEvent decodes payload into a storefront event. Only paid orders carry the order body.
func (c *Client) ParseOrderEvent(payload []byte) (*model.StorefrontEvent, error) {
	hook, err := ParseWebhook(payload)
	if err != nil {
		return nil, err
	}
	event := &model.StorefrontEvent{Type: hook.Type, StorefrontOrderID: hook.OrderID()}
	if hook.Type != model.StorefrontOrderPaid {
		return event, nil
	}
	event.Order, event.Items, err = hook.Order()
	if err != nil {
		return nil, err
	}
	return event, nil
}

package fourthwall

import (
	"errors"
	"testing"

	domainErrors "github.com/polkiloo/fulfillrelay/internal/domain/errors"
	"github.com/polkiloo/fulfillrelay/internal/domain/model"
)

const paidPayload = `{
  "id": "evt_1",
  "type": "order.paid",
  "data": {
    "id": "fw-1",
    "type": "order",
    "attributes": {
      "id": "fw-1",
      "status": "paid",
      "total": {"amount": 2500, "currency": "USD"},
      "customer": {"email": "ann@example.com", "name": "Ann"},
      "shipping_address": {"line1": "1 Main", "city": "Springfield", "postal_code": "62701", "country": "CA"},
      "line_items": [
        {"id": "li_1", "product_id": "P1", "variant_id": "V1", "name": "Album", "quantity": 2, "price": {"amount": 1000, "currency": "USD"}}
      ]
    }
  },
  "created_at": "2024-01-01T00:00:00Z"
}`

func TestParseWebhookOrder(t *testing.T) {
	hook, err := ParseWebhook([]byte(paidPayload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hook.Type != model.StorefrontOrderPaid || hook.OrderID() != "fw-1" {
		t.Fatalf("unexpected hook: %+v", hook)
	}

	order, items, err := hook.Order()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.StorefrontOrderID != "fw-1" || order.Status != model.OrderStatusReceived || order.TotalCents != 2500 || order.Shipping.Country != "CA" {
		t.Fatalf("unexpected order: %+v", order)
	}
	if len(items) != 1 || items[0].Quantity != 2 || items[0].UnitPriceCents != 1000 || items[0].VariantID != "V1" {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestParseWebhookInvalid(t *testing.T) {
	if _, err := ParseWebhook([]byte("{")); !errors.Is(err, domainErrors.ErrInvalidPayload) {
		t.Fatalf("expected invalid payload, got %v", err)
	}
	if _, err := ParseWebhook([]byte(`{"id":"x"}`)); !errors.Is(err, domainErrors.ErrInvalidPayload) {
		t.Fatalf("expected invalid payload, got %v", err)
	}
}

func TestOrderRejectsBadLines(t *testing.T) {
	hook := &Webhook{Type: model.StorefrontOrderPaid}
	if _, _, err := hook.Order(); !errors.Is(err, domainErrors.ErrInvalidPayload) {
		t.Fatalf("expected missing id error, got %v", err)
	}

	hook.Data.ID = "fw-2"
	hook.Data.Attributes.LineItems = []LineItem{{ID: "li", ProductID: "P", Quantity: 0}}
	if _, _, err := hook.Order(); !errors.Is(err, domainErrors.ErrInvalidPayload) {
		t.Fatalf("expected quantity error, got %v", err)
	}
}

func TestClientParseOrderEvent(t *testing.T) {
	client := &Client{}

	event, err := client.ParseOrderEvent([]byte(paidPayload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.StorefrontOrderID != "fw-1" || event.Order == nil || len(event.Items) != 1 {
		t.Fatalf("unexpected event: %+v", event)
	}

	event, err = client.ParseOrderEvent([]byte(`{"type":"order.cancelled","data":{"id":"fw-1"}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Type != model.StorefrontOrderCancelled || event.StorefrontOrderID != "fw-1" || event.Order != nil {
		t.Fatalf("unexpected cancellation event: %+v", event)
	}

	bad := `{"type":"order.paid","data":{"id":"fw-3","attributes":{"line_items":[{"id":"li","quantity":-1}]}}}`
	if _, err := client.ParseOrderEvent([]byte(bad)); !errors.Is(err, domainErrors.ErrInvalidPayload) {
		t.Fatalf("expected invalid payload, got %v", err)
	}
}

package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/polkiloo/fulfillrelay/internal/adapter/fourthwall"
	domainErrors "github.com/polkiloo/fulfillrelay/internal/domain/errors"
	"github.com/polkiloo/fulfillrelay/internal/domain/model"
	testhelpers "github.com/polkiloo/fulfillrelay/internal/test"
)

const (
	paidOrderPayload = `{"type":"order.paid","data":{"id":"fw-100","attributes":{"id":"fw-100",
"total":{"amount":1500,"currency":"USD"},"customer":{"email":"a@example.com","name":"A"},
"shipping_address":{"line1":"1 Main","city":"Austin","postal_code":"73301","country":"US"},
"line_items":[{"id":"li","product_id":"P1","name":"Album","quantity":1,"price":{"amount":1500,"currency":"USD"}}]}}}`
	cancelledOrderPayload = `{"type":"order.cancelled","data":{"id":"fw-100"}}`
)

func newIntake(orders *testhelpers.OrderRepositoryStub) *IntakeService {
	return NewIntakeService(orders, &fourthwall.Client{}, testhelpers.DiscardLogger())
}

func TestIngestPaidOrderCreatesOrder(t *testing.T) {
	orders := testhelpers.NewOrderRepositoryStub()
	intake := newIntake(orders)

	id, err := intake.IngestPaidOrder(context.Background(), []byte(paidOrderPayload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == uuid.Nil {
		t.Fatal("expected order id")
	}

	owi, err := orders.GetWithItems(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if owi.Order.StorefrontOrderID != "fw-100" || owi.Order.Status != model.OrderStatusReceived || owi.Order.Shipping.Country != "US" {
		t.Fatalf("unexpected order: %+v", owi.Order)
	}
	if len(owi.Items) != 1 || owi.Items[0].OrderID != id {
		t.Fatalf("unexpected items: %+v", owi.Items)
	}
}

func TestIngestPaidOrderDeduplicates(t *testing.T) {
	orders := testhelpers.NewOrderRepositoryStub()
	intake := newIntake(orders)

	first, err := intake.IngestPaidOrder(context.Background(), []byte(paidOrderPayload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	id, err := intake.IngestPaidOrder(context.Background(), []byte(paidOrderPayload))
	if err != nil || id != first {
		t.Fatalf("expected received duplicate to resolve to %s, got %s %v", first, id, err)
	}
	if len(orders.Orders) != 1 {
		t.Fatalf("expected a single stored order, got %d", len(orders.Orders))
	}

	if err := orders.UpdateStatus(context.Background(), first, model.OrderStatusProcessing); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	id, err = intake.IngestPaidOrder(context.Background(), []byte(paidOrderPayload))
	if err != nil || id != uuid.Nil {
		t.Fatalf("expected routed duplicate to be skipped, got %s %v", id, err)
	}
}

func TestIngestPaidOrderIgnoresOtherEvents(t *testing.T) {
	orders := testhelpers.NewOrderRepositoryStub()
	orders.CreateErr = errors.New("must not be called")

	id, err := newIntake(orders).IngestPaidOrder(context.Background(), []byte(`{"type":"order.refunded","data":{"id":"fw-1"}}`))
	if err != nil || id != uuid.Nil {
		t.Fatalf("expected event to be ignored, got %s %v", id, err)
	}
}

func TestIngestPaidOrderErrors(t *testing.T) {
	orders := testhelpers.NewOrderRepositoryStub()
	intake := newIntake(orders)

	if _, err := intake.IngestPaidOrder(context.Background(), []byte("not json")); !errors.Is(err, domainErrors.ErrInvalidPayload) {
		t.Fatalf("expected invalid payload, got %v", err)
	}

	orders.CreateErr = domainErrors.ErrAlreadyExists
	if _, err := intake.IngestPaidOrder(context.Background(), []byte(paidOrderPayload)); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected lookup after conflict to fail, got %v", err)
	}

	orders.CreateErr = errors.New("db down")
	if _, err := intake.IngestPaidOrder(context.Background(), []byte(paidOrderPayload)); err == nil {
		t.Fatal("expected storage error")
	}
}

func TestResolveCancellation(t *testing.T) {
	orders := testhelpers.NewOrderRepositoryStub()
	intake := newIntake(orders)

	id, err := intake.ResolveCancellation(context.Background(), []byte(cancelledOrderPayload))
	if err != nil || id != uuid.Nil {
		t.Fatalf("expected unknown order to resolve to nil, got %s %v", id, err)
	}

	want := orders.Add(model.Order{StorefrontOrderID: "fw-100"})
	id, err = intake.ResolveCancellation(context.Background(), []byte(cancelledOrderPayload))
	if err != nil || id != want {
		t.Fatalf("expected %s, got %s %v", want, id, err)
	}

	if _, err := intake.ResolveCancellation(context.Background(), []byte(`{"type":"order.cancelled"}`)); !errors.Is(err, domainErrors.ErrInvalidPayload) {
		t.Fatalf("expected invalid payload, got %v", err)
	}
}

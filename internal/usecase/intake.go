package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	domainErrors "github.com/polkiloo/fulfillrelay/internal/domain/errors"
	"github.com/polkiloo/fulfillrelay/internal/domain/model"
	"github.com/polkiloo/fulfillrelay/internal/domain/repository"
)

// IntakeService turns storefront webhooks into stored orders.
type IntakeService struct {
	orders repository.OrderRepository
	parser StorefrontParser
	logger *slog.Logger
}

// NewIntakeService constructs IntakeService.
func NewIntakeService(orders repository.OrderRepository, parser StorefrontParser, logger *slog.Logger) *IntakeService {
	return &IntakeService{orders: orders, parser: parser, logger: logger}
}

// IngestPaidOrder stores the paid order carried by payload and returns the id to fulfill.
// A redelivered order that is still received returns its existing id, so its
// fulfillment task is published again. It returns uuid.Nil when there is nothing to fulfill.
func (s *IntakeService) IngestPaidOrder(ctx context.Context, payload []byte) (uuid.UUID, error) {
	event, err := s.parser.ParseOrderEvent(payload)
	if err != nil {
		return uuid.Nil, err
	}
	log := s.logger.With(slog.String("storefront_order_id", event.StorefrontOrderID))

	if event.Type != model.StorefrontOrderPaid {
		log.Info("ignoring storefront event", slog.String("type", event.Type))
		return uuid.Nil, nil
	}

	existing, err := s.orders.GetByStorefrontID(ctx, event.StorefrontOrderID)
	switch {
	case err == nil:
		return s.pendingID(log, existing), nil
	case !errors.Is(err, domainErrors.ErrNotFound):
		return uuid.Nil, fmt.Errorf("lookup order: %w", err)
	}

	if err := s.orders.CreateWithItems(ctx, event.Order, event.Items); err != nil {
		if !errors.Is(err, domainErrors.ErrAlreadyExists) {
			return uuid.Nil, fmt.Errorf("create order: %w", err)
		}
		existing, err := s.orders.GetByStorefrontID(ctx, event.StorefrontOrderID)
		if err != nil {
			return uuid.Nil, fmt.Errorf("lookup order: %w", err)
		}
		return s.pendingID(log, existing), nil
	}

	log.Info("order received", slog.String("order_id", event.Order.ID.String()), slog.Int("items", len(event.Items)))
	return event.Order.ID, nil
}

func (s *IntakeService) pendingID(log *slog.Logger, order *model.Order) uuid.UUID {
	if order.Status != model.OrderStatusReceived {
		log.Info("order already routed", slog.String("status", string(order.Status)))
		return uuid.Nil
	}
	log.Info("order already received, requeueing", slog.String("order_id", order.ID.String()))
	return order.ID
}

// ResolveCancellation returns the id of the order a storefront cancellation refers to.
// It returns uuid.Nil for orders the relay never received.
func (s *IntakeService) ResolveCancellation(ctx context.Context, payload []byte) (uuid.UUID, error) {
	event, err := s.parser.ParseOrderEvent(payload)
	if err != nil {
		return uuid.Nil, err
	}
	if event.StorefrontOrderID == "" {
		return uuid.Nil, fmt.Errorf("%w: missing order id", domainErrors.ErrInvalidPayload)
	}

	order, err := s.orders.GetByStorefrontID(ctx, event.StorefrontOrderID)
	if errors.Is(err, domainErrors.ErrNotFound) {
		s.logger.Warn("cancellation for unknown order", slog.String("storefront_order_id", event.StorefrontOrderID))
		return uuid.Nil, nil
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("lookup order: %w", err)
	}
	return order.ID, nil
}

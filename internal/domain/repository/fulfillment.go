package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/polkiloo/fulfillrelay/internal/domain/model"
)

// FulfillmentRepository describes persistence of provider submissions.
type FulfillmentRepository interface {
	Create(ctx context.Context, orderID uuid.UUID, provider model.Provider) (*model.FulfillmentOrder, error)
	GetByProviderOrderID(ctx context.Context, providerOrderID string, provider model.Provider) (*model.FulfillmentOrder, error)
	// GetByOrderID returns the latest record of the order.
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*model.FulfillmentOrder, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.FulfillmentStatus, update model.FulfillmentUpdate) error
	IncrementRetryCount(ctx context.Context, id uuid.UUID) error
	// ListAwaitingStatus returns submitted or processing records with a provider order id.
	ListAwaitingStatus(ctx context.Context, provider model.Provider) ([]model.FulfillmentOrder, error)
	ListRetryable(ctx context.Context, maxRetries int) ([]model.FulfillmentOrder, error)
}

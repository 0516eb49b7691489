package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/polkiloo/fulfillrelay/internal/domain/model"
)

// OrderRepository describes persistence operations with orders and their items.
type OrderRepository interface {
	// CreateWithItems stores a received order and its items atomically.
	CreateWithItems(ctx context.Context, order *model.Order, items []model.OrderItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	GetByStorefrontID(ctx context.Context, storefrontOrderID string) (*model.Order, error)
	GetWithItems(ctx context.Context, id uuid.UUID) (*model.OrderWithItems, error)
	// UpdateStatus changes status; leaving a provider-bearing status clears the assignment.
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) error
	// ClaimForProvider moves a received order to processing under provider.
	// It reports false when the order is no longer received.
	ClaimForProvider(ctx context.Context, id uuid.UUID, provider model.Provider) (bool, error)
}

package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/polkiloo/fulfillrelay/internal/domain/model"
)

// WebhookRepository stores the inbound webhook audit trail.
type WebhookRepository interface {
	Create(ctx context.Context, source model.WebhookSource, eventType string, payload []byte) (*model.WebhookEvent, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.WebhookEvent, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	// MarkError records the failure and increments retry_count.
	MarkError(ctx context.Context, id uuid.UUID, message string) error
	ListRetryable(ctx context.Context, maxRetries int) ([]model.WebhookEvent, error)
	// DeleteProcessedBefore purges processed events created before cutoff.
	DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

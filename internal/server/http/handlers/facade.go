package handlers

import (
	"context"

	"github.com/polkiloo/fulfillrelay/internal/domain/model"
)

// WebhookFacade accepts verified webhook deliveries.
type WebhookFacade interface {
	RecordWebhook(ctx context.Context, source model.WebhookSource, payload []byte) error
	HandleGitHubEvent(ctx context.Context, eventType string, payload []byte) error
}

// HealthFacade reports dependency health.
type HealthFacade interface {
	HealthCheck(ctx context.Context) error
}

// RelayFacade aggregates the operations used across handlers.
type RelayFacade interface {
	WebhookFacade
	HealthFacade
}

package usecase

import (
	"context"

	"github.com/polkiloo/fulfillrelay/internal/domain/model"
)

// FulfillmentProvider submits orders to an external fulfillment vendor.
type FulfillmentProvider interface {
	Name() model.Provider
	CanFulfill(order *model.Order) bool
	SubmitOrder(ctx context.Context, order *model.Order, items []model.OrderItem) model.FulfillmentResult
	NormalizeStatus(status string) model.FulfillmentStatus
	CancelOrder(ctx context.Context, providerOrderID string) bool
}

// StatusPoller is implemented by providers whose status has to be fetched.
type StatusPoller interface {
	CheckStatus(ctx context.Context, providerOrderID string) (*model.ProviderStatus, error)
}

// WebhookParser is implemented by providers that push status changes.
type WebhookParser interface {
	ParseWebhook(payload []byte) (*model.ProviderStatus, error)
}

// TrackingPublisher forwards shipment tracking to the storefront.
type TrackingPublisher interface {
	PushTracking(ctx context.Context, storefrontOrderID, trackingNumber, trackingURL, carrier string) error
}

// StorefrontParser decodes storefront webhooks.
type StorefrontParser interface {
	ParseOrderEvent(payload []byte) (*model.StorefrontEvent, error)
}

// TaskPublisher enqueues asynchronous work.
type TaskPublisher interface {
	Publish(ctx context.Context, task model.Task) error
}

// GitHubAPI is the slice of the GitHub REST API used by the approval gate.
type GitHubAPI interface {
	ListReviews(ctx context.Context, ref model.PullRequestRef) ([]model.Review, error)
	// FindCheckRun returns ErrNotFound when the head has no check with that name.
	FindCheckRun(ctx context.Context, ref model.PullRequestRef, name string) (*model.CheckRun, error)
	CreateCheckRun(ctx context.Context, ref model.PullRequestRef, name string, output model.CheckOutput) (*model.CheckRun, error)
	CompleteCheckRun(ctx context.Context, ref model.PullRequestRef, id int64, name, conclusion string, output model.CheckOutput) error
}

// GitHubGateway parses GitHub webhooks and builds installation scoped clients.
type GitHubGateway interface {
	ParseEvent(eventType string, payload []byte) (*model.GateEvent, error)
	ForInstallation(installationID int64) (GitHubAPI, error)
}

// AllowListSource loads the reviewer allow-list.
type AllowListSource interface {
	Fetch(ctx context.Context) ([]model.AllowedUser, error)
}

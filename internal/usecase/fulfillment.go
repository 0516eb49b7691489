package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.uber.org/fx"

	"github.com/polkiloo/fulfillrelay/internal/config"
	domainErrors "github.com/polkiloo/fulfillrelay/internal/domain/errors"
	"github.com/polkiloo/fulfillrelay/internal/domain/model"
	"github.com/polkiloo/fulfillrelay/internal/domain/repository"
	"github.com/polkiloo/fulfillrelay/internal/metrics"
)

// FulfillmentEngineParams lists the dependencies of FulfillmentEngine.
type FulfillmentEngineParams struct {
	fx.In

	Config       *config.Config
	Orders       repository.OrderRepository
	Fulfillments repository.FulfillmentRepository
	// Providers are tried in order when routing an order.
	Providers []FulfillmentProvider
	Tracking  TrackingPublisher
	Tasks     TaskPublisher
	Metrics   *metrics.Metrics `optional:"true"`
	Logger    *slog.Logger
}

// FulfillmentEngine routes orders to providers and tracks their progress.
type FulfillmentEngine struct {
	orders       repository.OrderRepository
	fulfillments repository.FulfillmentRepository
	providers    []FulfillmentProvider
	tracking     TrackingPublisher
	tasks        TaskPublisher
	maxRetries   int
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

// NewFulfillmentEngine constructs FulfillmentEngine.
func NewFulfillmentEngine(p FulfillmentEngineParams) *FulfillmentEngine {
	return &FulfillmentEngine{
		orders:       p.Orders,
		fulfillments: p.Fulfillments,
		providers:    p.Providers,
		tracking:     p.Tracking,
		tasks:        p.Tasks,
		maxRetries:   p.Config.MaxRetries,
		metrics:      p.Metrics,
		logger:       p.Logger,
	}
}

// ProcessOrder routes a received order to the first eligible provider and submits it.
// Failures after the claim revert the order to received; a failed claim or revert is returned.
func (e *FulfillmentEngine) ProcessOrder(ctx context.Context, orderID uuid.UUID) error {
	log := e.logger.With(slog.String("order_id", orderID.String()))

	owi, err := e.orders.GetWithItems(ctx, orderID)
	if errors.Is(err, domainErrors.ErrNotFound) {
		log.Warn("order not found, skipping")
		return nil
	}
	if err != nil {
		return e.revert(ctx, log, orderID, fmt.Errorf("load order: %w", err))
	}

	order := &owi.Order
	if order.Status != model.OrderStatusReceived {
		log.Info("order already picked up", slog.String("status", string(order.Status)))
		return nil
	}

	provider := e.selectProvider(order)
	if provider == nil {
		cause := domainErrors.Recoverable(fmt.Errorf("%w for country %q", domainErrors.ErrNoProvider, order.Shipping.Country))
		return e.revert(ctx, log, orderID, cause)
	}
	log = log.With(slog.String("provider", string(provider.Name())))

	claimed, err := e.orders.ClaimForProvider(ctx, orderID, provider.Name())
	if err != nil {
		return domainErrors.Fatal(fmt.Errorf("claim order %s: %w", orderID, err))
	}
	if !claimed {
		log.Info("order claimed by another delivery")
		return nil
	}

	if err := e.submitNew(ctx, log, provider, owi); err != nil {
		return e.revert(ctx, log, orderID, err)
	}
	return nil
}

func (e *FulfillmentEngine) submitNew(ctx context.Context, log *slog.Logger, provider FulfillmentProvider, owi *model.OrderWithItems) error {
	orderID := owi.Order.ID

	record, err := e.fulfillments.Create(ctx, orderID, provider.Name())
	if err != nil {
		return fmt.Errorf("create fulfillment: %w", err)
	}

	result := provider.SubmitOrder(ctx, &owi.Order, owi.Items)
	e.metrics.Submission(string(provider.Name()), result.Success)

	if result.Success {
		if err := e.fulfillments.UpdateStatus(ctx, record.ID, model.FulfillmentStatusSubmitted, result.Update()); err != nil {
			return fmt.Errorf("mark submitted: %w", err)
		}
		log.Info("order submitted", slog.String("provider_order_id", result.ProviderOrderID))
		return nil
	}

	message := result.Error
	if err := e.fulfillments.UpdateStatus(ctx, record.ID, model.FulfillmentStatusFailed, model.FulfillmentUpdate{ErrorMessage: &message}); err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	log.Warn("provider rejected order", slog.String("error", message))
	e.scheduleRetry(ctx, log, orderID)
	return nil
}

func (e *FulfillmentEngine) scheduleRetry(ctx context.Context, log *slog.Logger, orderID uuid.UUID) {
	task, err := model.NewTask(model.TaskFulfillment, model.FulfillmentTaskData{OrderID: orderID})
	if err == nil {
		err = e.tasks.Publish(ctx, task)
	}
	if err != nil {
		log.Error("schedule retry failed", slog.String("error", err.Error()))
	}
}

func (e *FulfillmentEngine) revert(ctx context.Context, log *slog.Logger, orderID uuid.UUID, cause error) error {
	if domainErrors.IsRecoverable(cause) {
		log.Warn("order not routed", slog.String("error", cause.Error()))
	} else {
		log.Error("order processing failed", slog.String("error", cause.Error()))
	}

	if err := e.orders.UpdateStatus(ctx, orderID, model.OrderStatusReceived); err != nil {
		return domainErrors.Fatal(fmt.Errorf("revert order %s: %w", orderID, err))
	}
	return nil
}

func (e *FulfillmentEngine) selectProvider(order *model.Order) FulfillmentProvider {
	for _, p := range e.providers {
		if p.CanFulfill(order) {
			return p
		}
	}
	return nil
}

func (e *FulfillmentEngine) provider(name model.Provider) FulfillmentProvider {
	for _, p := range e.providers {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// SyncPolledStatuses refreshes in-flight records of every polling provider.
func (e *FulfillmentEngine) SyncPolledStatuses(ctx context.Context) error {
	for _, p := range e.providers {
		poller, ok := p.(StatusPoller)
		if !ok {
			continue
		}

		records, err := e.fulfillments.ListAwaitingStatus(ctx, p.Name())
		if err != nil {
			return domainErrors.Fatal(fmt.Errorf("list %s fulfillments: %w", p.Name(), err))
		}

		for i := range records {
			record := &records[i]
			if err := e.syncRecord(ctx, p, poller, record); err != nil {
				e.logger.Error("status sync failed",
					slog.String("fulfillment_id", record.ID.String()),
					slog.String("provider", string(p.Name())),
					slog.String("error", err.Error()))
			}
		}
	}
	return nil
}

func (e *FulfillmentEngine) syncRecord(ctx context.Context, p FulfillmentProvider, poller StatusPoller, record *model.FulfillmentOrder) error {
	if record.ProviderOrderID == nil {
		return nil
	}

	snapshot, err := poller.CheckStatus(ctx, *record.ProviderOrderID)
	if err != nil {
		return domainErrors.Recoverable(fmt.Errorf("check status: %w", err))
	}
	if snapshot.Error != "" {
		e.logger.Warn("provider reported status error",
			slog.String("provider_order_id", *record.ProviderOrderID),
			slog.String("error", snapshot.Error))
		return nil
	}
	return e.applyStatus(ctx, p, record, snapshot)
}

// ApplyPushedStatus applies a status change pushed by provider.
func (e *FulfillmentEngine) ApplyPushedStatus(ctx context.Context, provider model.Provider, payload []byte) error {
	p := e.provider(provider)
	parser, ok := p.(WebhookParser)
	if !ok {
		return fmt.Errorf("%w: %s cannot parse webhooks", domainErrors.ErrProviderMismatch, provider)
	}

	snapshot, err := parser.ParseWebhook(payload)
	if err != nil {
		return err
	}

	record, err := e.fulfillments.GetByProviderOrderID(ctx, snapshot.ProviderOrderID, provider)
	if errors.Is(err, domainErrors.ErrNotFound) {
		e.logger.Warn("unknown provider order",
			slog.String("provider", string(provider)),
			slog.String("provider_order_id", snapshot.ProviderOrderID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("find fulfillment: %w", err)
	}
	return e.applyStatus(ctx, p, record, snapshot)
}

func (e *FulfillmentEngine) applyStatus(ctx context.Context, p FulfillmentProvider, record *model.FulfillmentOrder, snapshot *model.ProviderStatus) error {
	status := p.NormalizeStatus(snapshot.Status)
	if status == record.Status {
		return nil
	}

	update := model.FulfillmentUpdate{
		TrackingNumber: nonEmpty(snapshot.TrackingNumber),
		TrackingURL:    nonEmpty(snapshot.TrackingURL),
		Carrier:        nonEmpty(snapshot.Carrier),
		ShippedAt:      snapshot.ShippedAt,
	}
	if err := e.fulfillments.UpdateStatus(ctx, record.ID, status, update); err != nil {
		return fmt.Errorf("update fulfillment: %w", err)
	}
	e.metrics.StatusTransition(string(p.Name()), string(status))
	e.logger.Info("fulfillment status changed",
		slog.String("fulfillment_id", record.ID.String()),
		slog.String("from", string(record.Status)),
		slog.String("to", string(status)))

	if status != model.FulfillmentStatusShipped || snapshot.TrackingNumber == "" {
		return nil
	}

	e.pushTracking(ctx, record.OrderID, snapshot)
	if err := e.orders.UpdateStatus(ctx, record.OrderID, model.OrderStatusFulfilled); err != nil {
		return fmt.Errorf("mark order fulfilled: %w", err)
	}
	return nil
}

func (e *FulfillmentEngine) pushTracking(ctx context.Context, orderID uuid.UUID, snapshot *model.ProviderStatus) {
	log := e.logger.With(slog.String("order_id", orderID.String()))

	order, err := e.orders.GetByID(ctx, orderID)
	if err != nil {
		log.Error("load order for tracking failed", slog.String("error", err.Error()))
		return
	}
	if err := e.tracking.PushTracking(ctx, order.StorefrontOrderID, snapshot.TrackingNumber, snapshot.TrackingURL, snapshot.Carrier); err != nil {
		log.Error("push tracking failed", slog.String("error", err.Error()))
	}
}

// RetryFailedOrders resubmits failed records that still have retries left.
func (e *FulfillmentEngine) RetryFailedOrders(ctx context.Context) error {
	records, err := e.fulfillments.ListRetryable(ctx, e.maxRetries)
	if err != nil {
		return domainErrors.Fatal(fmt.Errorf("list retryable fulfillments: %w", err))
	}

	for i := range records {
		record := &records[i]
		if err := e.retry(ctx, record); err != nil {
			e.logger.Error("retry failed",
				slog.String("fulfillment_id", record.ID.String()),
				slog.String("error", err.Error()))
		}
	}
	return nil
}

func (e *FulfillmentEngine) retry(ctx context.Context, record *model.FulfillmentOrder) error {
	if err := e.fulfillments.IncrementRetryCount(ctx, record.ID); err != nil {
		return fmt.Errorf("increment retry count: %w", err)
	}

	owi, err := e.orders.GetWithItems(ctx, record.OrderID)
	if err != nil {
		return fmt.Errorf("load order: %w", err)
	}

	p := e.provider(record.Provider)
	if p == nil {
		return fmt.Errorf("%w: %s is not configured", domainErrors.ErrProviderMismatch, record.Provider)
	}

	result := p.SubmitOrder(ctx, &owi.Order, owi.Items)
	e.metrics.Submission(string(p.Name()), result.Success)

	if result.Success {
		return e.fulfillments.UpdateStatus(ctx, record.ID, model.FulfillmentStatusSubmitted, result.Update())
	}
	message := result.Error
	return e.fulfillments.UpdateStatus(ctx, record.ID, model.FulfillmentStatusFailed, model.FulfillmentUpdate{ErrorMessage: &message})
}

// CancelFulfillment stops an order that has not shipped yet.
func (e *FulfillmentEngine) CancelFulfillment(ctx context.Context, orderID uuid.UUID) error {
	log := e.logger.With(slog.String("order_id", orderID.String()))

	record, err := e.fulfillments.GetByOrderID(ctx, orderID)
	if errors.Is(err, domainErrors.ErrNotFound) {
		return e.cancelUnrouted(ctx, log, orderID)
	}
	if err != nil {
		return fmt.Errorf("find fulfillment: %w", err)
	}

	switch record.Status {
	case model.FulfillmentStatusShipped, model.FulfillmentStatusDelivered, model.FulfillmentStatusCancelled:
		log.Info("fulfillment cannot be cancelled", slog.String("status", string(record.Status)))
		return nil
	}

	if record.ProviderOrderID != nil && record.Status != model.FulfillmentStatusFailed {
		p := e.provider(record.Provider)
		if p == nil {
			return fmt.Errorf("%w: %s is not configured", domainErrors.ErrProviderMismatch, record.Provider)
		}
		if !p.CancelOrder(ctx, *record.ProviderOrderID) {
			log.Warn("provider declined cancellation", slog.String("provider", string(record.Provider)))
			return nil
		}
	}

	if err := e.fulfillments.UpdateStatus(ctx, record.ID, model.FulfillmentStatusCancelled, model.FulfillmentUpdate{}); err != nil {
		return fmt.Errorf("cancel fulfillment: %w", err)
	}
	if err := e.orders.UpdateStatus(ctx, orderID, model.OrderStatusCancelled); err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}
	log.Info("order cancelled")
	return nil
}

func (e *FulfillmentEngine) cancelUnrouted(ctx context.Context, log *slog.Logger, orderID uuid.UUID) error {
	order, err := e.orders.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load order: %w", err)
	}
	if order.Status != model.OrderStatusReceived {
		log.Info("order has no fulfillment to cancel", slog.String("status", string(order.Status)))
		return nil
	}
	if err := e.orders.UpdateStatus(ctx, orderID, model.OrderStatusCancelled); err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}
	log.Info("order cancelled before routing")
	return nil
}

func nonEmpty(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

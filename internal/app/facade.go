package app

import (
	"context"
	"log/slog"

	"github.com/polkiloo/fulfillrelay/internal/domain/model"
	"github.com/polkiloo/fulfillrelay/internal/usecase"
)

// HealthChecker reports whether backing storage is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// RelayFacade exposes the relay and approval gate to transports and workers.
type RelayFacade struct {
	dispatcher *usecase.Dispatcher
	engine     *usecase.FulfillmentEngine
	gate       *usecase.ApprovalGate
	health     HealthChecker
	logger     *slog.Logger
}

func NewRelayFacade(dispatcher *usecase.Dispatcher, engine *usecase.FulfillmentEngine, gate *usecase.ApprovalGate, health HealthChecker, logger *slog.Logger) *RelayFacade {
	return &RelayFacade{dispatcher: dispatcher, engine: engine, gate: gate, health: health, logger: logger}
}

// RecordWebhook stores a verified storefront or provider webhook and queues it.
func (f *RelayFacade) RecordWebhook(ctx context.Context, source model.WebhookSource, payload []byte) error {
	eventType, err := usecase.EventType(payload)
	if err != nil {
		return err
	}
	return f.dispatcher.Record(ctx, source, eventType, payload)
}

// HandleGitHubEvent runs the approval gate synchronously.
func (f *RelayFacade) HandleGitHubEvent(ctx context.Context, eventType string, payload []byte) error {
	action, err := f.gate.HandleEvent(ctx, eventType, payload)
	if err != nil {
		return err
	}
	if action != model.CheckActionNone {
		f.logger.Info("approval check updated", slog.String("event", eventType), slog.String("action", string(action)))
	}
	return nil
}

func (f *RelayFacade) HandleTask(ctx context.Context, task model.Task) error {
	return f.dispatcher.Handle(ctx, task)
}

func (f *RelayFacade) SyncPolledStatuses(ctx context.Context) error {
	return f.engine.SyncPolledStatuses(ctx)
}

func (f *RelayFacade) RetryFailedOrders(ctx context.Context) error {
	return f.engine.RetryFailedOrders(ctx)
}

func (f *RelayFacade) MaintainWebhooks(ctx context.Context) error {
	return f.dispatcher.Maintain(ctx)
}

func (f *RelayFacade) HealthCheck(ctx context.Context) error {
	return f.health.HealthCheck(ctx)
}

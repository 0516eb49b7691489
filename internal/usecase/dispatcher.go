package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.uber.org/fx"

	"github.com/polkiloo/fulfillrelay/internal/config"
	domainErrors "github.com/polkiloo/fulfillrelay/internal/domain/errors"
	"github.com/polkiloo/fulfillrelay/internal/domain/model"
	"github.com/polkiloo/fulfillrelay/internal/domain/repository"
	"github.com/polkiloo/fulfillrelay/internal/metrics"
)

// DispatcherParams lists the dependencies of Dispatcher.
type DispatcherParams struct {
	fx.In

	Config   *config.Config
	Webhooks repository.WebhookRepository
	Intake   *IntakeService
	Engine   *FulfillmentEngine
	Tasks    TaskPublisher
	Metrics  *metrics.Metrics `optional:"true"`
	Logger   *slog.Logger
}

// Dispatcher records inbound webhooks and executes queued tasks.
type Dispatcher struct {
	webhooks   repository.WebhookRepository
	intake     *IntakeService
	engine     *FulfillmentEngine
	tasks      TaskPublisher
	maxRetries int
	retention  time.Duration
	now        func() time.Time
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewDispatcher constructs Dispatcher.
func NewDispatcher(p DispatcherParams) *Dispatcher {
	return &Dispatcher{
		webhooks:   p.Webhooks,
		intake:     p.Intake,
		engine:     p.Engine,
		tasks:      p.Tasks,
		maxRetries: p.Config.MaxRetries,
		retention:  p.Config.WebhookRetention,
		now:        time.Now,
		metrics:    p.Metrics,
		logger:     p.Logger,
	}
}

// EventType extracts the event type of a storefront or provider webhook body.
func EventType(payload []byte) (string, error) {
	var envelope struct {
		Type      string `json:"type"`
		EventType string `json:"event_type"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return "", fmt.Errorf("%w: %v", domainErrors.ErrInvalidPayload, err)
	}
	if envelope.Type != "" {
		return envelope.Type, nil
	}
	return envelope.EventType, nil
}

// Record appends the webhook to the audit trail and queues it for processing.
func (d *Dispatcher) Record(ctx context.Context, source model.WebhookSource, eventType string, payload []byte) error {
	err := d.record(ctx, source, eventType, payload)
	if err != nil {
		d.metrics.Webhook(string(source), "failed")
		return err
	}
	d.metrics.Webhook(string(source), "accepted")
	return nil
}

func (d *Dispatcher) record(ctx context.Context, source model.WebhookSource, eventType string, payload []byte) error {
	event, err := d.webhooks.Create(ctx, source, eventType, payload)
	if err != nil {
		return domainErrors.Fatal(fmt.Errorf("record webhook: %w", err))
	}
	if err := d.publishWebhook(ctx, event); err != nil {
		return domainErrors.Fatal(err)
	}
	d.logger.Info("webhook recorded",
		slog.String("webhook_id", event.ID.String()),
		slog.String("source", string(source)),
		slog.String("event_type", eventType))
	return nil
}

func (d *Dispatcher) publishWebhook(ctx context.Context, event *model.WebhookEvent) error {
	task, err := model.NewTask(model.TaskWebhook, model.WebhookTaskData{WebhookID: event.ID, Source: event.Source})
	if err != nil {
		return fmt.Errorf("encode webhook task: %w", err)
	}
	if err := d.tasks.Publish(ctx, task); err != nil {
		return fmt.Errorf("publish webhook task: %w", err)
	}
	return nil
}

// Handle executes a queued task. A returned error asks the queue to redeliver it.
func (d *Dispatcher) Handle(ctx context.Context, task model.Task) error {
	err := d.handle(ctx, task)
	d.metrics.Task(string(task.Type), err)
	return err
}

func (d *Dispatcher) handle(ctx context.Context, task model.Task) error {
	switch task.Type {
	case model.TaskWebhook:
		var data model.WebhookTaskData
		if err := json.Unmarshal(task.Data, &data); err != nil {
			d.logger.Error("malformed webhook task", slog.String("error", err.Error()))
			return nil
		}
		return d.handleWebhook(ctx, data.WebhookID)
	case model.TaskFulfillment:
		var data model.FulfillmentTaskData
		if err := json.Unmarshal(task.Data, &data); err != nil {
			d.logger.Error("malformed fulfillment task", slog.String("error", err.Error()))
			return nil
		}
		return d.engine.ProcessOrder(ctx, data.OrderID)
	case model.TaskStatusCheck:
		return d.engine.SyncPolledStatuses(ctx)
	default:
		d.logger.Warn("dropping task",
			slog.String("type", string(task.Type)),
			slog.String("error", domainErrors.ErrUnknownMessage.Error()))
		return nil
	}
}

func (d *Dispatcher) handleWebhook(ctx context.Context, id uuid.UUID) error {
	log := d.logger.With(slog.String("webhook_id", id.String()))

	event, err := d.webhooks.GetByID(ctx, id)
	if errors.Is(err, domainErrors.ErrNotFound) {
		log.Warn("webhook event no longer exists")
		return nil
	}
	if err != nil {
		return domainErrors.Fatal(fmt.Errorf("load webhook %s: %w", id, err))
	}
	if !event.Pending() {
		log.Debug("webhook already processed")
		return nil
	}

	if procErr := d.route(ctx, event); procErr != nil {
		if err := d.webhooks.MarkError(ctx, id, procErr.Error()); err != nil {
			log.Error("mark webhook error failed", slog.String("error", err.Error()))
		}
		return domainErrors.Fatal(fmt.Errorf("process webhook %s: %w", id, procErr))
	}

	if err := d.webhooks.MarkProcessed(ctx, id); err != nil {
		return domainErrors.Fatal(fmt.Errorf("mark webhook %s processed: %w", id, err))
	}
	return nil
}

func (d *Dispatcher) route(ctx context.Context, event *model.WebhookEvent) error {
	switch event.Source {
	case model.WebhookSourceStorefront:
		if event.EventType == model.StorefrontOrderCancelled {
			return d.cancel(ctx, event.Payload)
		}
		orderID, err := d.intake.IngestPaidOrder(ctx, event.Payload)
		if err != nil || orderID == uuid.Nil {
			return err
		}
		task, err := model.NewTask(model.TaskFulfillment, model.FulfillmentTaskData{OrderID: orderID})
		if err != nil {
			return err
		}
		return d.tasks.Publish(ctx, task)
	case model.WebhookSourceCDClick:
		return d.engine.ApplyPushedStatus(ctx, model.ProviderCDClick, event.Payload)
	default:
		d.logger.Warn("no route for webhook source", slog.String("source", string(event.Source)))
		return nil
	}
}

func (d *Dispatcher) cancel(ctx context.Context, payload []byte) error {
	orderID, err := d.intake.ResolveCancellation(ctx, payload)
	if err != nil || orderID == uuid.Nil {
		return err
	}
	return d.engine.CancelFulfillment(ctx, orderID)
}

// Maintain purges old processed events and requeues failed ones.
func (d *Dispatcher) Maintain(ctx context.Context) error {
	cutoff := d.now().Add(-d.retention)
	purged, err := d.webhooks.DeleteProcessedBefore(ctx, cutoff)
	if err != nil {
		return domainErrors.Fatal(fmt.Errorf("purge webhooks: %w", err))
	}
	if purged > 0 {
		d.logger.Info("purged processed webhooks", slog.Int64("count", purged))
	}

	events, err := d.webhooks.ListRetryable(ctx, d.maxRetries)
	if err != nil {
		return domainErrors.Fatal(fmt.Errorf("list retryable webhooks: %w", err))
	}
	for i := range events {
		if err := d.publishWebhook(ctx, &events[i]); err != nil {
			d.logger.Error("requeue webhook failed",
				slog.String("webhook_id", events[i].ID.String()),
				slog.String("error", err.Error()))
		}
	}
	return nil
}

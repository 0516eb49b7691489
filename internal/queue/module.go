package queue

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/fulfillrelay/internal/config"
)

const memoryBuffer = 1024

// Module provides the task queue selected by configuration.
var Module = fx.Options(
	fx.Provide(New),
	fx.Invoke(registerLifecycle),
)

// New returns a Kafka queue when brokers are configured and an in-process queue otherwise.
func New(cfg *config.Config, logger *slog.Logger) Queue {
	if len(cfg.Queue.Brokers) == 0 {
		logger.Info("using in-process task queue")
		return NewMemory(memoryBuffer, cfg.Queue.MaxDeliveries, logger)
	}
	logger.Info("using kafka task queue", slog.Any("brokers", cfg.Queue.Brokers), slog.String("topic", cfg.Queue.Topic))
	return NewKafka(cfg.Queue, logger)
}

func registerLifecycle(lc fx.Lifecycle, q Queue) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return q.Close()
		},
	})
}

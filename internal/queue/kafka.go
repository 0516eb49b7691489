package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/polkiloo/fulfillrelay/internal/config"
	"github.com/polkiloo/fulfillrelay/internal/domain/model"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes tasks to a topic and consumes them in a consumer group.
// Failed tasks are republished with an incremented delivery count before the original is committed.
// When the republish fails Consume returns, leaving the group offset on the failed message.
type Kafka struct {
	writer        messageWriter
	newReader     func() messageReader
	maxDeliveries int
	logger        *slog.Logger
}

// NewKafka constructs a Kafka queue for cfg.
func NewKafka(cfg config.QueueConfig, logger *slog.Logger) *Kafka {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
	}
	return &Kafka{
		writer: writer,
		newReader: func() messageReader {
			return kafka.NewReader(kafka.ReaderConfig{
				Brokers:  cfg.Brokers,
				GroupID:  cfg.GroupID,
				Topic:    cfg.Topic,
				MinBytes: 1,
				MaxBytes: 10e6,
			})
		},
		maxDeliveries: cfg.MaxDeliveries,
		logger:        logger,
	}
}

// Publish writes task keyed by its type.
func (k *Kafka) Publish(ctx context.Context, task model.Task) error {
	value, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode task: %w", err)
	}
	if err := k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(task.Type), Value: value}); err != nil {
		return fmt.Errorf("write task: %w", err)
	}
	return nil
}

// Consume reads the topic with its own group member until ctx is done.
func (k *Kafka) Consume(ctx context.Context, handler Handler) error {
	reader := k.newReader()
	defer func() {
		if err := reader.Close(); err != nil {
			k.logger.Warn("close kafka reader failed", slog.String("error", err.Error()))
		}
	}()

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("fetch task: %w", err)
		}

		if err := k.deliver(ctx, msg, handler); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("redeliver task at offset %d: %w", msg.Offset, err)
		}
		if err := reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			k.logger.Error("commit task failed", slog.Int64("offset", msg.Offset), slog.String("error", err.Error()))
		}
	}
}

// deliver runs handler. An error means the message must not be committed.
func (k *Kafka) deliver(ctx context.Context, msg kafka.Message, handler Handler) error {
	var task model.Task
	if err := json.Unmarshal(msg.Value, &task); err != nil {
		k.logger.Error("dropping malformed task", slog.Int64("offset", msg.Offset), slog.String("error", err.Error()))
		return nil
	}

	cause := handler(ctx, task)
	if cause == nil {
		return nil
	}

	next, err := redelivery(task, cause, k.maxDeliveries)
	if err != nil {
		k.logger.Error("dropping task", slog.String("type", string(task.Type)), slog.String("error", err.Error()))
		return nil
	}
	if err := k.Publish(ctx, next); err != nil {
		return err
	}
	k.logger.Warn("redelivering task",
		slog.String("type", string(task.Type)),
		slog.Int("delivery", next.Deliveries),
		slog.String("error", cause.Error()))
	return nil
}

// Close flushes and closes the writer.
func (k *Kafka) Close() error {
	return k.writer.Close()
}

package queue

import (
	"context"
	"log/slog"
	"sync"

	"github.com/polkiloo/fulfillrelay/internal/domain/model"
)

// Memory is an in-process queue backed by a buffered channel.
type Memory struct {
	tasks         chan model.Task
	done          chan struct{}
	closeOnce     sync.Once
	maxDeliveries int
	logger        *slog.Logger
}

// NewMemory constructs Memory holding up to buffer pending tasks.
func NewMemory(buffer, maxDeliveries int, logger *slog.Logger) *Memory {
	if buffer <= 0 {
		buffer = 1
	}
	return &Memory{
		tasks:         make(chan model.Task, buffer),
		done:          make(chan struct{}),
		maxDeliveries: maxDeliveries,
		logger:        logger,
	}
}

// Publish blocks until the task is buffered, ctx is done or the queue is closed.
func (m *Memory) Publish(ctx context.Context, task model.Task) error {
	select {
	case <-m.done:
		return ErrClosed
	default:
	}

	select {
	case m.tasks <- task:
		return nil
	case <-m.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume runs handler for every task until ctx is done or the queue is closed.
func (m *Memory) Consume(ctx context.Context, handler Handler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-m.done:
			return nil
		case task := <-m.tasks:
			m.deliver(ctx, task, handler)
		}
	}
}

func (m *Memory) deliver(ctx context.Context, task model.Task, handler Handler) {
	cause := handler(ctx, task)
	if cause == nil {
		return
	}

	next, err := redelivery(task, cause, m.maxDeliveries)
	if err != nil {
		m.logger.Error("dropping task", slog.String("type", string(task.Type)), slog.String("error", err.Error()))
		return
	}
	m.logger.Warn("redelivering task",
		slog.String("type", string(task.Type)),
		slog.Int("delivery", next.Deliveries),
		slog.String("error", cause.Error()))

	// Requeue without blocking the consumer.
	go func() {
		select {
		case m.tasks <- next:
		case <-m.done:
		}
	}()
}

// Close stops consumers and rejects further publishes.
func (m *Memory) Close() error {
	m.closeOnce.Do(func() { close(m.done) })
	return nil
}

package queue

import (
	"context"
	"errors"
	"fmt"

	domainErrors "github.com/polkiloo/fulfillrelay/internal/domain/errors"
	"github.com/polkiloo/fulfillrelay/internal/domain/model"
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("queue closed")

// Handler processes one task. A returned fatal error schedules a redelivery.
type Handler func(ctx context.Context, task model.Task) error

// Publisher enqueues tasks.
type Publisher interface {
	Publish(ctx context.Context, task model.Task) error
}

// Consumer feeds tasks to a handler until ctx is done or the queue is closed.
type Consumer interface {
	Consume(ctx context.Context, handler Handler) error
}

// Queue is a task transport.
type Queue interface {
	Publisher
	Consumer
	Close() error
}

// redelivery returns the copy of a failed task to republish. Only fatal failures are
// redelivered, and ErrRedeliveryLimited is returned once a task was redelivered maxDeliveries times.
func redelivery(task model.Task, cause error, maxDeliveries int) (model.Task, error) {
	if !domainErrors.IsFatal(cause) {
		return task, fmt.Errorf("%s task failed without requesting redelivery: %w", task.Type, cause)
	}
	task.Deliveries++
	if task.Deliveries > maxDeliveries {
		return task, fmt.Errorf("%w: %s task failed %d times: %v", domainErrors.ErrRedeliveryLimited, task.Type, task.Deliveries, cause)
	}
	return task, nil
}

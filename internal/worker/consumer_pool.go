package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/polkiloo/fulfillrelay/internal/domain/model"
	"github.com/polkiloo/fulfillrelay/internal/queue"
)

const (
	restartInitialDelay = 500 * time.Millisecond
	restartMaxDelay     = 30 * time.Second
)

// TaskHandler executes queued tasks.
type TaskHandler interface {
	HandleTask(ctx context.Context, task model.Task) error
}

// ConsumerPool runs a fixed number of queue consumers.
// A consumer that fails is restarted with exponential backoff until Stop.
type ConsumerPool struct {
	consumer   queue.Consumer
	handler    TaskHandler
	workers    int
	newBackOff func() backoff.BackOff
	logger     *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan error
}

// NewConsumerPool constructs a consumer pool.
func NewConsumerPool(consumer queue.Consumer, handler TaskHandler, workers int, logger *slog.Logger) *ConsumerPool {
	if workers <= 0 {
		workers = 1
	}
	return &ConsumerPool{
		consumer:   consumer,
		handler:    handler,
		workers:    workers,
		newBackOff: restartBackOff,
		logger:     logger,
	}
}

func restartBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = restartInitialDelay
	b.MaxInterval = restartMaxDelay
	b.MaxElapsedTime = 0
	return b
}

// Start launches the consumers. They outlive ctx cancellation and stop on Stop.
func (p *ConsumerPool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.cancel = cancel
	p.done = make(chan error, 1)

	var g errgroup.Group
	for i := range p.workers {
		g.Go(func() error {
			p.run(runCtx, i)
			return nil
		})
	}

	done := p.done
	go func() { done <- g.Wait() }()
	p.logger.Info("task consumers started", slog.Int("workers", p.workers))
}

func (p *ConsumerPool) run(ctx context.Context, worker int) {
	retry := p.newBackOff()
	for {
		started := time.Now()
		err := p.consumer.Consume(ctx, p.handler.HandleTask)
		if err == nil || ctx.Err() != nil {
			return
		}
		if time.Since(started) > restartMaxDelay {
			retry.Reset()
		}

		delay := retry.NextBackOff()
		p.logger.Error("task consumer failed, restarting",
			slog.Int("worker", worker),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// Stop cancels the consumers and waits for in-flight tasks.
func (p *ConsumerPool) Stop() error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	return <-done
}

package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/polkiloo/fulfillrelay/internal/metrics"
)

// Maintainer exposes the periodic operations of the relay.
type Maintainer interface {
	SyncPolledStatuses(ctx context.Context) error
	RetryFailedOrders(ctx context.Context) error
	MaintainWebhooks(ctx context.Context) error
}

const defaultSweepInterval = 10 * time.Minute

type sweepStep struct {
	name string
	run  func(context.Context) error
}

// Sweeper periodically polls provider statuses, retries failed submissions and maintains the webhook log.
type Sweeper struct {
	steps    []sweepStep
	interval time.Duration
	metrics  *metrics.Metrics
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSweeper constructs a sweeper running every interval.
func NewSweeper(target Maintainer, interval time.Duration, m *metrics.Metrics, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &Sweeper{
		steps: []sweepStep{
			{"status_sync", target.SyncPolledStatuses},
			{"retry", target.RetryFailedOrders},
			{"webhook_maintenance", target.MaintainWebhooks},
		},
		interval: interval,
		metrics:  m,
		logger:   logger,
	}
}

// Start launches the ticker loop.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(runCtx)
}

// Stop waits for the running sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Sweeper) loop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce runs every step in order. A failing step does not skip the next one.
func (s *Sweeper) RunOnce(ctx context.Context) {
	for _, step := range s.steps {
		if ctx.Err() != nil {
			return
		}
		started := time.Now()
		err := step.run(ctx)
		s.metrics.SweepStep(step.name, time.Since(started))
		if err != nil {
			s.logger.Error("sweep step failed", slog.String("step", step.name), slog.String("error", err.Error()))
		}
	}
}

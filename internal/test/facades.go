package test

import (
	"context"
	"sync"

	"github.com/polkiloo/fulfillrelay/internal/domain/model"
)

// WebhookCall stores information about RecordWebhook invocations.
type WebhookCall struct {
	Source  model.WebhookSource
	Payload []byte
}

// GitHubCall stores information about HandleGitHubEvent invocations.
type GitHubCall struct {
	EventType string
	Payload   []byte
}

// RelayFacadeStub provides controllable behaviour for HTTP handlers.
type RelayFacadeStub struct {
	RecordFn func(context.Context, model.WebhookSource, []byte) error
	GitHubFn func(context.Context, string, []byte) error
	HealthFn func(context.Context) error

	mu       sync.Mutex
	Webhooks []WebhookCall
	GitHub   []GitHubCall
}

// RecordWebhook records the call and delegates to RecordFn.
func (s *RelayFacadeStub) RecordWebhook(ctx context.Context, source model.WebhookSource, payload []byte) error {
	s.mu.Lock()
	s.Webhooks = append(s.Webhooks, WebhookCall{Source: source, Payload: payload})
	s.mu.Unlock()
	if s.RecordFn != nil {
		return s.RecordFn(ctx, source, payload)
	}
	return nil
}

// HandleGitHubEvent records the call and delegates to GitHubFn.
func (s *RelayFacadeStub) HandleGitHubEvent(ctx context.Context, eventType string, payload []byte) error {
	s.mu.Lock()
	s.GitHub = append(s.GitHub, GitHubCall{EventType: eventType, Payload: payload})
	s.mu.Unlock()
	if s.GitHubFn != nil {
		return s.GitHubFn(ctx, eventType, payload)
	}
	return nil
}

// HealthCheck returns the HealthFn result or nil.
func (s *RelayFacadeStub) HealthCheck(ctx context.Context) error {
	if s.HealthFn != nil {
		return s.HealthFn(ctx)
	}
	return nil
}

// TaskHandlerStub records handled tasks for worker tests.
type TaskHandlerStub struct {
	HandleFn func(context.Context, model.Task) error

	mu    sync.Mutex
	tasks []model.Task
}

// HandleTask records the task and delegates to HandleFn.
func (s *TaskHandlerStub) HandleTask(ctx context.Context, task model.Task) error {
	s.mu.Lock()
	s.tasks = append(s.tasks, task)
	s.mu.Unlock()
	if s.HandleFn != nil {
		return s.HandleFn(ctx, task)
	}
	return nil
}

// Tasks returns a snapshot of handled tasks.
func (s *TaskHandlerStub) Tasks() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Task(nil), s.tasks...)
}

// MaintainerStub records sweep steps in call order.
type MaintainerStub struct {
	SyncErr  error
	RetryErr error
	WebErr   error

	mu    sync.Mutex
	steps []string
}

func (s *MaintainerStub) record(step string) {
	s.mu.Lock()
	s.steps = append(s.steps, step)
	s.mu.Unlock()
}

// SyncPolledStatuses records the step.
func (s *MaintainerStub) SyncPolledStatuses(context.Context) error {
	s.record("sync")
	return s.SyncErr
}

// RetryFailedOrders records the step.
func (s *MaintainerStub) RetryFailedOrders(context.Context) error {
	s.record("retry")
	return s.RetryErr
}

// MaintainWebhooks records the step.
func (s *MaintainerStub) MaintainWebhooks(context.Context) error {
	s.record("webhooks")
	return s.WebErr
}

// Steps returns a snapshot of recorded steps.
func (s *MaintainerStub) Steps() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.steps...)
}

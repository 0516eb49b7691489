package test

import (
	"context"
	"sync"

	"github.com/polkiloo/fulfillrelay/internal/domain/model"
)

// ProviderStub is a configurable fulfillment provider.
type ProviderStub struct {
	mu sync.Mutex

	ProviderName model.Provider
	Eligible     func(*model.Order) bool
	SubmitFn     func(*model.Order, []model.OrderItem) model.FulfillmentResult
	Statuses     model.StatusTable
	CancelResult bool

	Submitted []string
	Cancelled []string
}

// Name returns the configured provider name.
func (p *ProviderStub) Name() model.Provider { return p.ProviderName }

// CanFulfill delegates to Eligible, defaulting to false.
func (p *ProviderStub) CanFulfill(order *model.Order) bool {
	return p.Eligible != nil && p.Eligible(order)
}

// SubmitOrder records the storefront id and returns the configured result.
func (p *ProviderStub) SubmitOrder(_ context.Context, order *model.Order, items []model.OrderItem) model.FulfillmentResult {
	p.mu.Lock()
	p.Submitted = append(p.Submitted, order.StorefrontOrderID)
	p.mu.Unlock()
	if p.SubmitFn == nil {
		return model.FulfillmentResult{Success: true, ProviderOrderID: "P-" + order.StorefrontOrderID}
	}
	return p.SubmitFn(order, items)
}

// NormalizeStatus maps through Statuses.
func (p *ProviderStub) NormalizeStatus(status string) model.FulfillmentStatus {
	return p.Statuses.Normalize(status)
}

// CancelOrder records the call and returns CancelResult.
func (p *ProviderStub) CancelOrder(_ context.Context, providerOrderID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Cancelled = append(p.Cancelled, providerOrderID)
	return p.CancelResult
}

// PollingProviderStub is a provider whose status is fetched.
type PollingProviderStub struct {
	ProviderStub
	CheckFn func(providerOrderID string) (*model.ProviderStatus, error)
}

// CheckStatus delegates to CheckFn.
func (p *PollingProviderStub) CheckStatus(_ context.Context, providerOrderID string) (*model.ProviderStatus, error) {
	return p.CheckFn(providerOrderID)
}

// PushProviderStub is a provider that pushes status webhooks.
type PushProviderStub struct {
	ProviderStub
	ParseFn func(payload []byte) (*model.ProviderStatus, error)
}

// ParseWebhook delegates to ParseFn.
func (p *PushProviderStub) ParseWebhook(payload []byte) (*model.ProviderStatus, error) {
	return p.ParseFn(payload)
}

// TaskPublisherStub collects published tasks.
type TaskPublisherStub struct {
	mu    sync.Mutex
	Tasks []model.Task
	Err   error
}

// Publish stores task unless Err is set.
func (p *TaskPublisherStub) Publish(_ context.Context, task model.Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.Tasks = append(p.Tasks, task)
	return nil
}

// Published returns a snapshot of collected tasks.
func (p *TaskPublisherStub) Published() []model.Task {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.Task(nil), p.Tasks...)
}

// TrackingCall captures a tracking push.
type TrackingCall struct {
	StorefrontOrderID string
	TrackingNumber    string
	TrackingURL       string
	Carrier           string
}

// TrackingPublisherStub collects tracking pushes.
type TrackingPublisherStub struct {
	mu    sync.Mutex
	Calls []TrackingCall
	Err   error
}

// PushTracking records the call and returns Err.
func (p *TrackingPublisherStub) PushTracking(_ context.Context, storefrontOrderID, trackingNumber, trackingURL, carrier string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, TrackingCall{storefrontOrderID, trackingNumber, trackingURL, carrier})
	return p.Err
}

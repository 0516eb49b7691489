package test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	domainErrors "github.com/polkiloo/fulfillrelay/internal/domain/errors"
	"github.com/polkiloo/fulfillrelay/internal/domain/model"
)

// OrderStatusCall captures an order status change.
type OrderStatusCall struct {
	ID     uuid.UUID
	Status model.OrderStatus
}

// OrderRepositoryStub keeps orders in memory and records status changes.
type OrderRepositoryStub struct {
	mu sync.Mutex

	Orders      map[uuid.UUID]*model.OrderWithItems
	StatusCalls []OrderStatusCall

	CreateErr       error
	GetErr          error
	UpdateStatusErr error
	ClaimErr        error
}

// NewOrderRepositoryStub constructs an empty repository.
func NewOrderRepositoryStub() *OrderRepositoryStub {
	return &OrderRepositoryStub{Orders: make(map[uuid.UUID]*model.OrderWithItems)}
}

// Add stores order with items and returns its id.
func (s *OrderRepositoryStub) Add(order model.Order, items ...model.OrderItem) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.Status == "" {
		order.Status = model.OrderStatusReceived
	}
	s.Orders[order.ID] = &model.OrderWithItems{Order: order, Items: items}
	return order.ID
}

// Status returns the stored status of id.
func (s *OrderRepositoryStub) Status(id uuid.UUID) model.OrderStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.Orders[id]; ok {
		return o.Order.Status
	}
	return ""
}

// CreateWithItems stores a new order unless its storefront id is taken.
func (s *OrderRepositoryStub) CreateWithItems(_ context.Context, order *model.Order, items []model.OrderItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CreateErr != nil {
		return s.CreateErr
	}
	for _, existing := range s.Orders {
		if existing.Order.StorefrontOrderID == order.StorefrontOrderID {
			return domainErrors.ErrAlreadyExists
		}
	}
	order.ID = uuid.New()
	if order.Status == "" {
		order.Status = model.OrderStatusReceived
	}
	stored := make([]model.OrderItem, len(items))
	for i, item := range items {
		item.ID = uuid.New()
		item.OrderID = order.ID
		stored[i] = item
	}
	s.Orders[order.ID] = &model.OrderWithItems{Order: *order, Items: stored}
	return nil
}

// GetByID returns a copy of the stored order.
func (s *OrderRepositoryStub) GetByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	owi, err := s.find(id)
	if err != nil {
		return nil, err
	}
	return &owi.Order, nil
}

// GetByStorefrontID finds an order by storefront id.
func (s *OrderRepositoryStub) GetByStorefrontID(_ context.Context, storefrontOrderID string) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	for _, o := range s.Orders {
		if o.Order.StorefrontOrderID == storefrontOrderID {
			order := o.Order
			return &order, nil
		}
	}
	return nil, domainErrors.ErrNotFound
}

// GetWithItems returns a copy of the stored order with items.
func (s *OrderRepositoryStub) GetWithItems(_ context.Context, id uuid.UUID) (*model.OrderWithItems, error) {
	return s.find(id)
}

func (s *OrderRepositoryStub) find(id uuid.UUID) (*model.OrderWithItems, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	o, ok := s.Orders[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	cp := *o
	cp.Items = append([]model.OrderItem(nil), o.Items...)
	return &cp, nil
}

// UpdateStatus records the call and applies it.
func (s *OrderRepositoryStub) UpdateStatus(_ context.Context, id uuid.UUID, status model.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.StatusCalls = append(s.StatusCalls, OrderStatusCall{ID: id, Status: status})
	if s.UpdateStatusErr != nil {
		return s.UpdateStatusErr
	}
	o, ok := s.Orders[id]
	if !ok {
		return domainErrors.ErrNotFound
	}
	o.Order.Status = status
	if !status.HasProvider() {
		o.Order.FulfillmentProvider = nil
	}
	return nil
}

// ClaimForProvider moves a received order to processing.
func (s *OrderRepositoryStub) ClaimForProvider(_ context.Context, id uuid.UUID, provider model.Provider) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ClaimErr != nil {
		return false, s.ClaimErr
	}
	o, ok := s.Orders[id]
	if !ok || o.Order.Status != model.OrderStatusReceived {
		return false, nil
	}
	o.Order.Status = model.OrderStatusProcessing
	o.Order.FulfillmentProvider = &provider
	return true, nil
}

// FulfillmentStatusCall captures a fulfillment status change.
type FulfillmentStatusCall struct {
	ID     uuid.UUID
	Status model.FulfillmentStatus
	Update model.FulfillmentUpdate
}

// FulfillmentRepositoryStub keeps fulfillment records in memory.
type FulfillmentRepositoryStub struct {
	mu  sync.Mutex
	ids []uuid.UUID

	Records     map[uuid.UUID]*model.FulfillmentOrder
	StatusCalls []FulfillmentStatusCall
	// Calls lists method names in invocation order.
	Calls []string

	CreateErr error
	GetErr    error
	UpdateErr error
	ListErr   error
}

// NewFulfillmentRepositoryStub constructs an empty repository.
func NewFulfillmentRepositoryStub() *FulfillmentRepositoryStub {
	return &FulfillmentRepositoryStub{Records: make(map[uuid.UUID]*model.FulfillmentOrder)}
}

// Add stores record and returns its id.
func (s *FulfillmentRepositoryStub) Add(record model.FulfillmentOrder) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	s.store(&record)
	return record.ID
}

func (s *FulfillmentRepositoryStub) store(record *model.FulfillmentOrder) {
	s.Records[record.ID] = record
	s.ids = append(s.ids, record.ID)
}

// Get returns a copy of the stored record.
func (s *FulfillmentRepositoryStub) Get(id uuid.UUID) model.FulfillmentOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.Records[id]; ok {
		return *r
	}
	return model.FulfillmentOrder{}
}

// Create stores a pending record.
func (s *FulfillmentRepositoryStub) Create(_ context.Context, orderID uuid.UUID, provider model.Provider) (*model.FulfillmentOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, "Create")
	if s.CreateErr != nil {
		return nil, s.CreateErr
	}
	now := time.Now()
	record := &model.FulfillmentOrder{
		ID:        uuid.New(),
		OrderID:   orderID,
		Provider:  provider,
		Status:    model.FulfillmentStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.store(record)
	cp := *record
	return &cp, nil
}

// GetByProviderOrderID finds the latest record of a provider order.
func (s *FulfillmentRepositoryStub) GetByProviderOrderID(_ context.Context, providerOrderID string, provider model.Provider) (*model.FulfillmentOrder, error) {
	return s.latest(func(r *model.FulfillmentOrder) bool {
		return r.Provider == provider && r.ProviderOrderID != nil && *r.ProviderOrderID == providerOrderID
	})
}

// GetByOrderID finds the latest record of an order.
func (s *FulfillmentRepositoryStub) GetByOrderID(_ context.Context, orderID uuid.UUID) (*model.FulfillmentOrder, error) {
	return s.latest(func(r *model.FulfillmentOrder) bool { return r.OrderID == orderID })
}

func (s *FulfillmentRepositoryStub) latest(match func(*model.FulfillmentOrder) bool) (*model.FulfillmentOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	for i := len(s.ids) - 1; i >= 0; i-- {
		if r := s.Records[s.ids[i]]; match(r) {
			cp := *r
			return &cp, nil
		}
	}
	return nil, domainErrors.ErrNotFound
}

// UpdateStatus applies status and the non-nil fields of update.
func (s *FulfillmentRepositoryStub) UpdateStatus(_ context.Context, id uuid.UUID, status model.FulfillmentStatus, update model.FulfillmentUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, "UpdateStatus")
	s.StatusCalls = append(s.StatusCalls, FulfillmentStatusCall{ID: id, Status: status, Update: update})
	if s.UpdateErr != nil {
		return s.UpdateErr
	}
	r, ok := s.Records[id]
	if !ok {
		return domainErrors.ErrNotFound
	}
	r.Status = status
	r.ProviderOrderID = keep(update.ProviderOrderID, r.ProviderOrderID)
	r.TrackingNumber = keep(update.TrackingNumber, r.TrackingNumber)
	r.TrackingURL = keep(update.TrackingURL, r.TrackingURL)
	r.Carrier = keep(update.Carrier, r.Carrier)
	if update.ClearError {
		r.ErrorMessage = nil
	} else {
		r.ErrorMessage = keep(update.ErrorMessage, r.ErrorMessage)
	}
	if update.ShippedAt != nil {
		r.ShippedAt = update.ShippedAt
	}
	if status == model.FulfillmentStatusSubmitted {
		now := time.Now()
		r.SubmittedAt = &now
	}
	return nil
}

// IncrementRetryCount bumps the retry counter.
func (s *FulfillmentRepositoryStub) IncrementRetryCount(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, "IncrementRetryCount")
	r, ok := s.Records[id]
	if !ok {
		return domainErrors.ErrNotFound
	}
	r.RetryCount++
	return nil
}

// ListAwaitingStatus returns in-flight records of provider.
func (s *FulfillmentRepositoryStub) ListAwaitingStatus(_ context.Context, provider model.Provider) ([]model.FulfillmentOrder, error) {
	return s.list(func(r *model.FulfillmentOrder) bool {
		return r.Provider == provider && r.ProviderOrderID != nil &&
			(r.Status == model.FulfillmentStatusSubmitted || r.Status == model.FulfillmentStatusProcessing)
	})
}

// ListRetryable returns failed records below maxRetries.
func (s *FulfillmentRepositoryStub) ListRetryable(_ context.Context, maxRetries int) ([]model.FulfillmentOrder, error) {
	return s.list(func(r *model.FulfillmentOrder) bool {
		return r.Status == model.FulfillmentStatusFailed && r.RetryCount < maxRetries
	})
}

func (s *FulfillmentRepositoryStub) list(match func(*model.FulfillmentOrder) bool) ([]model.FulfillmentOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, "List")
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	var out []model.FulfillmentOrder
	for _, id := range s.ids {
		if r := s.Records[id]; match(r) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func keep(next, cur *string) *string {
	if next != nil {
		return next
	}
	return cur
}

// WebhookRepositoryStub keeps the webhook audit trail in memory.
type WebhookRepositoryStub struct {
	mu  sync.Mutex
	ids []uuid.UUID

	Events     map[uuid.UUID]*model.WebhookEvent
	LastCutoff time.Time

	CreateErr        error
	GetErr           error
	MarkProcessedErr error
	ListErr          error
}

// NewWebhookRepositoryStub constructs an empty repository.
func NewWebhookRepositoryStub() *WebhookRepositoryStub {
	return &WebhookRepositoryStub{Events: make(map[uuid.UUID]*model.WebhookEvent)}
}

// Add stores event and returns its id.
func (s *WebhookRepositoryStub) Add(event model.WebhookEvent) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	s.Events[event.ID] = &event
	s.ids = append(s.ids, event.ID)
	return event.ID
}

// Get returns a copy of the stored event.
func (s *WebhookRepositoryStub) Get(id uuid.UUID) model.WebhookEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.Events[id]; ok {
		return *e
	}
	return model.WebhookEvent{}
}

// Create appends an event.
func (s *WebhookRepositoryStub) Create(_ context.Context, source model.WebhookSource, eventType string, payload []byte) (*model.WebhookEvent, error) {
	if s.CreateErr != nil {
		return nil, s.CreateErr
	}
	id := s.Add(model.WebhookEvent{Source: source, EventType: eventType, Payload: payload, CreatedAt: time.Now()})
	event := s.Get(id)
	return &event, nil
}

// GetByID returns a copy of the event.
func (s *WebhookRepositoryStub) GetByID(_ context.Context, id uuid.UUID) (*model.WebhookEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	e, ok := s.Events[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

// MarkProcessed stamps processed_at and clears the error.
func (s *WebhookRepositoryStub) MarkProcessed(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.MarkProcessedErr != nil {
		return s.MarkProcessedErr
	}
	e, ok := s.Events[id]
	if !ok {
		return domainErrors.ErrNotFound
	}
	now := time.Now()
	e.ProcessedAt = &now
	e.ErrorMessage = nil
	return nil
}

// MarkError records message and bumps the retry counter.
func (s *WebhookRepositoryStub) MarkError(_ context.Context, id uuid.UUID, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.Events[id]
	if !ok {
		return domainErrors.ErrNotFound
	}
	e.ErrorMessage = &message
	e.RetryCount++
	return nil
}

// ListRetryable returns failed, unprocessed events below maxRetries.
func (s *WebhookRepositoryStub) ListRetryable(_ context.Context, maxRetries int) ([]model.WebhookEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	var out []model.WebhookEvent
	for _, id := range s.ids {
		e, ok := s.Events[id]
		if ok && e.Pending() && e.ErrorMessage != nil && e.RetryCount < maxRetries {
			out = append(out, *e)
		}
	}
	return out, nil
}

// DeleteProcessedBefore removes processed events created before cutoff.
func (s *WebhookRepositoryStub) DeleteProcessedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastCutoff = cutoff
	var n int64
	for id, e := range s.Events {
		if !e.Pending() && e.CreatedAt.Before(cutoff) {
			delete(s.Events, id)
			n++
		}
	}
	return n, nil
}

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Provider identifies an external fulfillment vendor.
type Provider string

const (
	ProviderKunaki  Provider = "kunaki"
	ProviderCDClick Provider = "cdclick-europe"
)

// FulfillmentStatus is the canonical status of a provider submission.
type FulfillmentStatus string

const (
	FulfillmentStatusPending    FulfillmentStatus = "pending"
	FulfillmentStatusSubmitted  FulfillmentStatus = "submitted"
	FulfillmentStatusProcessing FulfillmentStatus = "processing"
	FulfillmentStatusShipped    FulfillmentStatus = "shipped"
	FulfillmentStatusDelivered  FulfillmentStatus = "delivered"
	FulfillmentStatusCancelled  FulfillmentStatus = "cancelled"
	FulfillmentStatusFailed     FulfillmentStatus = "failed"
)

// FulfillmentOrder records a submission of an order to a provider.
// Failed submissions are retried in place.
type FulfillmentOrder struct {
	ID              uuid.UUID
	OrderID         uuid.UUID
	Provider        Provider
	ProviderOrderID *string
	Status          FulfillmentStatus
	TrackingNumber  *string
	TrackingURL     *string
	Carrier         *string
	RetryCount      int
	ErrorMessage    *string
	SubmittedAt     *time.Time
	ShippedAt       *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// FulfillmentUpdate holds optional fields written together with a status change.
// Nil fields keep their stored value.
type FulfillmentUpdate struct {
	ProviderOrderID *string
	TrackingNumber  *string
	TrackingURL     *string
	Carrier         *string
	ErrorMessage    *string
	ClearError      bool
	ShippedAt       *time.Time
}

// FulfillmentResult is the normalized outcome of a provider submission.
type FulfillmentResult struct {
	Success         bool
	ProviderOrderID string
	TrackingNumber  string
	TrackingURL     string
	Carrier         string
	Error           string
}

// Update converts a successful result into the fields persisted on the record.
func (r FulfillmentResult) Update() FulfillmentUpdate {
	return FulfillmentUpdate{
		ProviderOrderID: optional(r.ProviderOrderID),
		TrackingNumber:  optional(r.TrackingNumber),
		TrackingURL:     optional(r.TrackingURL),
		Carrier:         optional(r.Carrier),
		ClearError:      true,
	}
}

// ProviderStatus is a provider-native status snapshot, polled or pushed.
type ProviderStatus struct {
	ProviderOrderID string
	Status          string
	TrackingNumber  string
	TrackingURL     string
	Carrier         string
	ShippedAt       *time.Time
	Error           string
}

// StatusTable maps a provider vocabulary onto canonical statuses.
type StatusTable map[string]FulfillmentStatus

// Normalize maps status case-insensitively. Unknown values are treated as processing.
func (t StatusTable) Normalize(status string) FulfillmentStatus {
	if mapped, ok := t[strings.ToLower(strings.TrimSpace(status))]; ok {
		return mapped
	}
	return FulfillmentStatusProcessing
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

package model

import (
	"time"

	"github.com/google/uuid"
)

// WebhookSource names the system that delivered a webhook.
type WebhookSource string

const (
	WebhookSourceStorefront WebhookSource = "fourthwall"
	WebhookSourceCDClick    WebhookSource = "cdclick-europe"
	WebhookSourceGitHub     WebhookSource = "github"
)

// WebhookEvent is an append-only audit record of an inbound webhook.
type WebhookEvent struct {
	ID           uuid.UUID
	Source       WebhookSource
	EventType    string
	Payload      []byte
	ProcessedAt  *time.Time
	ErrorMessage *string
	RetryCount   int
	CreatedAt    time.Time
}

// Pending reports whether the event still awaits processing.
func (e WebhookEvent) Pending() bool {
	return e.ProcessedAt == nil
}

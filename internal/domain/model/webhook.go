package model

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// ErrWebhookEventNotFound is returned when no event matches an external id.
var ErrWebhookEventNotFound = errors.New("webhook event not found")

// WebhookEvent is an externally delivered event recorded once per external id.
type WebhookEvent struct {
	ID           string          `json:"id"                      db:"id"`
	ExternalID   string          `json:"external_id"             db:"external_id"`
	EventType    string          `json:"event_type"              db:"event_type"`
	Payload      json.RawMessage `json:"payload"                 db:"payload"`
	Processed    bool            `json:"processed"               db:"processed"`
	ProcessedAt  *time.Time      `json:"processed_at,omitempty"  db:"processed_at"`
	ErrorMessage *string         `json:"error_message,omitempty" db:"error_message"`
	RetryCount   int             `json:"retry_count"             db:"retry_count"`
	AttemptCount int             `json:"attempt_count"           db:"attempt_count"`
	CreatedAt    time.Time       `json:"created_at"              db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"              db:"updated_at"`
}

// LogEventRequest records a delivered event.
type LogEventRequest struct {
	ExternalID string          `json:"id"`
	EventType  string          `json:"type"`
	Payload    json.RawMessage `json:"-"`
}

// Validate validates the LogEventRequest fields.
func (r *LogEventRequest) Validate() error {
	if strings.TrimSpace(r.ExternalID) == "" {
		return errors.New("external event id is required")
	}
	if strings.TrimSpace(r.EventType) == "" {
		return errors.New("event type is required")
	}
	return ValidateDocument(r.Payload)
}

// LogEventResult identifies the ledger row for a delivery.
type LogEventResult struct {
	ID      string `json:"id"`
	Created bool   `json:"created"`
}

// WebhookRetryQuery selects unprocessed events eligible for redelivery.
type WebhookRetryQuery struct {
	MaxRetries int
	Window     time.Duration
	Limit      int
}

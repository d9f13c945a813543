package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	WebhookEventStatusProcessing = "processing"
	WebhookEventStatusCompleted  = "completed"
	WebhookEventStatusFailed     = "failed"
)

// WebhookEvent is one inbound delivery, deduplicated on the sender's event id.
type WebhookEvent struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	ExternalEventID string         `gorm:"type:varchar(191);not null;uniqueIndex:ux_webhook_events_external_event_id" json:"external_event_id"`
	EventType       string         `gorm:"type:varchar(100);not null;default:'';index" json:"event_type"`
	RawPayload      datatypes.JSON `gorm:"type:json" json:"raw_payload"`
	Signature       string         `gorm:"type:varchar(255);not null;default:''" json:"-"`
	Status          string         `gorm:"type:varchar(20);not null;default:'processing';index" json:"status"`
	ErrorMessage    *string        `gorm:"type:text" json:"error_message,omitempty"`
	Attempts        int            `gorm:"not null;default:1" json:"attempts"`
	ReceivedAt      time.Time      `gorm:"type:timestamp;not null" json:"received_at"`
	ProcessedAt     *time.Time     `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	CreatedAt       time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (e *WebhookEvent) IsFailed() bool {
	return e.Status == WebhookEventStatusFailed
}

package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	AssignmentStatusPending   = "pending"
	AssignmentStatusSent      = "sent"
	AssignmentStatusFailed    = "failed"
	AssignmentStatusCancelled = "cancelled"
)

// Assignment records the decision that a submission should receive a
// template. The (SubmissionID, TemplateID) pair is unique and acts as the
// idempotency key of the whole pipeline.
type Assignment struct {
	ID           uint                        `gorm:"primaryKey" json:"id"`
	SubmissionID uint                        `gorm:"not null;uniqueIndex:ux_assignments_submission_template,priority:1" json:"submission_id"`
	TemplateID   uint                        `gorm:"not null;uniqueIndex:ux_assignments_submission_template,priority:2;index" json:"template_id"`
	Status       string                      `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ReasonCodes  datatypes.JSONSlice[string] `gorm:"type:json" json:"reason_codes"`
	CreatedAt    time.Time                   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time                   `gorm:"autoUpdateTime" json:"updated_at"`
}

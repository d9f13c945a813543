package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	SubmissionStatusPending   = "pending"
	SubmissionStatusProcessed = "processed"
	SubmissionStatusFailed    = "failed"
)

const (
	LocationRomania  = "romania"
	LocationDiaspora = "diaspora"
	LocationUnknown  = "unknown"
)

// Submission is one external form response. It is keyed by the form
// provider's submission id and updated in place on repeat deliveries.
type Submission struct {
	ID             uint               `gorm:"primaryKey" json:"id"`
	ExternalID     string             `gorm:"type:varchar(191);not null;uniqueIndex:ux_submissions_external_id" json:"external_id"`
	SubmissionTime time.Time          `gorm:"type:timestamp;not null" json:"submission_time"`
	Email          string             `gorm:"type:varchar(255);not null;default:'';index" json:"email"`
	FirstName      string             `gorm:"type:varchar(255);not null;default:''" json:"first_name"`
	LastName       string             `gorm:"type:varchar(255);not null;default:''" json:"last_name"`
	Phone          string             `gorm:"type:varchar(64);not null;default:''" json:"phone"`
	LocationType   string             `gorm:"type:varchar(20);not null;default:'unknown';index" json:"location_type"`
	City           string             `gorm:"type:varchar(255);not null;default:''" json:"city"`
	Country        string             `gorm:"type:varchar(255);not null;default:''" json:"country"`
	Church         string             `gorm:"type:varchar(255);not null;default:''" json:"church"`
	RawData        datatypes.JSON     `gorm:"type:json" json:"raw_data"`
	Status         string             `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ProcessedAt    *time.Time         `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	Answers        []SubmissionAnswer `gorm:"foreignKey:SubmissionID;constraint:OnDelete:CASCADE" json:"answers,omitempty"`
	CreatedAt      time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

// SubmissionAnswer is an answer row owned by a Submission. The full set is
// deleted and recreated whenever the submission is updated.
type SubmissionAnswer struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	SubmissionID uint           `gorm:"not null;index" json:"submission_id"`
	QuestionID   string         `gorm:"type:varchar(191);not null" json:"question_id"`
	QuestionName string         `gorm:"type:text" json:"question_name"`
	QuestionType string         `gorm:"type:varchar(64);not null;default:''" json:"question_type"`
	DisplayValue *string        `gorm:"type:text" json:"display_value"`
	RawValue     datatypes.JSON `gorm:"type:json" json:"raw_value"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

package repository

import (
	"context"
	"time"

	"github.com/ManuelReschke/FormFox/app/models"
	"gorm.io/gorm"
)

// WebhookEventRepository defines the interface for webhook delivery bookkeeping
type WebhookEventRepository interface {
	GetByExternalID(ctx context.Context, externalEventID string) (*models.WebhookEvent, error)
	// CreateIfNotExists inserts the event unless its external id is already
	// known. It reports whether this call created the row.
	CreateIfNotExists(ctx context.Context, event *models.WebhookEvent) (bool, error)
	// ClaimFailedForRetry moves a failed event back to processing. Only one
	// concurrent caller can win the claim.
	ClaimFailedForRetry(ctx context.Context, id uint) (bool, error)
	MarkCompleted(ctx context.Context, id uint, processedAt time.Time) error
	MarkFailed(ctx context.Context, id uint, message string, processedAt time.Time) error
	// List returns one page of events, newest first, and the total matching the filter.
	List(ctx context.Context, filter WebhookEventFilter) ([]models.WebhookEvent, int64, error)
	// Stats ignores filter.Status and pagination; it covers the date range only.
	Stats(ctx context.Context, filter WebhookEventFilter) (*WebhookEventStats, error)
}

// WebhookEventFilter narrows event listings. Zero values do not filter.
type WebhookEventFilter struct {
	Status string
	From   *time.Time
	To     *time.Time
	Offset int
	Limit  int
}

// WebhookEventStats summarizes deliveries over a date range.
type WebhookEventStats struct {
	Total     int64
	Completed int64
	// AvgLatencyMs is the mean of processed_at - created_at over completed events.
	AvgLatencyMs float64
}

// SubmissionRepository defines the interface for submission-related database operations
type SubmissionRepository interface {
	// Upsert creates the submission or updates it in place by external id,
	// replacing its answers. It returns the stored row and, for updates, a
	// snapshot of the row before the change.
	Upsert(ctx context.Context, submission *models.Submission, answers []models.SubmissionAnswer) (created bool, previous *models.Submission, err error)
	GetWithAnswers(ctx context.Context, id uint) (*models.Submission, error)
	MarkProcessed(ctx context.Context, id uint, processedAt time.Time) error
}

// TemplateRepository defines the read-only template lookups used by ingestion
type TemplateRepository interface {
	FindBySlugs(ctx context.Context, slugs []string) ([]models.Template, error)
}

// AssignmentRepository defines the interface for assignment-related database operations
type AssignmentRepository interface {
	Exists(ctx context.Context, submissionID, templateID uint) (bool, error)
	// Create returns gorm.ErrDuplicatedKey when the pair already exists.
	Create(ctx context.Context, assignment *models.Assignment) error
	ListBySubmission(ctx context.Context, submissionID uint) ([]models.Assignment, error)
}

// AuditLogRepository defines the interface for audit log writes
type AuditLogRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
}

// Repositories holds all repository instances
type Repositories struct {
	WebhookEvent WebhookEventRepository
	Submission   SubmissionRepository
	Template     TemplateRepository
	Assignment   AssignmentRepository
	AuditLog     AuditLogRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		WebhookEvent: NewWebhookEventRepository(db),
		Submission:   NewSubmissionRepository(db),
		Template:     NewTemplateRepository(db),
		Assignment:   NewAssignmentRepository(db),
		AuditLog:     NewAuditLogRepository(db),
	}
}

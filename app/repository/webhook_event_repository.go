package repository

import (
	"context"
	"time"

	"github.com/ManuelReschke/FormFox/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// webhookEventRepository implements the WebhookEventRepository interface
type webhookEventRepository struct {
	db *gorm.DB
}

// NewWebhookEventRepository creates a new webhook event repository instance
func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepository{db: db}
}

func (r *webhookEventRepository) GetByExternalID(ctx context.Context, externalEventID string) (*models.WebhookEvent, error) {
	var event models.WebhookEvent
	err := r.db.WithContext(ctx).Where("external_event_id = ?", externalEventID).First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *webhookEventRepository) CreateIfNotExists(ctx context.Context, event *models.WebhookEvent) (bool, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_event_id"}},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, tx.Error
	}
	if tx.RowsAffected > 0 {
		return true, nil
	}

	// Lost the race: load the stored row so callers see its real id.
	return false, r.db.WithContext(ctx).Where("external_event_id = ?", event.ExternalEventID).First(event).Error
}

func (r *webhookEventRepository) ClaimFailedForRetry(ctx context.Context, id uint) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&models.WebhookEvent{}).
		Where("id = ? AND status = ?", id, models.WebhookEventStatusFailed).
		Updates(map[string]interface{}{
			"status":        models.WebhookEventStatusProcessing,
			"error_message": nil,
			"processed_at":  nil,
			"attempts":      gorm.Expr("attempts + 1"),
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *webhookEventRepository) MarkCompleted(ctx context.Context, id uint, processedAt time.Time) error {
	return r.db.WithContext(ctx).Model(&models.WebhookEvent{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       models.WebhookEventStatusCompleted,
			"processed_at": &processedAt,
		}).Error
}

func (r *webhookEventRepository) MarkFailed(ctx context.Context, id uint, message string, processedAt time.Time) error {
	return r.db.WithContext(ctx).Model(&models.WebhookEvent{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        models.WebhookEventStatusFailed,
			"error_message": message,
			"processed_at":  &processedAt,
		}).Error
}

func (r *webhookEventRepository) scopeDates(tx *gorm.DB, filter WebhookEventFilter) *gorm.DB {
	if filter.From != nil {
		tx = tx.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		tx = tx.Where("created_at <= ?", *filter.To)
	}
	return tx
}

func (r *webhookEventRepository) List(ctx context.Context, filter WebhookEventFilter) ([]models.WebhookEvent, int64, error) {
	query := r.scopeDates(r.db.WithContext(ctx).Model(&models.WebhookEvent{}), filter)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var events []models.WebhookEvent
	err := query.Order("created_at DESC").Order("id DESC").
		Offset(filter.Offset).Limit(filter.Limit).
		Find(&events).Error
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (r *webhookEventRepository) Stats(ctx context.Context, filter WebhookEventFilter) (*WebhookEventStats, error) {
	var row struct {
		Total        int64
		Completed    int64
		AvgLatencyMs *float64
	}
	err := r.scopeDates(r.db.WithContext(ctx).Model(&models.WebhookEvent{}), filter).
		Select(`COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS completed,
			AVG(CASE WHEN status = ? AND processed_at IS NOT NULL
				THEN TIMESTAMPDIFF(MICROSECOND, created_at, processed_at) / 1000 END) AS avg_latency_ms`,
			models.WebhookEventStatusCompleted, models.WebhookEventStatusCompleted).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}

	stats := &WebhookEventStats{Total: row.Total, Completed: row.Completed}
	if row.AvgLatencyMs != nil {
		stats.AvgLatencyMs = *row.AvgLatencyMs
	}
	return stats, nil
}

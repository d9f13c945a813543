package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ManuelReschke/FormFox/app/models"
	"gorm.io/gorm"
)

// submissionRepository implements the SubmissionRepository interface
type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository creates a new submission repository instance
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) Upsert(ctx context.Context, submission *models.Submission, answers []models.SubmissionAnswer) (bool, *models.Submission, error) {
	created, previous, err := r.upsertOnce(ctx, submission, answers)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// A concurrent delivery inserted the same external id first; the
		// second attempt takes the update path.
		created, previous, err = r.upsertOnce(ctx, submission, answers)
	}
	return created, previous, err
}

func (r *submissionRepository) upsertOnce(ctx context.Context, submission *models.Submission, answers []models.SubmissionAnswer) (bool, *models.Submission, error) {
	var (
		created  bool
		previous *models.Submission
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Submission
		err := tx.Where("external_id = ?", submission.ExternalID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			submission.ID = 0
			submission.Answers = nil
			if submission.Status == "" {
				submission.Status = models.SubmissionStatusPending
			}
			if err := tx.Omit("Answers").Create(submission).Error; err != nil {
				return err
			}
			created = true
		case err != nil:
			return err
		default:
			snapshot := existing
			previous = &snapshot
			if err := tx.Model(&models.Submission{}).Where("id = ?", existing.ID).
				Updates(map[string]interface{}{
					"email":         submission.Email,
					"first_name":    submission.FirstName,
					"last_name":     submission.LastName,
					"phone":         submission.Phone,
					"location_type": submission.LocationType,
					"city":          submission.City,
					"country":       submission.Country,
					"church":        submission.Church,
					"raw_data":      submission.RawData,
					"updated_at":    time.Now(),
				}).Error; err != nil {
				return err
			}
			if err := tx.Where("submission_id = ?", existing.ID).Delete(&models.SubmissionAnswer{}).Error; err != nil {
				return err
			}
		}

		var stored models.Submission
		if err := tx.First(&stored, "external_id = ?", submission.ExternalID).Error; err != nil {
			return err
		}
		*submission = stored

		if len(answers) == 0 {
			return nil
		}
		for i := range answers {
			answers[i].ID = 0
			answers[i].SubmissionID = submission.ID
		}
		if err := tx.Create(&answers).Error; err != nil {
			return err
		}
		submission.Answers = answers
		return nil
	})
	if err != nil {
		return false, nil, err
	}
	return created, previous, nil
}

func (r *submissionRepository) GetWithAnswers(ctx context.Context, id uint) (*models.Submission, error) {
	var submission models.Submission
	err := r.db.WithContext(ctx).
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		First(&submission, id).Error
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

func (r *submissionRepository) MarkProcessed(ctx context.Context, id uint, processedAt time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Submission{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       models.SubmissionStatusProcessed,
			"processed_at": &processedAt,
		}).Error
}

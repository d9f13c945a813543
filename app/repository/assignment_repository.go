package repository

import (
	"context"

	"github.com/ManuelReschke/FormFox/app/models"
	"gorm.io/gorm"
)

// assignmentRepository implements the AssignmentRepository interface
type assignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository creates a new assignment repository instance
func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (r *assignmentRepository) Exists(ctx context.Context, submissionID, templateID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Assignment{}).
		Where("submission_id = ? AND template_id = ?", submissionID, templateID).
		Count(&count).Error
	return count > 0, err
}

func (r *assignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *assignmentRepository) ListBySubmission(ctx context.Context, submissionID uint) ([]models.Assignment, error) {
	var assignments []models.Assignment
	err := r.db.WithContext(ctx).Where("submission_id = ?", submissionID).Order("id ASC").Find(&assignments).Error
	return assignments, err
}

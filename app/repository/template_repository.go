package repository

import (
	"context"

	"github.com/ManuelReschke/FormFox/app/models"
	"gorm.io/gorm"
)

// templateRepository implements the TemplateRepository interface
type templateRepository struct {
	db *gorm.DB
}

// NewTemplateRepository creates a new template repository instance
func NewTemplateRepository(db *gorm.DB) TemplateRepository {
	return &templateRepository{db: db}
}

// FindBySlugs resolves all given slugs in a single query
func (r *templateRepository) FindBySlugs(ctx context.Context, slugs []string) ([]models.Template, error) {
	if len(slugs) == 0 {
		return nil, nil
	}
	var templates []models.Template
	err := r.db.WithContext(ctx).Where("slug IN ?", slugs).Find(&templates).Error
	return templates, err
}

package assignment

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ManuelReschke/FormFox/app/models"
	"github.com/ManuelReschke/FormFox/app/repository"
	"github.com/ManuelReschke/FormFox/internal/pkg/metrics"
)

// MaterializeResult summarizes one materialization run. Errors holds
// human-readable per-candidate failures; they do not abort the run.
type MaterializeResult struct {
	Created int      `json:"created"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors"`
}

// Materializer turns candidates into stored assignments. Running it twice
// with the same input creates nothing the second time.
type Materializer struct {
	templates   repository.TemplateRepository
	assignments repository.AssignmentRepository
	metrics     metrics.Sink
}

func NewMaterializer(templates repository.TemplateRepository, assignments repository.AssignmentRepository, sink metrics.Sink) *Materializer {
	if sink == nil {
		sink = metrics.NewNoopSink()
	}
	return &Materializer{templates: templates, assignments: assignments, metrics: sink}
}

// Materialize creates a pending assignment per candidate whose template
// exists and which the submission does not have yet. The returned error is
// set only when the template lookup itself fails.
func (m *Materializer) Materialize(ctx context.Context, submissionID uint, candidates []Candidate) (MaterializeResult, error) {
	result := MaterializeResult{Errors: []string{}}
	if len(candidates) == 0 {
		return result, nil
	}

	slugs := make([]string, 0, len(candidates))
	for _, c := range candidates {
		slugs = append(slugs, c.TemplateSlug)
	}
	templates, err := m.templates.FindBySlugs(ctx, slugs)
	if err != nil {
		return result, fmt.Errorf("failed to load templates: %w", err)
	}
	bySlug := make(map[string]models.Template, len(templates))
	for _, t := range templates {
		bySlug[t.Slug] = t
	}

	for _, c := range candidates {
		tmpl, ok := bySlug[c.TemplateSlug]
		if !ok {
			log.Warnf("[Assignment] Template not found: %s (submission %d)", c.TemplateSlug, submissionID)
			result.Errors = append(result.Errors, fmt.Sprintf("Template not found: %s", c.TemplateSlug))
			continue
		}

		exists, err := m.assignments.Exists(ctx, submissionID, tmpl.ID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Failed to create assignment for %s: %v", c.TemplateSlug, err))
			continue
		}
		if exists {
			result.Skipped++
			continue
		}

		err = m.assignments.Create(ctx, &models.Assignment{
			SubmissionID: submissionID,
			TemplateID:   tmpl.ID,
			Status:       models.AssignmentStatusPending,
			ReasonCodes:  datatypes.JSONSlice[string]{c.Reason},
		})
		switch {
		case err == nil:
			result.Created++
		case errors.Is(err, gorm.ErrDuplicatedKey):
			// Lost the insert race against a concurrent delivery.
			result.Skipped++
		default:
			log.Errorf("[Assignment] Failed to create assignment for %s (submission %d): %v", c.TemplateSlug, submissionID, err)
			result.Errors = append(result.Errors, fmt.Sprintf("Failed to create assignment for %s: %v", c.TemplateSlug, err))
		}
	}

	m.metrics.AssignmentsMaterialized(result.Created, result.Skipped, len(result.Errors))
	return result, nil
}

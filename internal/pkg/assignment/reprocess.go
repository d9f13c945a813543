package assignment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/FormFox/app/repository"
	"github.com/ManuelReschke/FormFox/internal/pkg/audit"
	"github.com/ManuelReschke/FormFox/internal/pkg/metrics"
	"github.com/ManuelReschke/FormFox/internal/pkg/normalize"
)

// BatchResult summarizes a multi-submission reprocess.
type BatchResult struct {
	Processed int      `json:"processed"`
	Failed    int      `json:"failed"`
	Total     int      `json:"total"`
	Errors    []string `json:"errors"`
}

// Reprocessor re-runs the engine and materializer over stored submissions,
// for example after the rule set changed.
type Reprocessor struct {
	submissions  repository.SubmissionRepository
	engine       *Engine
	materializer *Materializer
	audit        audit.Sink
	metrics      metrics.Sink
	now          func() time.Time
}

func NewReprocessor(submissions repository.SubmissionRepository, engine *Engine, materializer *Materializer, auditSink audit.Sink, sink metrics.Sink) *Reprocessor {
	if auditSink == nil {
		auditSink = audit.NoopSink{}
	}
	if sink == nil {
		sink = metrics.NewNoopSink()
	}
	return &Reprocessor{
		submissions:  submissions,
		engine:       engine,
		materializer: materializer,
		audit:        auditSink,
		metrics:      sink,
		now:          time.Now,
	}
}

// Reprocess evaluates one stored submission again. A missing submission is
// reported in the result, not as an error.
func (r *Reprocessor) Reprocess(ctx context.Context, submissionID uint) (MaterializeResult, error) {
	sub, err := r.submissions.GetWithAnswers(ctx, submissionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return MaterializeResult{Errors: []string{fmt.Sprintf("Submission not found: %d", submissionID)}}, nil
	}
	if err != nil {
		return MaterializeResult{}, fmt.Errorf("failed to load submission %d: %w", submissionID, err)
	}

	normalized := normalize.FromStored(sub)
	result, err := r.materializer.Materialize(ctx, sub.ID, r.engine.Candidates(normalized))
	if err != nil {
		return result, err
	}

	if err := r.submissions.MarkProcessed(ctx, sub.ID, r.now()); err != nil {
		return result, fmt.Errorf("failed to mark submission %d processed: %w", sub.ID, err)
	}

	r.audit.Record(ctx, audit.Entry{
		UserID:     audit.ActorFrom(ctx),
		Action:     audit.ActionSubmissionReprocess,
		Resource:   audit.ResourceSubmission,
		ResourceID: strconv.FormatUint(uint64(sub.ID), 10),
		NewValue:   result,
	})

	log.Infof("[Reprocess] Submission %d: created=%d skipped=%d errors=%d", sub.ID, result.Created, result.Skipped, len(result.Errors))
	return result, nil
}

// ReprocessMany handles each id independently; one failure never stops the
// rest. A submission counts as failed if it errored or its result carries
// errors.
func (r *Reprocessor) ReprocessMany(ctx context.Context, submissionIDs []uint) BatchResult {
	batch := BatchResult{Total: len(submissionIDs), Errors: []string{}}
	for _, id := range submissionIDs {
		if err := ctx.Err(); err != nil {
			batch.Failed++
			batch.Errors = append(batch.Errors, fmt.Sprintf("Submission %d: %v", id, err))
			continue
		}

		result, err := r.Reprocess(ctx, id)
		switch {
		case err != nil:
			batch.Failed++
			batch.Errors = append(batch.Errors, fmt.Sprintf("Submission %d: %v", id, err))
			r.metrics.SubmissionReprocessed(false)
		case len(result.Errors) > 0:
			batch.Failed++
			for _, msg := range result.Errors {
				batch.Errors = append(batch.Errors, fmt.Sprintf("Submission %d: %s", id, msg))
			}
			r.metrics.SubmissionReprocessed(false)
		default:
			batch.Processed++
			r.metrics.SubmissionReprocessed(true)
		}
	}
	return batch
}

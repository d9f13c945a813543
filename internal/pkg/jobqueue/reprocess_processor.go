package jobqueue

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/FormFox/internal/pkg/assignment"
	"github.com/ManuelReschke/FormFox/internal/pkg/audit"
)

// BatchReprocessor is the part of assignment.Reprocessor the job needs.
type BatchReprocessor interface {
	ReprocessMany(ctx context.Context, submissionIDs []uint) assignment.BatchResult
}

// NewReprocessHandler returns the handler for JobTypeReprocessSubmissions.
// Ids are processed in chunks of chunkSize and the cursor is checkpointed
// after every chunk.
func NewReprocessHandler(r BatchReprocessor, chunkSize int) Handler {
	if chunkSize <= 0 {
		chunkSize = 50
	}

	return func(ctx context.Context, job *Job, checkpoint func(*Job)) error {
		payload, err := ReprocessJobPayloadFromMap(job.Payload)
		if err != nil {
			return fmt.Errorf("invalid reprocess payload: %w", err)
		}
		if payload.Cursor < 0 || payload.Cursor > len(payload.SubmissionIDs) {
			return fmt.Errorf("invalid reprocess cursor %d for %d ids", payload.Cursor, len(payload.SubmissionIDs))
		}
		if payload.RequestedBy != "" {
			ctx = audit.WithActor(ctx, payload.RequestedBy)
		}
		if payload.Cursor > 0 {
			log.Infof("[JobQueue] Resuming reprocess job %s at %d/%d", job.ID, payload.Cursor, len(payload.SubmissionIDs))
		}

		for !payload.Done() {
			if err := ctx.Err(); err != nil {
				return err
			}

			end := payload.Cursor + chunkSize
			if end > len(payload.SubmissionIDs) {
				end = len(payload.SubmissionIDs)
			}

			batch := r.ReprocessMany(ctx, payload.SubmissionIDs[payload.Cursor:end])
			payload.Processed += batch.Processed
			payload.Failed += batch.Failed
			payload.Errors = append(payload.Errors, batch.Errors...)
			payload.Cursor = end

			job.Payload = payload.ToMap()
			checkpoint(job)
		}

		log.Infof("[JobQueue] Reprocess job %s finished: processed=%d failed=%d", job.ID, payload.Processed, payload.Failed)
		return nil
	}
}

// BatchResultOf reports a reprocess job's progress in the shape of a
// synchronous batch.
func BatchResultOf(job *Job) (assignment.BatchResult, error) {
	payload, err := ReprocessJobPayloadFromMap(job.Payload)
	if err != nil {
		return assignment.BatchResult{}, err
	}
	errs := payload.Errors
	if errs == nil {
		errs = []string{}
	}
	return assignment.BatchResult{
		Processed: payload.Processed,
		Failed:    payload.Failed,
		Total:     len(payload.SubmissionIDs),
		Errors:    errs,
	}, nil
}

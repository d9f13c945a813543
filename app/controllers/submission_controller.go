package controllers

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/FormFox/app/repository"
	"github.com/ManuelReschke/FormFox/internal/pkg/assignment"
	"github.com/ManuelReschke/FormFox/internal/pkg/audit"
	"github.com/ManuelReschke/FormFox/internal/pkg/jobqueue"
	"github.com/ManuelReschke/FormFox/internal/pkg/middleware"
)

// SubmissionReprocessor is the part of assignment.Reprocessor the admin API uses.
type SubmissionReprocessor interface {
	Reprocess(ctx context.Context, submissionID uint) (assignment.MaterializeResult, error)
	ReprocessMany(ctx context.Context, submissionIDs []uint) assignment.BatchResult
}

// JobEnqueuer schedules background jobs.
type JobEnqueuer interface {
	EnqueueJob(ctx context.Context, jobType jobqueue.JobType, payload map[string]interface{}) (*jobqueue.Job, error)
}

// ReprocessRequest is the body of POST /api/v1/admin/submissions/reprocess.
type ReprocessRequest struct {
	SubmissionIDs []uint `json:"submissionIds" validate:"required,min=1,dive,gt=0"`
	Async         bool   `json:"async"`
}

type SubmissionController struct {
	reprocessor SubmissionReprocessor
	jobs        JobEnqueuer
	submissions repository.SubmissionRepository
	assignments repository.AssignmentRepository
	maxBatch    int
}

// NewSubmissionController wires the admin submission endpoints. jobs may be
// nil, in which case async requests are refused.
func NewSubmissionController(reprocessor SubmissionReprocessor, jobs JobEnqueuer, submissions repository.SubmissionRepository, assignments repository.AssignmentRepository, maxBatch int) *SubmissionController {
	return &SubmissionController{
		reprocessor: reprocessor,
		jobs:        jobs,
		submissions: submissions,
		assignments: assignments,
		maxBatch:    maxBatch,
	}
}

// HandleReprocessBatch handles POST /api/v1/admin/submissions/reprocess.
func (sc *SubmissionController) HandleReprocessBatch(c *fiber.Ctx) error {
	var req ReprocessRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "body must be JSON with a submissionIds array")
	}
	if err := validate.Struct(req); err != nil {
		return badRequest(c, "submissionIds must be a non-empty array of positive ids")
	}
	if sc.maxBatch > 0 && len(req.SubmissionIDs) > sc.maxBatch {
		return badRequest(c, fmt.Sprintf("at most %d submissionIds per request", sc.maxBatch))
	}

	actor := middleware.AdminActor(c)

	if req.Async {
		if sc.jobs == nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "job_queue_unavailable"})
		}
		payload := jobqueue.ReprocessJobPayload{SubmissionIDs: req.SubmissionIDs, RequestedBy: actor}
		job, err := sc.jobs.EnqueueJob(c.UserContext(), jobqueue.JobTypeReprocessSubmissions, payload.ToMap())
		if err != nil {
			log.Errorf("[Reprocess] Failed to enqueue job for %d submissions: %v", len(req.SubmissionIDs), err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "enqueue_failed"})
		}
		log.Infof("[Reprocess] Enqueued job %s for %d submissions", job.ID, len(req.SubmissionIDs))
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"job_id": job.ID})
	}

	ctx := audit.WithActor(c.UserContext(), actor)
	return c.JSON(sc.reprocessor.ReprocessMany(ctx, req.SubmissionIDs))
}

// HandleReprocessOne handles POST /api/v1/admin/submissions/:id/reprocess.
func (sc *SubmissionController) HandleReprocessOne(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	ctx := audit.WithActor(c.UserContext(), middleware.AdminActor(c))
	result, err := sc.reprocessor.Reprocess(ctx, id)
	if err != nil {
		log.Errorf("[Reprocess] Submission %d failed: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "reprocess_failed"})
	}
	return c.JSON(result)
}

// HandleListAssignments handles GET /api/v1/admin/submissions/:id/assignments.
func (sc *SubmissionController) HandleListAssignments(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	sub, err := sc.submissions.GetWithAnswers(c.UserContext(), id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "submission_not_found"})
	}
	if err != nil {
		log.Errorf("[Admin] Failed to load submission %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	assignments, err := sc.assignments.ListBySubmission(c.UserContext(), id)
	if err != nil {
		log.Errorf("[Admin] Failed to list assignments of submission %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	return c.JSON(fiber.Map{
		"submission_id": sub.ID,
		"external_id":   sub.ExternalID,
		"status":        sub.Status,
		"processed_at":  formatTimePtr(sub.ProcessedAt),
		"assignments":   assignments,
	})
}

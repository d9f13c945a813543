package controllers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/FormFox/internal/pkg/jobqueue"
)

// JobReader loads stored jobs; it returns redis.Nil for unknown ids.
type JobReader interface {
	GetJob(ctx context.Context, jobID string) (*jobqueue.Job, error)
	GetJobStats(ctx context.Context) (map[jobqueue.JobStatus]int64, error)
	GetQueueSize(ctx context.Context) (int64, error)
	GetProcessingSize(ctx context.Context) (int64, error)
}

type JobController struct {
	jobs JobReader
}

func NewJobController(jobs JobReader) *JobController {
	return &JobController{jobs: jobs}
}

// HandleGetJob handles GET /api/v1/admin/jobs/:id.
func (jc *JobController) HandleGetJob(c *fiber.Ctx) error {
	if jc.jobs == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "job_queue_unavailable"})
	}

	jobID := c.Params("id")
	job, err := jc.jobs.GetJob(c.UserContext(), jobID)
	if errors.Is(err, redis.Nil) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "job_not_found"})
	}
	if err != nil {
		log.Errorf("[JobQueue] Failed to load job %s: %v", jobID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	resp := fiber.Map{
		"job_id":       job.ID,
		"type":         job.Type,
		"status":       job.Status,
		"created_at":   formatTimePtr(&job.CreatedAt),
		"completed_at": formatTimePtr(job.CompletedAt),
		"retry_count":  job.RetryCount,
	}
	if job.ErrorMsg != "" {
		resp["error_message"] = job.ErrorMsg
	}

	if job.Type == jobqueue.JobTypeReprocessSubmissions {
		payload, err := jobqueue.ReprocessJobPayloadFromMap(job.Payload)
		if err != nil {
			log.Warnf("[JobQueue] Job %s has an unreadable payload: %v", job.ID, err)
		} else {
			result, _ := jobqueue.BatchResultOf(job)
			resp["progress"] = fiber.Map{"done": payload.Cursor, "total": len(payload.SubmissionIDs)}
			resp["result"] = result
		}
	}

	return c.JSON(resp)
}

// HandleStats handles GET /api/v1/admin/jobs.
func (jc *JobController) HandleStats(c *fiber.Ctx) error {
	if jc.jobs == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "job_queue_unavailable"})
	}

	ctx := c.UserContext()
	stats, err := jc.jobs.GetJobStats(ctx)
	if err != nil {
		log.Errorf("[JobQueue] Failed to read job stats: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}
	pending, err := jc.jobs.GetQueueSize(ctx)
	if err != nil {
		log.Errorf("[JobQueue] Failed to read queue size: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}
	processing, err := jc.jobs.GetProcessingSize(ctx)
	if err != nil {
		log.Errorf("[JobQueue] Failed to read processing size: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	return c.JSON(fiber.Map{
		"queued":     pending,
		"processing": processing,
		"totals":     stats,
	})
}

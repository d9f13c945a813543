package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// Redis key prefixes
	JobKeyPrefix     = "formfox:job:"
	JobQueueKey      = "formfox:job_queue"
	JobProcessingKey = "formfox:job_processing"
	JobStatsKey      = "formfox:job_stats"

	// Job settings
	DefaultMaxRetries = 3
	JobTTL            = 24 * time.Hour
)

// Handler runs one job. checkpoint persists the job's current payload so a
// job recovered after a crash resumes from it.
type Handler func(ctx context.Context, job *Job, checkpoint func(*Job)) error

// Queue manages background jobs using Redis
type Queue struct {
	client     *redis.Client
	workers    int
	workerPool chan struct{}
	handlers   map[JobType]Handler
	stopCh     chan struct{}
	wg         sync.WaitGroup
	mu         sync.Mutex
	running    bool
}

// NewQueue creates a new job queue
func NewQueue(client *redis.Client, workers int) *Queue {
	if workers <= 0 {
		workers = 2
	}

	return &Queue{
		client:     client,
		workers:    workers,
		workerPool: make(chan struct{}, workers),
		handlers:   make(map[JobType]Handler),
		stopCh:     make(chan struct{}),
	}
}

// RegisterHandler sets the handler for a job type. Call before Start.
func (q *Queue) RegisterHandler(jobType JobType, h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[jobType] = h
}

// Start starts the job queue workers
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running {
		return
	}

	q.stopCh = make(chan struct{})
	q.running = true
	log.Infof("[JobQueue] Starting %d workers", q.workers)

	for i := 0; i < q.workers; i++ {
		q.workerPool <- struct{}{}
	}

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}

	// Recovers jobs left in processing by a crashed worker
	q.wg.Add(1)
	go q.stuckSweeper(10*time.Minute, 1*time.Minute)
}

// Stop stops the job queue workers
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.running {
		return
	}

	log.Info("[JobQueue] Stopping workers...")
	close(q.stopCh)
	q.running = false
	q.wg.Wait()
	for len(q.workerPool) > 0 {
		<-q.workerPool
	}
	log.Info("[JobQueue] All workers stopped")
}

// stuckSweeper periodically scans the processing list and requeues jobs stuck for longer than maxAge
func (q *Queue) stuckSweeper(maxAge time.Duration, interval time.Duration) {
	defer q.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	ctx := context.Background()
	for {
		select {
		case <-q.stopCh:
			return
		case <-ticker.C:
			if n := q.RecoverStuck(ctx, maxAge); n > 0 {
				log.Warnf("[JobQueue] Recovered %d stuck job(s)", n)
			}
		}
	}
}

// RecoverStuck moves jobs that have been processing for longer than maxAge
// back to the pending queue and returns how many were moved.
func (q *Queue) RecoverStuck(ctx context.Context, maxAge time.Duration) int {
	ids, err := q.client.LRange(ctx, JobProcessingKey, 0, -1).Result()
	if err != nil {
		log.Errorf("[JobQueue] Sweeper LRange error: %v", err)
		return 0
	}

	recovered := 0
	now := time.Now()
	for _, id := range ids {
		job, err := q.GetJob(ctx, id)
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				log.Errorf("[JobQueue] Sweeper load error for %s: %v", id, err)
			}
			_ = q.client.LRem(ctx, JobProcessingKey, 1, id).Err()
			continue
		}
		if job.Status != JobStatusProcessing {
			_ = q.client.LRem(ctx, JobProcessingKey, 1, id).Err()
			continue
		}

		started := job.UpdatedAt
		if job.ProcessedAt != nil && !job.ProcessedAt.IsZero() {
			started = *job.ProcessedAt
		}
		if now.Sub(started) <= maxAge {
			continue
		}

		log.Warnf("[JobQueue] Recovering stuck job %s (type=%s), age=%s", job.ID, job.Type, now.Sub(started))
		job.Status = JobStatusPending
		job.ErrorMsg = "recovered by sweeper"
		job.UpdatedAt = now
		q.updateJob(ctx, job)
		_ = q.client.LRem(ctx, JobProcessingKey, 1, id).Err()
		_ = q.client.RPush(ctx, JobQueueKey, id).Err()
		recovered++
	}
	return recovered
}

// worker processes jobs from the queue
func (q *Queue) worker(id int) {
	defer q.wg.Done()
	log.Infof("[JobQueue] Worker %d started", id)

	ctx := context.Background()

	for {
		select {
		case <-q.stopCh:
			log.Infof("[JobQueue] Worker %d stopping", id)
			return
		default:
			<-q.workerPool

			job, err := q.dequeueJob(ctx)
			if err != nil {
				if !errors.Is(err, redis.Nil) {
					log.Errorf("[JobQueue] Worker %d: Error dequeuing job: %v", id, err)
					time.Sleep(time.Second)
				}
				q.workerPool <- struct{}{}
				continue
			}

			log.Infof("[JobQueue] Worker %d processing job %s (Type: %s)", id, job.ID, job.Type)
			q.processJob(ctx, job)

			q.workerPool <- struct{}{}
		}
	}
}

// EnqueueJob adds a new job to the queue
func (q *Queue) EnqueueJob(ctx context.Context, jobType JobType, payload map[string]interface{}) (*Job, error) {
	now := time.Now()
	job := &Job{
		ID:         uuid.New().String(),
		Type:       jobType,
		Status:     JobStatusPending,
		Payload:    payload,
		CreatedAt:  now,
		UpdatedAt:  now,
		MaxRetries: DefaultMaxRetries,
	}

	jobData, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job: %w", err)
	}

	pipe := q.client.Pipeline()
	pipe.Set(ctx, JobKeyPrefix+job.ID, jobData, JobTTL)
	pipe.LPush(ctx, JobQueueKey, job.ID)
	pipe.HIncrBy(ctx, JobStatsKey, string(JobStatusPending), 1)

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	log.Infof("[JobQueue] Enqueued job %s (Type: %s)", job.ID, job.Type)
	return job, nil
}

// dequeueJob moves the next job from the pending list to the processing list
func (q *Queue) dequeueJob(ctx context.Context) (*Job, error) {
	jobID, err := q.client.BRPopLPush(ctx, JobQueueKey, JobProcessingKey, time.Second).Result()
	if err != nil {
		return nil, err
	}

	job, err := q.GetJob(ctx, jobID)
	if err != nil {
		q.client.LRem(ctx, JobProcessingKey, 1, jobID)
		return nil, fmt.Errorf("job data not found for ID %s: %w", jobID, err)
	}
	return job, nil
}

// processJob runs a single job and records its outcome
func (q *Queue) processJob(ctx context.Context, job *Job) {
	job.MarkAsProcessing()
	q.updateJob(ctx, job)

	q.mu.Lock()
	handler, ok := q.handlers[job.Type]
	q.mu.Unlock()

	var err error
	if !ok {
		err = fmt.Errorf("unknown job type: %s", job.Type)
	} else {
		err = handler(ctx, job, func(j *Job) {
			j.UpdatedAt = time.Now()
			q.updateJob(ctx, j)
		})
	}

	if err != nil {
		log.Errorf("[JobQueue] Job %s failed: %v", job.ID, err)
		job.MarkAsFailed(err.Error())

		if job.IsRetryable() {
			log.Infof("[JobQueue] Retrying job %s (Attempt %d/%d)", job.ID, job.RetryCount, job.MaxRetries)
			job.MarkAsRetrying()
			q.updateJob(ctx, job)

			jobID := job.ID
			time.AfterFunc(time.Minute*time.Duration(job.RetryCount), func() {
				q.client.LPush(context.Background(), JobQueueKey, jobID)
			})
		} else {
			log.Errorf("[JobQueue] Job %s permanently failed after %d retries", job.ID, job.RetryCount)
			q.updateJob(ctx, job)
			q.updateJobStats(ctx, JobStatusFailed, 1)
		}
	} else {
		log.Infof("[JobQueue] Job %s completed successfully", job.ID)
		job.MarkAsCompleted()
		// Completed jobs stay readable until JobTTL for status queries.
		q.updateJob(ctx, job)
		q.updateJobStats(ctx, JobStatusCompleted, 1)
	}

	q.removeFromProcessing(ctx, job.ID)
}

// updateJob updates job data in Redis
func (q *Queue) updateJob(ctx context.Context, job *Job) {
	jobData, err := json.Marshal(job)
	if err != nil {
		log.Errorf("[JobQueue] Failed to marshal job %s: %v", job.ID, err)
		return
	}

	if err := q.client.Set(ctx, JobKeyPrefix+job.ID, jobData, JobTTL).Err(); err != nil {
		log.Errorf("[JobQueue] Failed to update job %s: %v", job.ID, err)
	}
}

// removeFromProcessing removes a job from the processing queue
func (q *Queue) removeFromProcessing(ctx context.Context, jobID string) {
	if err := q.client.LRem(ctx, JobProcessingKey, 1, jobID).Err(); err != nil {
		log.Errorf("[JobQueue] Failed to remove job %s from processing queue: %v", jobID, err)
	}
}

// updateJobStats updates job statistics
func (q *Queue) updateJobStats(ctx context.Context, status JobStatus, delta int64) {
	if err := q.client.HIncrBy(ctx, JobStatsKey, string(status), delta).Err(); err != nil {
		log.Errorf("[JobQueue] Failed to update job stats: %v", err)
	}
}

// GetJob retrieves a job by ID. A missing job returns redis.Nil.
func (q *Queue) GetJob(ctx context.Context, jobID string) (*Job, error) {
	jobData, err := q.client.Get(ctx, JobKeyPrefix+jobID).Result()
	if err != nil {
		return nil, err
	}

	var job Job
	if err := json.Unmarshal([]byte(jobData), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	return &job, nil
}

// GetJobStats returns statistics about job statuses
func (q *Queue) GetJobStats(ctx context.Context) (map[JobStatus]int64, error) {
	stats, err := q.client.HGetAll(ctx, JobStatsKey).Result()
	if err != nil {
		return nil, err
	}

	result := make(map[JobStatus]int64)
	for status, count := range stats {
		if countInt, err := json.Number(count).Int64(); err == nil {
			result[JobStatus(status)] = countInt
		}
	}

	return result, nil
}

// GetQueueSize returns the number of pending jobs
func (q *Queue) GetQueueSize(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, JobQueueKey).Result()
}

// GetProcessingSize returns the number of jobs being processed
func (q *Queue) GetProcessingSize(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, JobProcessingKey).Result()
}

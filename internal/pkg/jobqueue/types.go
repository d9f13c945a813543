package jobqueue

import (
	"encoding/json"
	"time"
)

// JobType defines the type of job
type JobType string

const (
	JobTypeReprocessSubmissions JobType = "reprocess_submissions"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// ReprocessJobPayload carries the ids of a bulk reprocess and its progress.
// Cursor is the index of the first id not yet processed; the running
// totals let a resumed job report the whole batch.
type ReprocessJobPayload struct {
	SubmissionIDs []uint   `json:"submission_ids"`
	Cursor        int      `json:"cursor"`
	Processed     int      `json:"processed"`
	Failed        int      `json:"failed"`
	Errors        []string `json:"errors"`
	// RequestedBy is the admin actor recorded in the audit trail.
	RequestedBy string `json:"requested_by,omitempty"`
}

// ToMap converts the payload to a map for storage
func (p ReprocessJobPayload) ToMap() map[string]interface{} {
	errs := p.Errors
	if errs == nil {
		errs = []string{}
	}
	return map[string]interface{}{
		"submission_ids": p.SubmissionIDs,
		"cursor":         p.Cursor,
		"processed":      p.Processed,
		"failed":         p.Failed,
		"errors":         errs,
		"requested_by":   p.RequestedBy,
	}
}

// ReprocessJobPayloadFromMap creates a payload from a map
func ReprocessJobPayloadFromMap(data map[string]interface{}) (*ReprocessJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload ReprocessJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// Done reports whether every id has been processed.
func (p ReprocessJobPayload) Done() bool {
	return p.Cursor >= len(p.SubmissionIDs)
}

// IsRetryable checks if the job can be retried
func (j *Job) IsRetryable() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// MarkAsProcessing updates the job status to processing
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	j.ProcessedAt = &now
}

// MarkAsCompleted updates the job status to completed
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.UpdatedAt = now
	j.CompletedAt = &now
	j.ErrorMsg = ""
}

// MarkAsFailed updates the job status to failed
func (j *Job) MarkAsFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.UpdatedAt = time.Now()
	j.ErrorMsg = errorMsg
	j.RetryCount++
}

// MarkAsRetrying updates the job status to retrying
func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}

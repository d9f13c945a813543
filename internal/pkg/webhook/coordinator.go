// Package webhook ingests signed form-submission deliveries: it verifies
// them, deduplicates on the sender's event id and runs every submission
// through normalization, the rule engine and the materializer.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ManuelReschke/FormFox/app/models"
	"github.com/ManuelReschke/FormFox/app/repository"
	"github.com/ManuelReschke/FormFox/internal/pkg/archive"
	"github.com/ManuelReschke/FormFox/internal/pkg/assignment"
	"github.com/ManuelReschke/FormFox/internal/pkg/audit"
	"github.com/ManuelReschke/FormFox/internal/pkg/metrics"
	"github.com/ManuelReschke/FormFox/internal/pkg/normalize"
)

// DedupPolicy decides what a resend of a known event id does.
type DedupPolicy int

const (
	// DedupRetryFailed lets a resend of a failed event run again.
	DedupRetryFailed DedupPolicy = iota
	// DedupStrict treats every known event id as processed.
	DedupStrict
)

// Status is the outcome of an accepted delivery.
type Status string

const (
	StatusSuccess          Status = "success"
	StatusAlreadyProcessed Status = "already_processed"
)

// Delivery is one inbound webhook request.
type Delivery struct {
	Signature  string
	EventID    string
	EventType  string
	Body       []byte
	ReceivedAt time.Time
}

// SubmissionResult reports what happened to one submission of a delivery.
type SubmissionResult struct {
	SubmissionID uint                         `json:"submission_id"`
	ExternalID   string                       `json:"external_id"`
	Created      bool                         `json:"created"`
	Assignments  assignment.MaterializeResult `json:"assignments"`
}

type IngestResult struct {
	Status      Status             `json:"status"`
	EventID     string             `json:"event_id"`
	Submissions []SubmissionResult `json:"submissions"`
}

// Dependencies wires a Coordinator. Audit, Archiver and Metrics are optional.
type Dependencies struct {
	Verifier     *Verifier
	Events       repository.WebhookEventRepository
	Submissions  repository.SubmissionRepository
	Engine       *assignment.Engine
	Materializer *assignment.Materializer
	Audit        audit.Sink
	Archiver     archive.Archiver
	Metrics      metrics.Sink
	Policy       DedupPolicy
}

type Coordinator struct {
	verifier     *Verifier
	events       repository.WebhookEventRepository
	submissions  repository.SubmissionRepository
	engine       *assignment.Engine
	materializer *assignment.Materializer
	audit        audit.Sink
	archiver     archive.Archiver
	metrics      metrics.Sink
	policy       DedupPolicy
	now          func() time.Time
}

func NewCoordinator(deps Dependencies) *Coordinator {
	c := &Coordinator{
		verifier:     deps.Verifier,
		events:       deps.Events,
		submissions:  deps.Submissions,
		engine:       deps.Engine,
		materializer: deps.Materializer,
		audit:        deps.Audit,
		archiver:     deps.Archiver,
		metrics:      deps.Metrics,
		policy:       deps.Policy,
		now:          time.Now,
	}
	if c.audit == nil {
		c.audit = audit.NoopSink{}
	}
	if c.archiver == nil {
		c.archiver = archive.Noop{}
	}
	if c.metrics == nil {
		c.metrics = metrics.NewNoopSink()
	}
	return c
}

// Ingest verifies, deduplicates and processes one delivery. Nothing is
// stored for deliveries rejected with ErrRequestInvalid,
// ErrSecretNotConfigured or ErrUnauthorized.
func (c *Coordinator) Ingest(ctx context.Context, d Delivery) (*IngestResult, error) {
	start := c.now()
	if d.ReceivedAt.IsZero() {
		d.ReceivedAt = start
	}
	c.metrics.WebhookReceived(d.EventType)

	result, err := c.ingest(ctx, d)
	c.metrics.WebhookCompleted(outcomeOf(result, err), c.now().Sub(start))
	return result, err
}

func (c *Coordinator) ingest(ctx context.Context, d Delivery) (*IngestResult, error) {
	d.Signature = strings.TrimSpace(d.Signature)
	d.EventID = strings.TrimSpace(d.EventID)
	d.EventType = strings.TrimSpace(d.EventType)
	if d.Signature == "" || d.EventID == "" {
		return nil, fmt.Errorf("%w: missing signature or event id", ErrRequestInvalid)
	}

	if err := c.verifier.Verify(d.Body, d.Signature); err != nil {
		return nil, err
	}

	payload, err := ParsePayload(d.Body, d.EventType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestInvalid, err)
	}

	event, proceed, err := c.claim(ctx, d, payload)
	if err != nil {
		return nil, err
	}
	if !proceed {
		log.Infof("[Webhook] Event %s already processed, skipping", d.EventID)
		return &IngestResult{Status: StatusAlreadyProcessed, EventID: d.EventID, Submissions: []SubmissionResult{}}, nil
	}

	if err := c.archiver.Archive(ctx, archive.Delivery{
		EventID:    d.EventID,
		EventType:  event.EventType,
		Body:       d.Body,
		ReceivedAt: d.ReceivedAt,
	}); err != nil {
		log.Warnf("[Webhook] Failed to archive event %s: %v", d.EventID, err)
	}

	results, err := c.process(ctx, payload, d.ReceivedAt)
	if err != nil {
		log.Errorf("[Webhook] Processing event %s failed: %v", d.EventID, err)
		if markErr := c.events.MarkFailed(ctx, event.ID, err.Error(), c.now()); markErr != nil {
			log.Errorf("[Webhook] Failed to mark event %s failed: %v", d.EventID, markErr)
		}
		return nil, &PersistenceError{Op: "process", Err: err}
	}

	if err := c.events.MarkCompleted(ctx, event.ID, c.now()); err != nil {
		log.Errorf("[Webhook] Finalizing event %s failed: %v", d.EventID, err)
		// a failed event can still be claimed by a resend
		if markErr := c.events.MarkFailed(ctx, event.ID, err.Error(), c.now()); markErr != nil {
			log.Errorf("[Webhook] Failed to mark event %s failed: %v", d.EventID, markErr)
		}
		return nil, &PersistenceError{Op: "finalize", Err: err}
	}

	log.Infof("[Webhook] Event %s (%s) completed with %d submission(s)", d.EventID, event.EventType, len(results))
	return &IngestResult{Status: StatusSuccess, EventID: d.EventID, Submissions: results}, nil
}

// claim records the event as processing. proceed is false when the event
// id is already known and must not run again.
func (c *Coordinator) claim(ctx context.Context, d Delivery, payload *Payload) (*models.WebhookEvent, bool, error) {
	existing, err := c.events.GetByExternalID(ctx, d.EventID)
	switch {
	case err == nil:
		if c.policy != DedupRetryFailed || !existing.IsFailed() {
			return nil, false, nil
		}
		claimed, err := c.events.ClaimFailedForRetry(ctx, existing.ID)
		if err != nil {
			return nil, false, &PersistenceError{Op: "claim", Err: err}
		}
		if !claimed {
			return nil, false, nil
		}
		log.Infof("[Webhook] Retrying failed event %s (attempt %d)", d.EventID, existing.Attempts+1)
		return existing, true, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, false, &PersistenceError{Op: "dedup", Err: err}
	}

	eventType := d.EventType
	if eventType == "" {
		eventType = payload.Type
	}
	event := &models.WebhookEvent{
		ExternalEventID: d.EventID,
		EventType:       eventType,
		RawPayload:      datatypes.JSON(d.Body),
		Signature:       d.Signature,
		Status:          models.WebhookEventStatusProcessing,
		Attempts:        1,
		ReceivedAt:      d.ReceivedAt,
	}
	created, err := c.events.CreateIfNotExists(ctx, event)
	if err != nil {
		return nil, false, &PersistenceError{Op: "record", Err: err}
	}
	return event, created, nil
}

func (c *Coordinator) process(ctx context.Context, payload *Payload, receivedAt time.Time) ([]SubmissionResult, error) {
	results := make([]SubmissionResult, 0, len(payload.Records))
	for _, rec := range payload.Records {
		res, err := c.processRecord(ctx, rec, receivedAt)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (c *Coordinator) processRecord(ctx context.Context, rec PayloadRecord, receivedAt time.Time) (SubmissionResult, error) {
	norm := normalize.Normalize(rec.Record)
	if norm.SubmissionTime.IsZero() {
		norm.SubmissionTime = receivedAt
	}

	sub := &models.Submission{
		ExternalID:     norm.SubmissionID,
		SubmissionTime: norm.SubmissionTime,
		Email:          norm.Email,
		FirstName:      norm.FirstName,
		LastName:       norm.LastName,
		Phone:          norm.Phone,
		LocationType:   norm.LocationType,
		City:           norm.City,
		Country:        norm.Country,
		Church:         norm.Church,
		RawData:        datatypes.JSON(rec.Raw),
		Status:         models.SubmissionStatusPending,
	}
	created, previous, err := c.submissions.Upsert(ctx, sub, answerRows(norm.AnswerRows))
	if err != nil {
		return SubmissionResult{}, fmt.Errorf("failed to store submission %s: %w", norm.SubmissionID, err)
	}
	c.auditUpsert(ctx, sub, created, previous)

	mr, err := c.materializer.Materialize(ctx, sub.ID, c.engine.Candidates(norm))
	if err != nil {
		return SubmissionResult{}, fmt.Errorf("failed to materialize assignments for submission %d: %w", sub.ID, err)
	}
	if len(mr.Errors) > 0 {
		log.Warnf("[Webhook] Assignment errors for submission %d: %v", sub.ID, mr.Errors)
	}

	if err := c.submissions.MarkProcessed(ctx, sub.ID, c.now()); err != nil {
		return SubmissionResult{}, fmt.Errorf("failed to mark submission %d processed: %w", sub.ID, err)
	}

	verb := "Updated"
	if created {
		verb = "Created"
	}
	log.Infof("[Webhook] %s submission %d for %s: %d assignment(s) created, %d skipped", verb, sub.ID, sub.ExternalID, mr.Created, mr.Skipped)

	return SubmissionResult{
		SubmissionID: sub.ID,
		ExternalID:   sub.ExternalID,
		Created:      created,
		Assignments:  mr,
	}, nil
}

func (c *Coordinator) auditUpsert(ctx context.Context, sub *models.Submission, created bool, previous *models.Submission) {
	entry := audit.Entry{
		Action:     audit.ActionSubmissionCreated,
		Resource:   audit.ResourceSubmission,
		ResourceID: strconv.FormatUint(uint64(sub.ID), 10),
		NewValue:   snapshotOf(sub),
	}
	if !created {
		entry.Action = audit.ActionSubmissionUpdated
		if previous != nil {
			entry.OldValue = snapshotOf(previous)
		}
	}
	c.audit.Record(ctx, entry)
}

type submissionSnapshot struct {
	ExternalID   string `json:"external_id"`
	Email        string `json:"email"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Phone        string `json:"phone"`
	LocationType string `json:"location_type"`
	City         string `json:"city"`
	Country      string `json:"country"`
	Church       string `json:"church"`
}

func snapshotOf(s *models.Submission) submissionSnapshot {
	return submissionSnapshot{
		ExternalID:   s.ExternalID,
		Email:        s.Email,
		FirstName:    s.FirstName,
		LastName:     s.LastName,
		Phone:        s.Phone,
		LocationType: s.LocationType,
		City:         s.City,
		Country:      s.Country,
		Church:       s.Church,
	}
}

func answerRows(in []normalize.Answer) []models.SubmissionAnswer {
	out := make([]models.SubmissionAnswer, 0, len(in))
	for _, a := range in {
		out = append(out, models.SubmissionAnswer{
			QuestionID:   a.QuestionID,
			QuestionName: a.QuestionName,
			QuestionType: a.QuestionType,
			DisplayValue: a.DisplayValue,
			RawValue:     datatypes.JSON(a.RawValue),
		})
	}
	return out
}

func outcomeOf(result *IngestResult, err error) string {
	switch {
	case err == nil && result != nil && result.Status == StatusAlreadyProcessed:
		return metrics.OutcomeAlreadyProcessed
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, ErrRequestInvalid):
		return metrics.OutcomeInvalid
	case errors.Is(err, ErrUnauthorized):
		return metrics.OutcomeUnauthorized
	case errors.Is(err, ErrSecretNotConfigured):
		return metrics.OutcomeMisconfigured
	default:
		return metrics.OutcomeFailed
	}
}

// Package audit records who changed what. Writes are best-effort: a failing
// audit store never fails the operation being audited.
package audit

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/datatypes"

	"github.com/ManuelReschke/FormFox/app/models"
	"github.com/ManuelReschke/FormFox/app/repository"
)

const (
	ActionSubmissionCreated   = "submission.created"
	ActionSubmissionUpdated   = "submission.updated"
	ActionSubmissionReprocess = "submission.reprocess"

	ResourceSubmission = "submission"
)

// Entry is one audit record. OldValue and NewValue are marshalled to JSON.
type Entry struct {
	UserID     *string
	Action     string
	Resource   string
	ResourceID string
	OldValue   any
	NewValue   any
}

type actorKey struct{}

// WithActor attaches the acting user to ctx for entries recorded under it.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the actor set by WithActor, or nil for system actions.
func ActorFrom(ctx context.Context) *string {
	actor, ok := ctx.Value(actorKey{}).(string)
	if !ok || actor == "" {
		return nil
	}
	return &actor
}

// Sink receives audit entries.
type Sink interface {
	Record(ctx context.Context, entry Entry)
}

// RepositorySink stores entries through the audit log repository.
type RepositorySink struct {
	repo repository.AuditLogRepository
}

func NewRepositorySink(repo repository.AuditLogRepository) *RepositorySink {
	return &RepositorySink{repo: repo}
}

// Record persists the entry and logs on failure.
func (s *RepositorySink) Record(ctx context.Context, entry Entry) {
	row := &models.AuditLog{
		UserID:     entry.UserID,
		Action:     entry.Action,
		Resource:   entry.Resource,
		ResourceID: entry.ResourceID,
		OldValue:   toJSON(entry.OldValue),
		NewValue:   toJSON(entry.NewValue),
	}
	if err := s.repo.Create(ctx, row); err != nil {
		log.Warnf("[Audit] Failed to record %s for %s %s: %v", entry.Action, entry.Resource, entry.ResourceID, err)
	}
}

func toJSON(v any) datatypes.JSON {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		log.Warnf("[Audit] Failed to encode value: %v", err)
		return nil
	}
	return datatypes.JSON(b)
}

// NoopSink drops every entry.
type NoopSink struct{}

func (NoopSink) Record(context.Context, Entry) {}

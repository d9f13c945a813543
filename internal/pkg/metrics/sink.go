// Package metrics records ingestion and assignment metrics.
package metrics

import "time"

// Sink defines the interface for recording metrics.
// Methods are fire-and-forget and never return errors.
type Sink interface {
	// Webhook ingestion
	WebhookReceived(eventType string)
	WebhookCompleted(outcome string, duration time.Duration)

	// Assignment materialization
	AssignmentsMaterialized(created, skipped, errored int)

	// Reprocessing
	SubmissionReprocessed(success bool)
}

// Outcome constants for WebhookCompleted.
const (
	OutcomeSuccess          = "success"
	OutcomeAlreadyProcessed = "already_processed"
	OutcomeInvalid          = "invalid"
	OutcomeUnauthorized     = "unauthorized"
	OutcomeMisconfigured    = "misconfigured"
	OutcomeFailed           = "failed"
)

package metrics

import "time"

// NoopSink is used when metrics are disabled and in tests.
type NoopSink struct{}

// NewNoopSink returns a no-op metrics sink.
func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

func (n *NoopSink) WebhookReceived(eventType string)                        {}
func (n *NoopSink) WebhookCompleted(outcome string, duration time.Duration) {}
func (n *NoopSink) AssignmentsMaterialized(created, skipped, errored int)   {}
func (n *NoopSink) SubmissionReprocessed(success bool)                      {}

package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink implements Sink using the Prometheus client library.
// Registration errors are logged, never propagated.
type PrometheusSink struct {
	webhooksReceived *prometheus.CounterVec
	webhookOutcomes  *prometheus.CounterVec
	webhookDuration  prometheus.Histogram
	assignmentsTotal *prometheus.CounterVec
	reprocessedTotal *prometheus.CounterVec
}

// NewPrometheusSink creates the sink and registers its collectors on reg.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{}

	s.webhooksReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "formfox_webhooks_received_total",
		Help: "Total number of webhook deliveries received, by event type.",
	}, []string{"event_type"})
	s.webhookOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "formfox_webhook_outcomes_total",
		Help: "Total number of webhook deliveries by final outcome.",
	}, []string{"outcome"})
	s.webhookDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "formfox_webhook_duration_seconds",
		Help:    "Time spent ingesting one webhook delivery in seconds.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	})
	s.assignmentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "formfox_assignments_total",
		Help: "Assignment candidates by materialization result.",
	}, []string{"result"})
	s.reprocessedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "formfox_submissions_reprocessed_total",
		Help: "Total number of reprocessed submissions.",
	}, []string{"success"})

	s.register(reg, s.webhooksReceived, "formfox_webhooks_received_total")
	s.register(reg, s.webhookOutcomes, "formfox_webhook_outcomes_total")
	s.register(reg, s.webhookDuration, "formfox_webhook_duration_seconds")
	s.register(reg, s.assignmentsTotal, "formfox_assignments_total")
	s.register(reg, s.reprocessedTotal, "formfox_submissions_reprocessed_total")
	return s
}

func (s *PrometheusSink) register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if err := reg.Register(c); err != nil {
		log.Warnf("[Metrics] Failed to register %s: %v", name, err)
	}
}

func (s *PrometheusSink) WebhookReceived(eventType string) {
	if eventType == "" {
		eventType = "unknown"
	}
	s.webhooksReceived.WithLabelValues(eventType).Inc()
}

func (s *PrometheusSink) WebhookCompleted(outcome string, duration time.Duration) {
	s.webhookOutcomes.WithLabelValues(outcome).Inc()
	s.webhookDuration.Observe(duration.Seconds())
}

func (s *PrometheusSink) AssignmentsMaterialized(created, skipped, errored int) {
	s.assignmentsTotal.WithLabelValues("created").Add(float64(created))
	s.assignmentsTotal.WithLabelValues("skipped").Add(float64(skipped))
	s.assignmentsTotal.WithLabelValues("error").Add(float64(errored))
}

func (s *PrometheusSink) SubmissionReprocessed(success bool) {
	s.reprocessedTotal.WithLabelValues(strconv.FormatBool(success)).Inc()
}

package router

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ManuelReschke/FormFox/app/controllers"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// Controllers groups the handlers mounted under /api/v1.
type Controllers struct {
	Webhook      *controllers.WebhookController
	WebhookEvent *controllers.WebhookEventController
	Submission   *controllers.SubmissionController
	Job          *controllers.JobController
}

// HealthCheck probes one dependency for /health.
type HealthCheck func(ctx context.Context) error

// Options configures the routers.
type Options struct {
	Controllers Controllers
	// HealthChecks are run by /health, keyed by dependency name.
	HealthChecks map[string]HealthCheck

	AdminAPIKey string
	// WebhookLimiter guards the webhook group; nil mounts none.
	WebhookLimiter fiber.Handler

	// Gatherer backs /metrics; nil uses the default Prometheus registry.
	Gatherer        prometheus.Gatherer
	MonitorUser     string
	MonitorPassword string
}

func InstallRouter(app *fiber.App, opts Options) {
	setup(app, NewHttpRouter(opts), NewApiRouter(opts))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}

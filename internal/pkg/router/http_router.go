package router

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HttpRouter mounts the operational endpoints: health, metrics and monitor.
type HttpRouter struct {
	opts Options
}

func NewHttpRouter(opts Options) *HttpRouter {
	return &HttpRouter{opts: opts}
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	app.Get("/health", h.handleHealth)

	gatherer := h.opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	if h.opts.MonitorPassword == "" {
		log.Warn("[Router] MONITOR_PASSWORD not set, /monitor is disabled")
		return
	}
	app.Get("/monitor", basicauth.New(basicauth.Config{
		Users: map[string]string{
			h.opts.MonitorUser: h.opts.MonitorPassword,
		},
	}), monitor.New(monitor.Config{Title: "FormFox Monitor"}))
}

const healthTimeout = 2 * time.Second

func (h HttpRouter) handleHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
	defer cancel()

	healthy := true
	checks := make(fiber.Map, len(h.opts.HealthChecks))
	for name, check := range h.opts.HealthChecks {
		if err := check(ctx); err != nil {
			log.Warnf("[Health] %s: %v", name, err)
			checks[name] = err.Error()
			healthy = false
			continue
		}
		checks[name] = "ok"
	}

	if !healthy {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "checks": checks})
	}
	return c.JSON(fiber.Map{"status": "ok", "checks": checks})
}

package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/FormFox/internal/pkg/middleware"
)

type ApiRouter struct {
	opts Options
}

func NewApiRouter(opts Options) *ApiRouter {
	return &ApiRouter{opts: opts}
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api")
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1")
	ctrl := h.opts.Controllers

	webhooks := v1.Group("/webhooks")
	if h.opts.WebhookLimiter != nil {
		webhooks.Use(h.opts.WebhookLimiter)
	}
	webhooks.Post("/fillout", ctrl.Webhook.HandleFillout)

	admin := v1.Group("/admin", middleware.AdminAPIKey(h.opts.AdminAPIKey))
	admin.Get("/webhooks/events", ctrl.WebhookEvent.HandleList)
	admin.Post("/submissions/reprocess", ctrl.Submission.HandleReprocessBatch)
	admin.Post("/submissions/:id/reprocess", ctrl.Submission.HandleReprocessOne)
	admin.Get("/submissions/:id/assignments", ctrl.Submission.HandleListAssignments)
	admin.Get("/jobs", ctrl.Job.HandleStats)
	admin.Get("/jobs/:id", ctrl.Job.HandleGetJob)
}

package controllers

import (
	"math"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/FormFox/app/models"
	"github.com/ManuelReschke/FormFox/app/repository"
)

// WebhookEventController serves the delivery log to operators.
type WebhookEventController struct {
	events repository.WebhookEventRepository
}

func NewWebhookEventController(events repository.WebhookEventRepository) *WebhookEventController {
	return &WebhookEventController{events: events}
}

// HandleList handles GET /api/v1/admin/webhooks/events.
// Query: page, limit, status, from, to.
func (ec *WebhookEventController) HandleList(c *fiber.Ctx) error {
	page, limit := parsePagination(c)

	status := c.Query("status")
	switch status {
	case "", models.WebhookEventStatusProcessing, models.WebhookEventStatusCompleted, models.WebhookEventStatusFailed:
	default:
		return badRequest(c, "status must be processing, completed or failed")
	}

	from, err := parseDateQuery(c, "from", false)
	if err != nil {
		return badRequest(c, err.Error())
	}
	to, err := parseDateQuery(c, "to", true)
	if err != nil {
		return badRequest(c, err.Error())
	}

	filter := repository.WebhookEventFilter{
		Status: status,
		From:   from,
		To:     to,
		Offset: (page - 1) * limit,
		Limit:  limit,
	}

	events, total, err := ec.events.List(c.UserContext(), filter)
	if err != nil {
		log.Errorf("[Admin] Failed to list webhook events: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}
	stats, err := ec.events.Stats(c.UserContext(), filter)
	if err != nil {
		log.Errorf("[Admin] Failed to compute webhook event stats: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	successRate := 0.0
	if stats.Total > 0 {
		successRate = math.Round(float64(stats.Completed)/float64(stats.Total)*1000) / 10
	}

	return c.JSON(fiber.Map{
		"events": events,
		"metrics": fiber.Map{
			"total":          stats.Total,
			"success_rate":   successRate,
			"avg_latency_ms": math.Round(stats.AvgLatencyMs),
		},
		"pagination": fiber.Map{
			"page":  page,
			"limit": limit,
			"total": total,
			"pages": int(math.Ceil(float64(total) / float64(limit))),
		},
	})
}

package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/FormFox/internal/pkg/webhook"
)

const (
	HeaderWebhookSignature = "X-Webhook-Signature"
	HeaderWebhookID        = "X-Webhook-Id"
	HeaderWebhookEvent     = "X-Webhook-Event"
)

// WebhookIngester is the part of webhook.Coordinator the controller drives.
type WebhookIngester interface {
	Ingest(ctx context.Context, d webhook.Delivery) (*webhook.IngestResult, error)
}

// WebhookController receives Fillout deliveries.
type WebhookController struct {
	ingester WebhookIngester
	now      func() time.Time
}

func NewWebhookController(ingester WebhookIngester) *WebhookController {
	return &WebhookController{ingester: ingester, now: time.Now}
}

// HandleFillout handles POST /api/v1/webhooks/fillout.
func (wc *WebhookController) HandleFillout(c *fiber.Ctx) error {
	delivery := webhook.Delivery{
		Signature: c.Get(HeaderWebhookSignature),
		EventID:   c.Get(HeaderWebhookID),
		EventType: c.Get(HeaderWebhookEvent),
		// fasthttp reuses the body buffer after the handler returns
		Body:       append([]byte(nil), c.Body()...),
		ReceivedAt: wc.now().UTC(),
	}

	result, err := wc.ingester.Ingest(c.UserContext(), delivery)
	if err != nil {
		return wc.handleError(c, delivery.EventID, err)
	}

	if result.Status == webhook.StatusAlreadyProcessed {
		return c.JSON(fiber.Map{"status": result.Status})
	}
	return c.JSON(fiber.Map{
		"status":      result.Status,
		"submissions": result.Submissions,
	})
}

func (wc *WebhookController) handleError(c *fiber.Ctx, eventID string, err error) error {
	var persistErr *webhook.PersistenceError
	switch {
	case errors.Is(err, webhook.ErrRequestInvalid):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": err.Error()})
	case errors.Is(err, webhook.ErrUnauthorized):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	case errors.Is(err, webhook.ErrSecretNotConfigured):
		log.Error("[Webhook] FILLOUT_WEBHOOK_SECRET is not configured")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_not_configured"})
	case errors.As(err, &persistErr):
		log.Errorf("[Webhook] Event %s failed during %s: %v", eventID, persistErr.Op, persistErr.Err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "processing_failed"})
	default:
		log.Errorf("[Webhook] Event %s failed: %v", eventID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}
}

package handlers

import (
	"crypto/subtle"
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"github.com/nicopel-ti/helpdesk/internal/service"
	apperrors "github.com/nicopel-ti/helpdesk/pkg/util/errorutil"
)

// WebhookSecretHeader carries the shared secret configured in GLPI.
const WebhookSecretHeader = "X-Webhook-Secret"

// WebhookHandler receives GLPI deliveries.
type WebhookHandler struct {
	sync   *service.SyncService
	secret string
}

// NewWebhookHandler constructs handler. With an empty secret every delivery
// is refused.
func NewWebhookHandler(sync *service.SyncService, secret string) *WebhookHandler {
	return &WebhookHandler{sync: sync, secret: secret}
}

// Receive POST /api/integration/glpi-webhook.
func (h *WebhookHandler) Receive(c *fiber.Ctx) error {
	provided := c.Get(WebhookSecretHeader)
	if h.secret == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(h.secret)) != 1 {
		return apperrors.NewForbidden("invalid webhook secret")
	}

	var payload service.WebhookPayload
	// GLPI does not always label the body as JSON.
	if err := json.Unmarshal(c.Body(), &payload); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	outcome, err := h.sync.HandleWebhook(c.UserContext(), payload)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": outcome})
}

package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/modules/reconcile"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/processor"
)

// Webhook bodies are bounded so a hostile sender cannot buffer us to death.
const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	Logger *slog.Logger
	Secret string
	Svc    *reconcile.WebhookService
}

func NewWebhookHandler(logger *slog.Logger, secret string, svc *reconcile.WebhookService) *WebhookHandler {
	return &WebhookHandler{Logger: logger, Secret: secret, Svc: svc}
}

// POST /webhooks/processor
// The raw body is verified against the signature header before parsing; a bad
// signature is a hard 400 with no side effects. Apply failures return 500 so
// the processor redelivers.
func (h *WebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody+1))
	if err != nil || len(body) > maxWebhookBody {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid body"})
		return
	}

	sig := c.GetHeader(processor.SignatureHeader)
	if err := processor.VerifySignature([]byte(h.Secret), sig, body, time.Now(), processor.DefaultSignatureTolerance); err != nil {
		h.Logger.Warn("webhook signature rejected", "err", err, "client_ip", c.ClientIP())
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid signature"})
		return
	}

	ev, err := processor.ParseEvent(body)
	if err != nil {
		if errors.Is(err, processor.ErrMalformedEvent) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "malformed event"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false})
		return
	}

	if err := h.Svc.Handle(c.Request.Context(), ev, body); err != nil {
		h.Logger.Error("webhook apply failed", "event_id", ev.ID, "type", ev.Type, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "event_id": ev.ID})
}

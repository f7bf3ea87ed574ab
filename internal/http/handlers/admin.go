package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/http/middleware"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/modules/payments"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/modules/payouts"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/modules/reconcile"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/shared/apperr"
)

// AdminHandler is the token-gated operational surface: the reconciliation
// report, the intent sweep, payout retries and event replays.
type AdminHandler struct {
	Intents  *payments.IntentService
	Payouts  *payouts.Service
	Webhooks *reconcile.WebhookService
}

func NewAdminHandler(intents *payments.IntentService, p *payouts.Service, w *reconcile.WebhookService) *AdminHandler {
	return &AdminHandler{Intents: intents, Payouts: p, Webhooks: w}
}

// GET /admin/orphaned-captures
// Succeeded intents with no booking: captured customer money with no internal
// record. Anything on this list needs a human.
func (h *AdminHandler) OrphanedCaptures(c *gin.Context) {
	olderThan := 10 * time.Minute
	if v := c.Query("older_than"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			middleware.Fail(c, apperr.InvalidErr("older_than must be a positive duration.", nil))
			return
		}
		olderThan = d
	}

	rows, err := h.Intents.ListOrphanedCaptures(c.Request.Context(), olderThan)
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	items := make([]gin.H, 0, len(rows))
	for _, p := range rows {
		item := gin.H{
			"intent_id":    p.ID,
			"customer_id":  p.CustomerID,
			"provider_id":  p.ProviderID,
			"total_amount": p.TotalCents,
			"currency":     p.Currency,
			"captured_at":  p.UpdatedAt,
		}
		if p.ProcessorRef != nil {
			item["processor_ref"] = *p.ProcessorRef
		}
		items = append(items, item)
	}
	c.JSON(http.StatusOK, gin.H{"orphaned_captures": items, "count": len(items)})
}

// POST /admin/intents/sweep
func (h *AdminHandler) SweepIntents(c *gin.Context) {
	swept, err := h.Intents.ExpireAbandoned(c.Request.Context(), time.Now())
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"swept": swept})
}

type retryPayoutRequest struct {
	ProviderAccountRef string `json:"provider_account_ref" binding:"required"`
}

// POST /admin/payouts/:bookingID/retry
func (h *AdminHandler) RetryPayout(c *gin.Context) {
	var req retryPayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("provider_account_ref is required.", nil))
		return
	}

	res, err := h.Payouts.RetryFailed(c.Request.Context(), c.Param("bookingID"), req.ProviderAccountRef)
	if err != nil {
		switch {
		case errors.Is(err, payouts.ErrNotFound):
			middleware.Fail(c, apperr.NotFoundErr("No payout exists for this booking."))
		case errors.Is(err, payouts.ErrNotRetryable):
			middleware.Fail(c, apperr.ConflictErr("Only failed payouts can be retried."))
		case errors.Is(err, payouts.ErrTransferFailed):
			middleware.Fail(c, apperr.UnavailableErr("The processor refused the transfer again."))
		default:
			middleware.Fail(c, apperr.Wrap(err))
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"payout": payoutJSON(res.Record)})
}

// POST /admin/events/:eventID/replay
func (h *AdminHandler) ReplayEvent(c *gin.Context) {
	err := h.Webhooks.Replay(c.Request.Context(), c.Param("eventID"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			middleware.Fail(c, apperr.NotFoundErr("Event not found."))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"replayed": c.Param("eventID")})
}

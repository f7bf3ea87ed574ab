package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/http/middleware"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/http/validation"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/modules/payments"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/shared/apperr"
)

type PaymentsHandler struct {
	Intents *payments.IntentService
	Capture *payments.CaptureService
}

func NewPaymentsHandler(intents *payments.IntentService, capture *payments.CaptureService) *PaymentsHandler {
	return &PaymentsHandler{Intents: intents, Capture: capture}
}

type createIntentRequest struct {
	ProviderID     string `json:"provider_id" binding:"required,uuid"`
	ServiceID      string `json:"service_id" binding:"required"`
	BaseAmount     int64  `json:"base_amount" binding:"required,gt=0"`
	Currency       string `json:"currency" binding:"omitempty,len=3"`
	IdempotencyKey string `json:"idempotency_key" binding:"required,max=64"`
}

// POST /api/v1/payments/intents
func (h *PaymentsHandler) CreateIntent(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)

	var req createIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Request body is invalid.", validation.FromBindError(err, &req)))
		return
	}

	res, err := h.Intents.CreateIntent(c.Request.Context(), payments.CreateIntentInput{
		CustomerID:     u.ID,
		ProviderID:     req.ProviderID,
		ServiceID:      req.ServiceID,
		BaseCents:      req.BaseAmount,
		Currency:       req.Currency,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		middleware.Fail(c, mapPaymentErr(err))
		return
	}

	status := http.StatusCreated
	if res.Idempotent {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{
		"intent_id":     res.IntentID,
		"client_secret": res.ClientSecret,
		"status":        res.Status,
		"total_amount":  res.TotalCents,
	})
}

type captureRequest struct {
	ScheduledStart time.Time `json:"scheduled_start" binding:"required"`
	ScheduledEnd   time.Time `json:"scheduled_end" binding:"required"`
}

// POST /api/v1/payments/intents/:id/capture
func (h *PaymentsHandler) CaptureIntent(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)
	intentID := c.Param("id")

	var req captureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Request body is invalid.", validation.FromBindError(err, &req)))
		return
	}

	b, err := h.Capture.CaptureAndCreateBooking(c.Request.Context(), intentID, u.ID, payments.BookingDraft{
		ScheduledStart: req.ScheduledStart,
		ScheduledEnd:   req.ScheduledEnd,
	})
	if err != nil {
		// The charge went through but the booking record is pending repair.
		// Acknowledge the money and tell the client to wait, never to retry
		// the payment.
		if errors.Is(err, payments.ErrOrphanedCapture) {
			c.JSON(http.StatusAccepted, gin.H{
				"status":  "processing",
				"message": "Your payment was received. We are confirming your booking.",
			})
			return
		}
		middleware.Fail(c, mapPaymentErr(err))
		return
	}

	c.JSON(http.StatusCreated, gin.H{"booking": bookingJSON(b)})
}

func mapPaymentErr(err error) error {
	switch {
	case errors.Is(err, payments.ErrIntentNotFound):
		return apperr.NotFoundErr("Payment intent not found.")
	case errors.Is(err, payments.ErrIntentNotCapturable):
		return apperr.ConflictErr("This payment cannot be completed in its current state.")
	case errors.Is(err, payments.ErrProviderNotBookable):
		return apperr.ConflictErr("This provider is not accepting bookings right now.")
	case errors.Is(err, payments.ErrInvalidAmount), errors.Is(err, payments.ErrInvalidInput):
		return apperr.InvalidErr("Request body is invalid.", nil)
	case errors.Is(err, payments.ErrPaymentSetupFailed):
		return apperr.UnavailableErr("Payment could not be set up. Please try again.")
	case errors.Is(err, payments.ErrCaptureFailed):
		return apperr.ConflictErr("Your payment was declined. No booking was created.")
	default:
		return apperr.Wrap(err)
	}
}

package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/http/middleware"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/http/validation"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/modules/bookings"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/modules/payouts"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/shared/apperr"
)

type BookingsHandler struct {
	Svc *bookings.Service
}

func NewBookingsHandler(svc *bookings.Service) *BookingsHandler {
	return &BookingsHandler{Svc: svc}
}

// GET /api/v1/bookings/:id
func (h *BookingsHandler) Get(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)

	b, err := h.Svc.Get(c.Request.Context(), c.Param("id"), u.ID)
	if err != nil {
		middleware.Fail(c, mapBookingErr(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": bookingJSON(b)})
}

// POST /api/v1/bookings/:id/accept
func (h *BookingsHandler) Accept(c *gin.Context) {
	h.lifecycle(c, h.Svc.Accept)
}

// POST /api/v1/bookings/:id/decline
func (h *BookingsHandler) Decline(c *gin.Context) {
	h.lifecycle(c, h.Svc.Decline)
}

// POST /api/v1/bookings/:id/start
func (h *BookingsHandler) Start(c *gin.Context) {
	h.lifecycle(c, h.Svc.Start)
}

type cancelRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=250"`
}

// POST /api/v1/bookings/:id/cancel
func (h *BookingsHandler) Cancel(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)

	var req cancelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.Fail(c, apperr.InvalidErr("Request body is invalid.", validation.FromBindError(err, &req)))
			return
		}
	}

	b, err := h.Svc.Cancel(c.Request.Context(), c.Param("id"), u.ID, req.Reason)
	if err != nil {
		middleware.Fail(c, mapBookingErr(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": bookingJSON(b)})
}

// POST /api/v1/bookings/:id/complete
func (h *BookingsHandler) Complete(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)

	res, err := h.Svc.Complete(c.Request.Context(), c.Param("id"), u.ID)
	if err != nil {
		middleware.Fail(c, mapBookingErr(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"booking": bookingJSON(res.Booking),
		"payout":  payoutJSON(res.Payout),
	})
}

func (h *BookingsHandler) lifecycle(c *gin.Context, action func(ctx context.Context, bookingID, actorID string) (bookings.Booking, error)) {
	u, _ := middleware.CurrentUser(c)

	b, err := action(c.Request.Context(), c.Param("id"), u.ID)
	if err != nil {
		middleware.Fail(c, mapBookingErr(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": bookingJSON(b)})
}

func mapBookingErr(err error) error {
	switch {
	case errors.Is(err, bookings.ErrNotFound):
		return apperr.NotFoundErr("Booking not found.")
	case errors.Is(err, bookings.ErrForbidden):
		return apperr.ForbiddenErr("You do not have access to this booking.")
	case errors.Is(err, bookings.ErrInvalidStateTransition):
		return apperr.ConflictErr("This booking cannot change to that state.")
	case errors.Is(err, payouts.ErrTransferFailed):
		return apperr.UnavailableErr("The booking is completed but the payout could not be started. It will be retried.")
	case errors.Is(err, payouts.ErrBelowMinimum):
		return apperr.ConflictErr("The amount is below the payout minimum.")
	default:
		return apperr.Wrap(err)
	}
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/http/middleware"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/modules/payouts"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/shared/apperr"
)

type PayoutsHandler struct {
	Svc *payouts.Service
}

func NewPayoutsHandler(svc *payouts.Service) *PayoutsHandler {
	return &PayoutsHandler{Svc: svc}
}

// GET /api/v1/payouts
func (h *PayoutsHandler) List(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	recs, err := h.Svc.ListForProvider(c.Request.Context(), u.ID, limit)
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	items := make([]gin.H, 0, len(recs))
	for _, r := range recs {
		items = append(items, payoutJSON(r))
	}
	c.JSON(http.StatusOK, gin.H{"payouts": items})
}

// GET /api/v1/bookings/:id/payout
func (h *PayoutsHandler) ByBooking(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)

	rec, err := h.Svc.ByBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		if err == payouts.ErrNotFound {
			middleware.Fail(c, apperr.NotFoundErr("No payout exists for this booking."))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	if rec.ProviderID != u.ID {
		middleware.Fail(c, apperr.ForbiddenErr("You do not have access to this payout."))
		return
	}

	c.JSON(http.StatusOK, gin.H{"payout": payoutJSON(rec)})
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/http/middleware"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/modules/accounts"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/shared/apperr"
)

type AccountHandler struct {
	Svc *accounts.Service
}

func NewAccountHandler(svc *accounts.Service) *AccountHandler {
	return &AccountHandler{Svc: svc}
}

// GET /api/v1/account/status
func (h *AccountHandler) Status(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)

	acc, err := h.Svc.Get(c.Request.Context(), u.ID)
	if err != nil {
		middleware.Fail(c, mapAccountErr(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"account_status":      acc.AccountStatus,
		"connected":           acc.StripeAccountID != nil,
		"charges_enabled":     acc.StripeChargesEnabled,
		"details_submitted":   acc.StripeDetailsSubmitted,
		"can_accept_bookings": acc.CanAcceptBookings(),
	})
}

// POST /api/v1/account/onboarding-link
func (h *AccountHandler) OnboardingLink(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)

	url, err := h.Svc.OnboardingLink(c.Request.Context(), u.ID)
	if err != nil {
		middleware.Fail(c, mapAccountErr(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func mapAccountErr(err error) error {
	switch {
	case errors.Is(err, accounts.ErrNotFound):
		return apperr.NotFoundErr("Provider account not found.")
	case errors.Is(err, accounts.ErrNotOnboarded):
		return apperr.ConflictErr("No connected payout account yet.")
	default:
		return apperr.Wrap(err)
	}
}

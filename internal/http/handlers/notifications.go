package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/http/middleware"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/modules/notifications"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/shared/apperr"
)

type NotificationsHandler struct {
	DB *gorm.DB
}

func NewNotificationsHandler(db *gorm.DB) *NotificationsHandler {
	return &NotificationsHandler{DB: db}
}

// GET /api/v1/notifications
func (h *NotificationsHandler) List(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	rows, err := notifications.ListForUser(c.Request.Context(), h.DB, u.ID, limit)
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	items := make([]gin.H, 0, len(rows))
	for _, n := range rows {
		items = append(items, notificationJSON(n))
	}
	c.JSON(http.StatusOK, gin.H{"notifications": items})
}

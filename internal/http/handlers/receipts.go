package handlers

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/http/middleware"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/modules/bookings"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/receipts"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/shared/apperr"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/storage"
)

type ReceiptsHandler struct {
	DB        *gorm.DB
	Bookings  *bookings.Service
	Generator *receipts.Generator
	Store     storage.Store
}

func NewReceiptsHandler(db *gorm.DB, b *bookings.Service, g *receipts.Generator, store storage.Store) *ReceiptsHandler {
	return &ReceiptsHandler{DB: db, Bookings: b, Generator: g, Store: store}
}

// POST /api/v1/bookings/:id/receipt
// Generates the receipt once and stores it; later calls return the stored URL.
func (h *ReceiptsHandler) Generate(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)

	b, err := h.Bookings.Get(c.Request.Context(), c.Param("id"), u.ID)
	if err != nil {
		middleware.Fail(c, mapBookingErr(err))
		return
	}
	if b.PaymentStatus != bookings.PaymentPaid {
		middleware.Fail(c, apperr.ConflictErr("No receipt exists for an unpaid booking."))
		return
	}
	if b.ReceiptURL != nil {
		c.JSON(http.StatusOK, gin.H{"receipt_url": *b.ReceiptURL})
		return
	}

	pdf, err := h.Generator.BookingReceipt(b)
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	put, err := h.Store.Put(c.Request.Context(), storage.Document{
		Name:        "receipt_" + b.ID + ".pdf",
		ContentType: "application/pdf",
		Body:        bytes.NewReader(pdf),
	})
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	// First writer wins; a concurrent generate leaves one stored key.
	res := h.DB.WithContext(c.Request.Context()).Model(&bookings.Booking{}).
		Where("id = ? AND receipt_key IS NULL", b.ID).
		Updates(map[string]any{
			"receipt_key": put.Key,
			"receipt_url": put.URL,
			"updated_at":  time.Now(),
		})
	if res.Error != nil {
		middleware.Fail(c, apperr.Wrap(res.Error))
		return
	}
	if res.RowsAffected == 0 {
		_ = h.Store.Delete(c.Request.Context(), put.Key)
		var cur bookings.Booking
		if err := h.DB.WithContext(c.Request.Context()).First(&cur, "id = ?", b.ID).Error; err == nil && cur.ReceiptURL != nil {
			c.JSON(http.StatusOK, gin.H{"receipt_url": *cur.ReceiptURL})
			return
		}
	}

	c.JSON(http.StatusCreated, gin.H{"receipt_url": put.URL})
}

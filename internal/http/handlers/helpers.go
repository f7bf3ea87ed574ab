package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/modules/bookings"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/modules/notifications"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/modules/payouts"
)

// Response shaping lives here so every endpoint renders the same row the same
// way. Amounts stay integer cents on the wire.

func bookingJSON(b bookings.Booking) gin.H {
	out := gin.H{
		"id":              b.ID,
		"customer_id":     b.CustomerID,
		"provider_id":     b.ProviderID,
		"service_id":      b.ServiceID,
		"scheduled_start": b.ScheduledStart,
		"scheduled_end":   b.ScheduledEnd,
		"status":          b.Status,
		"payment_status":  b.PaymentStatus,
		"base_amount":     b.BaseCents,
		"fee_amount":      b.FeeCents,
		"total_amount":    b.TotalCents,
		"currency":        b.Currency,
		"created_at":      b.CreatedAt,
	}
	if b.CancelReason != nil {
		out["cancel_reason"] = *b.CancelReason
	}
	if b.CompletedAt != nil {
		out["completed_at"] = *b.CompletedAt
	}
	if b.ReceiptURL != nil {
		out["receipt_url"] = *b.ReceiptURL
	}
	return out
}

func payoutJSON(p payouts.PayoutRecord) gin.H {
	out := gin.H{
		"id":                   p.ID,
		"booking_id":           p.BookingID,
		"gross_amount":         p.GrossCents,
		"fee_amount":           p.FeeCents,
		"net_amount":           p.NetCents,
		"currency":             p.Currency,
		"status":               p.Status,
		"attempts":             p.Attempts,
		"expected_payout_date": p.ExpectedPayoutDate.Format("2006-01-02"),
		"created_at":           p.CreatedAt,
	}
	if p.ActualPayoutDate != nil {
		out["actual_payout_date"] = p.ActualPayoutDate.Format("2006-01-02")
	}
	if p.FailureReason != nil {
		out["failure_reason"] = *p.FailureReason
	}
	return out
}

func notificationJSON(n notifications.Notification) gin.H {
	out := gin.H{
		"id":         n.ID,
		"type":       n.Type,
		"title":      n.Title,
		"body":       n.Body,
		"ref_type":   n.RefType,
		"ref_id":     n.RefID,
		"created_at": n.CreatedAt.Format(time.RFC3339),
	}
	if n.ReadAt != nil {
		out["read_at"] = n.ReadAt.Format(time.RFC3339)
	}
	return out
}

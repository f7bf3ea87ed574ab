package receipts

import (
	"bytes"
	"testing"
	"time"

	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/modules/bookings"
)

func TestBookingReceiptRendersPDF(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	b := bookings.Booking{
		ID:             "3f1c9a44-0000-0000-0000-000000000000",
		CustomerID:     "cust-1",
		ProviderID:     "prov-1",
		ServiceID:      "svc-1",
		ScheduledStart: now.Add(48 * time.Hour),
		ScheduledEnd:   now.Add(49 * time.Hour),
		Status:         bookings.StatusConfirmed,
		PaymentStatus:  bookings.PaymentPaid,
		BaseCents:      10000,
		FeeCents:       1000,
		TotalCents:     11000,
		Currency:       "GBP",
		IntentRef:      "pi_1",
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	out, err := NewGenerator("Zova").BookingReceipt(b)
	if err != nil {
		t.Fatalf("BookingReceipt: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Fatalf("output is not a PDF")
	}
	if len(out) < 500 {
		t.Fatalf("suspiciously small PDF: %d bytes", len(out))
	}
}

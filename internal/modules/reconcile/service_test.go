package reconcile

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/modules/accounts"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/modules/bookings"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/modules/notifications"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/modules/payments"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/modules/payouts"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/modules/subscriptions"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/processor"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/shared/testdb"
	"gorm.io/gorm"
)

func newWebhookService(t *testing.T) (*WebhookService, *gorm.DB) {
	t.Helper()
	db := testdb.Open(t,
		&ProcessorEvent{},
		&accounts.ProviderAccount{},
		&payments.PaymentIntent{},
		&bookings.Booking{},
		&payouts.PayoutRecord{},
		&subscriptions.ProviderSubscription{},
		&notifications.Notification{},
	)
	return NewWebhookService(db), db
}

func envelope(t *testing.T, eventID, eventType string, object map[string]any) (processor.Event, []byte) {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"id":   eventID,
		"type": eventType,
		"data": map[string]any{"object": object},
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	ev, err := processor.ParseEvent(body)
	if err != nil {
		t.Fatalf("parse envelope: %v", err)
	}
	return ev, body
}

func seedPayout(t *testing.T, db *gorm.DB, status, transferRef string) payouts.PayoutRecord {
	t.Helper()
	now := time.Now()
	rec := payouts.PayoutRecord{
		ID:                 uuid.NewString(),
		ProviderID:         uuid.NewString(),
		BookingID:          uuid.NewString(),
		GrossCents:         10000,
		FeeCents:           1000,
		NetCents:           10000,
		Currency:           "GBP",
		Status:             status,
		Attempts:           1,
		ExpectedPayoutDate: now.Add(72 * time.Hour),
		TransferRef:        &transferRef,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := db.Create(&rec).Error; err != nil {
		t.Fatalf("seed payout: %v", err)
	}
	return rec
}

// Delivering the same payout.paid event twice must complete the payout once
// and write exactly one notification.
func TestPayoutPaidRedelivery(t *testing.T) {
	svc, db := newWebhookService(t)
	rec := seedPayout(t, db, payouts.StatusProcessing, "tr_100")

	arrival := time.Now().Add(24 * time.Hour).Unix()
	ev, body := envelope(t, "evt_1", processor.EvPayoutPaid, map[string]any{
		"id":           "tr_100",
		"amount":       10000,
		"currency":     "gbp",
		"status":       "paid",
		"arrival_date": arrival,
	})

	for i := 0; i < 2; i++ {
		if err := svc.Handle(context.Background(), ev, body); err != nil {
			t.Fatalf("delivery %d: %v", i+1, err)
		}
	}

	var got payouts.PayoutRecord
	if err := db.First(&got, "id = ?", rec.ID).Error; err != nil {
		t.Fatalf("load payout: %v", err)
	}
	if got.Status != payouts.StatusCompleted {
		t.Fatalf("status = %q, want completed", got.Status)
	}
	if got.ActualPayoutDate == nil || got.ActualPayoutDate.Unix() != arrival {
		t.Fatalf("actual payout date = %v, want arrival time", got.ActualPayoutDate)
	}

	var notes int64
	db.Model(&notifications.Notification{}).
		Where("user_id = ? AND type = ?", rec.ProviderID, notifications.TypePayoutCompleted).
		Count(&notes)
	if notes != 1 {
		t.Fatalf("completion notifications = %d, want exactly 1", notes)
	}

	var events int64
	db.Model(&ProcessorEvent{}).Where("event_id = ?", "evt_1").Count(&events)
	if events != 1 {
		t.Fatalf("event rows = %d, want 1", events)
	}
}

// A second event id carrying the same state change is absorbed by the status
// guard and the notification dedupe.
func TestPayoutPaidDistinctEventSameChange(t *testing.T) {
	svc, db := newWebhookService(t)
	rec := seedPayout(t, db, payouts.StatusProcessing, "tr_200")

	obj := map[string]any{"id": "tr_200", "status": "paid"}
	ev1, body1 := envelope(t, "evt_a", processor.EvPayoutPaid, obj)
	ev2, body2 := envelope(t, "evt_b", processor.EvPayoutPaid, obj)

	if err := svc.Handle(context.Background(), ev1, body1); err != nil {
		t.Fatalf("first event: %v", err)
	}
	if err := svc.Handle(context.Background(), ev2, body2); err != nil {
		t.Fatalf("second event: %v", err)
	}

	var notes int64
	db.Model(&notifications.Notification{}).
		Where("user_id = ? AND type = ?", rec.ProviderID, notifications.TypePayoutCompleted).
		Count(&notes)
	if notes != 1 {
		t.Fatalf("completion notifications = %d, want exactly 1", notes)
	}
}

func TestPayoutPaidUnknownTransferRetries(t *testing.T) {
	svc, _ := newWebhookService(t)

	ev, body := envelope(t, "evt_1", processor.EvPayoutPaid, map[string]any{
		"id": "tr_missing", "status": "paid",
	})
	if err := svc.Handle(context.Background(), ev, body); err == nil {
		t.Fatalf("expected an error so the processor redelivers")
	}
}

func TestPayoutFailedAfterCompletionIsIgnored(t *testing.T) {
	svc, db := newWebhookService(t)
	rec := seedPayout(t, db, payouts.StatusCompleted, "tr_300")

	ev, body := envelope(t, "evt_1", processor.EvPayoutFailed, map[string]any{
		"id": "tr_300", "status": "failed", "failure_reason": "account closed",
	})
	if err := svc.Handle(context.Background(), ev, body); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	var got payouts.PayoutRecord
	db.First(&got, "id = ?", rec.ID)
	if got.Status != payouts.StatusCompleted {
		t.Fatalf("status = %q, a stale failure must not undo completion", got.Status)
	}
}

func TestPayoutPaidAfterFailureKeepsFailure(t *testing.T) {
	svc, db := newWebhookService(t)
	rec := seedPayout(t, db, payouts.StatusFailed, "tr_350")

	ev, body := envelope(t, "evt_1", processor.EvPayoutPaid, map[string]any{
		"id": "tr_350", "status": "paid",
	})
	if err := svc.Handle(context.Background(), ev, body); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	var got payouts.PayoutRecord
	db.First(&got, "id = ?", rec.ID)
	if got.Status != payouts.StatusFailed {
		t.Fatalf("status = %q, a paid event must not undo a recorded failure", got.Status)
	}

	var notes int64
	db.Model(&notifications.Notification{}).
		Where("user_id = ? AND type = ?", rec.ProviderID, notifications.TypePayoutCompleted).
		Count(&notes)
	if notes != 0 {
		t.Fatalf("completed notifications = %d, the provider must not be told money arrived", notes)
	}
}

func TestPayoutFailedMarksFailure(t *testing.T) {
	svc, db := newWebhookService(t)
	rec := seedPayout(t, db, payouts.StatusProcessing, "tr_400")

	ev, body := envelope(t, "evt_1", processor.EvPayoutFailed, map[string]any{
		"id": "tr_400", "status": "failed", "failure_reason": "account closed",
	})
	if err := svc.Handle(context.Background(), ev, body); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	var got payouts.PayoutRecord
	db.First(&got, "id = ?", rec.ID)
	if got.Status != payouts.StatusFailed {
		t.Fatalf("status = %q, want failed", got.Status)
	}
	if got.FailureReason == nil || *got.FailureReason != "account closed" {
		t.Fatalf("failure reason = %v", got.FailureReason)
	}

	var notes int64
	db.Model(&notifications.Notification{}).
		Where("user_id = ? AND type = ?", rec.ProviderID, notifications.TypePayoutFailed).
		Count(&notes)
	if notes != 1 {
		t.Fatalf("failure notifications = %d, want 1", notes)
	}
}

func TestPaymentSucceededMarksBookingPaid(t *testing.T) {
	svc, db := newWebhookService(t)
	now := time.Now()

	bookingID := uuid.NewString()
	b := bookings.Booking{
		ID: bookingID, CustomerID: "cust-1", ProviderID: "prov-1", ServiceID: "svc-1",
		ScheduledStart: now.Add(24 * time.Hour), ScheduledEnd: now.Add(25 * time.Hour),
		Status: bookings.StatusPending, PaymentStatus: bookings.PaymentPending,
		BaseCents: 10000, FeeCents: 1000, TotalCents: 11000, Currency: "GBP",
		IntentRef: "pi_500", CreatedAt: now, UpdatedAt: now,
	}
	if err := db.Create(&b).Error; err != nil {
		t.Fatalf("seed booking: %v", err)
	}

	ref := "pi_500"
	intent := payments.PaymentIntent{
		ID: uuid.NewString(), ProcessorRef: &ref, BookingID: &bookingID,
		CustomerID: "cust-1", ProviderID: "prov-1", ServiceID: "svc-1",
		BaseCents: 10000, FeeCents: 1000, TotalCents: 11000, Currency: "GBP",
		Status: payments.StatusRequiresCapture, IdempotencyKey: "k1",
		CreatedAt: now, UpdatedAt: now,
	}
	if err := db.Create(&intent).Error; err != nil {
		t.Fatalf("seed intent: %v", err)
	}

	ev, body := envelope(t, "evt_1", processor.EvPaymentSucceeded, map[string]any{
		"id": "pi_500", "amount": 11000, "currency": "gbp", "status": "succeeded",
	})
	if err := svc.Handle(context.Background(), ev, body); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	var gotIntent payments.PaymentIntent
	db.First(&gotIntent, "id = ?", intent.ID)
	if gotIntent.Status != payments.StatusSucceeded {
		t.Fatalf("intent status = %q, want succeeded", gotIntent.Status)
	}

	var gotBooking bookings.Booking
	db.First(&gotBooking, "id = ?", bookingID)
	if gotBooking.PaymentStatus != bookings.PaymentPaid {
		t.Fatalf("booking payment status = %q, want paid", gotBooking.PaymentStatus)
	}
}

func TestPaymentFailedNeverDowngradesSucceeded(t *testing.T) {
	svc, db := newWebhookService(t)
	now := time.Now()

	ref := "pi_600"
	intent := payments.PaymentIntent{
		ID: uuid.NewString(), ProcessorRef: &ref,
		CustomerID: "cust-1", ProviderID: "prov-1", ServiceID: "svc-1",
		BaseCents: 100, FeeCents: 10, TotalCents: 110, Currency: "GBP",
		Status: payments.StatusSucceeded, IdempotencyKey: "k1",
		CreatedAt: now, UpdatedAt: now,
	}
	if err := db.Create(&intent).Error; err != nil {
		t.Fatalf("seed intent: %v", err)
	}

	ev, body := envelope(t, "evt_1", processor.EvPaymentFailed, map[string]any{
		"id": "pi_600", "status": "failed", "failure_reason": "card declined",
	})
	if err := svc.Handle(context.Background(), ev, body); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	var got payments.PaymentIntent
	db.First(&got, "id = ?", intent.ID)
	if got.Status != payments.StatusSucceeded {
		t.Fatalf("status = %q, a late failure must not undo a capture", got.Status)
	}
}

func TestAccountUpdatedActivatesProvider(t *testing.T) {
	svc, db := newWebhookService(t)
	now := time.Now()

	ref := "acct_700"
	acc := accounts.ProviderAccount{
		ID: uuid.NewString(), Role: "provider", DisplayName: "P",
		StripeAccountID: &ref, AccountStatus: accounts.StatusPending,
		CreatedAt: now, UpdatedAt: now,
	}
	if err := db.Create(&acc).Error; err != nil {
		t.Fatalf("seed account: %v", err)
	}

	ev, body := envelope(t, "evt_1", processor.EvAccountUpdated, map[string]any{
		"id": "acct_700", "charges_enabled": true, "details_submitted": true,
	})
	if err := svc.Handle(context.Background(), ev, body); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	var got accounts.ProviderAccount
	db.First(&got, "id = ?", acc.ID)
	if got.AccountStatus != accounts.StatusActive {
		t.Fatalf("account status = %q, want active", got.AccountStatus)
	}
	if !got.StripeChargesEnabled || !got.StripeDetailsSubmitted {
		t.Fatalf("capability flags not recorded: %+v", got)
	}

	var notes int64
	db.Model(&notifications.Notification{}).
		Where("user_id = ? AND type = ?", acc.ID, notifications.TypeAccountActive).
		Count(&notes)
	if notes != 1 {
		t.Fatalf("activation notifications = %d, want 1", notes)
	}
}

func TestAccountUpdatedUnknownAccountAcked(t *testing.T) {
	svc, _ := newWebhookService(t)

	ev, body := envelope(t, "evt_1", processor.EvAccountUpdated, map[string]any{
		"id": "acct_nobody", "charges_enabled": true, "details_submitted": true,
	})
	if err := svc.Handle(context.Background(), ev, body); err != nil {
		t.Fatalf("unknown account must be acked, got %v", err)
	}
}

func TestUnknownEventTypeAcked(t *testing.T) {
	svc, db := newWebhookService(t)

	ev, body := envelope(t, "evt_1", "charge.refund.updated", map[string]any{"id": "re_1"})
	if err := svc.Handle(context.Background(), ev, body); err != nil {
		t.Fatalf("unknown type must be acked, got %v", err)
	}

	var pe ProcessorEvent
	if err := db.First(&pe, "event_id = ?", "evt_1").Error; err != nil {
		t.Fatalf("event not recorded: %v", err)
	}
	if pe.ProcessedAt == nil {
		t.Fatalf("ignored event must still be marked processed")
	}
}

func TestSubscriptionLifecycle(t *testing.T) {
	svc, db := newWebhookService(t)
	providerID := uuid.NewString()
	periodEnd := time.Now().Add(30 * 24 * time.Hour).Unix()

	ev, body := envelope(t, "evt_1", processor.EvSubscriptionCreated, map[string]any{
		"id": "sub_1", "customer": "cus_1", "status": "active",
		"current_period_end": periodEnd,
		"metadata":           map[string]string{"provider_id": providerID},
	})
	if err := svc.Handle(context.Background(), ev, body); err != nil {
		t.Fatalf("create event: %v", err)
	}

	var sub subscriptions.ProviderSubscription
	if err := db.First(&sub, "subscription_ref = ?", "sub_1").Error; err != nil {
		t.Fatalf("subscription not created: %v", err)
	}
	if sub.ProviderID != providerID || sub.Status != subscriptions.StatusActive {
		t.Fatalf("subscription = %+v", sub)
	}

	ev, body = envelope(t, "evt_2", processor.EvInvoicePayFailed, map[string]any{
		"id": "in_1", "subscription": "sub_1", "amount_due": 999, "currency": "gbp",
	})
	if err := svc.Handle(context.Background(), ev, body); err != nil {
		t.Fatalf("invoice event: %v", err)
	}
	db.First(&sub, "subscription_ref = ?", "sub_1")
	if sub.Status != subscriptions.StatusPastDue {
		t.Fatalf("status = %q, want past_due after failed invoice", sub.Status)
	}

	ev, body = envelope(t, "evt_3", processor.EvSubscriptionDeleted, map[string]any{
		"id": "sub_1", "customer": "cus_1", "status": "canceled",
	})
	if err := svc.Handle(context.Background(), ev, body); err != nil {
		t.Fatalf("delete event: %v", err)
	}
	db.First(&sub, "subscription_ref = ?", "sub_1")
	if sub.Status != subscriptions.StatusCanceled || sub.CanceledAt == nil {
		t.Fatalf("subscription not canceled: %+v", sub)
	}
}

func TestReplayAppliesStoredEvent(t *testing.T) {
	svc, db := newWebhookService(t)

	// First delivery fails because the transfer is not in the ledger yet.
	ev, body := envelope(t, "evt_1", processor.EvPayoutPaid, map[string]any{
		"id": "tr_800", "status": "paid",
	})
	if err := svc.Handle(context.Background(), ev, body); err == nil {
		t.Fatalf("expected first delivery to fail")
	}

	rec := seedPayout(t, db, payouts.StatusProcessing, "tr_800")

	if err := svc.Replay(context.Background(), "evt_1"); err != nil {
		t.Fatalf("Replay: %v", err)
	}

	var got payouts.PayoutRecord
	db.First(&got, "id = ?", rec.ID)
	if got.Status != payouts.StatusCompleted {
		t.Fatalf("status = %q, want completed after replay", got.Status)
	}

	var pe ProcessorEvent
	db.First(&pe, "event_id = ?", "evt_1")
	if pe.ProcessedAt == nil || pe.ProcessError != nil {
		t.Fatalf("event row not repaired: processed_at=%v err=%v", pe.ProcessedAt, pe.ProcessError)
	}
}

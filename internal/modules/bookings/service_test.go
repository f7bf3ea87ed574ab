package bookings

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/config"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/modules/accounts"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/modules/notifications"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/modules/payouts"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/processor"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/shared/testdb"
	"gorm.io/gorm"
)

type fixture struct {
	db   *gorm.DB
	mock *processor.Mock
	svc  *Service

	customerID string
	providerID string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testdb.Open(t,
		&accounts.ProviderAccount{},
		&Booking{},
		&payouts.PayoutRecord{},
		&notifications.Notification{},
	)
	mock := processor.NewMock()
	cfg := &config.Config{PlatformFeeRate: 0.10, Currency: "GBP", PayoutWeekday: time.Friday}
	svc := NewService(db, payouts.NewService(db, mock, cfg))

	f := &fixture{
		db:         db,
		mock:       mock,
		svc:        svc,
		customerID: uuid.NewString(),
		providerID: uuid.NewString(),
	}

	ref := "acct_" + f.providerID[:8]
	acc := accounts.ProviderAccount{
		ID:                     f.providerID,
		Role:                   "provider",
		DisplayName:            "Fixture Provider",
		StripeAccountID:        &ref,
		StripeChargesEnabled:   true,
		StripeDetailsSubmitted: true,
		AccountStatus:          accounts.StatusActive,
		CreatedAt:              time.Now(),
		UpdatedAt:              time.Now(),
	}
	if err := db.Create(&acc).Error; err != nil {
		t.Fatalf("seed provider: %v", err)
	}
	return f
}

func (f *fixture) seedBooking(t *testing.T, status string) Booking {
	t.Helper()
	now := time.Now()
	b := Booking{
		ID:             uuid.NewString(),
		CustomerID:     f.customerID,
		ProviderID:     f.providerID,
		ServiceID:      uuid.NewString(),
		ScheduledStart: now.Add(24 * time.Hour),
		ScheduledEnd:   now.Add(25 * time.Hour),
		Status:         status,
		PaymentStatus:  PaymentPaid,
		BaseCents:      10000,
		FeeCents:       1000,
		TotalCents:     11000,
		Currency:       "GBP",
		IntentRef:      "pi_" + uuid.NewString()[:8],
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := f.db.Create(&b).Error; err != nil {
		t.Fatalf("seed booking: %v", err)
	}
	return b
}

func TestTransitionTable(t *testing.T) {
	allowed := []struct{ from, to string }{
		{StatusPending, StatusConfirmed},
		{StatusPending, StatusDeclined},
		{StatusPending, StatusExpired},
		{StatusConfirmed, StatusInProgress},
		{StatusConfirmed, StatusCancelled},
		{StatusInProgress, StatusCompleted},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("CanTransition(%s, %s) = false, want true", tc.from, tc.to)
		}
	}

	rejected := []struct{ from, to string }{
		{StatusCompleted, StatusConfirmed},
		{StatusCompleted, StatusInProgress},
		{StatusCancelled, StatusConfirmed},
		{StatusDeclined, StatusConfirmed},
		{StatusExpired, StatusConfirmed},
		{StatusPending, StatusInProgress},
		{StatusPending, StatusCompleted},
		{StatusConfirmed, StatusCompleted},
		{StatusInProgress, StatusCancelled},
	}
	for _, tc := range rejected {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("CanTransition(%s, %s) = true, want false", tc.from, tc.to)
		}
	}

	for _, s := range []string{StatusCompleted, StatusCancelled, StatusDeclined, StatusExpired} {
		if !IsTerminal(s) {
			t.Errorf("IsTerminal(%s) = false, want true", s)
		}
	}
}

func TestAcceptNotifiesCustomer(t *testing.T) {
	f := newFixture(t)
	b := f.seedBooking(t, StatusPending)

	got, err := f.svc.Accept(context.Background(), b.ID, f.providerID)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if got.Status != StatusConfirmed {
		t.Fatalf("status = %q, want confirmed", got.Status)
	}

	var cnt int64
	f.db.Model(&notifications.Notification{}).
		Where("user_id = ? AND type = ?", f.customerID, notifications.TypeBookingConfirmed).
		Count(&cnt)
	if cnt != 1 {
		t.Fatalf("confirmation notifications = %d, want 1", cnt)
	}
}

func TestAcceptByWrongProvider(t *testing.T) {
	f := newFixture(t)
	b := f.seedBooking(t, StatusPending)

	_, err := f.svc.Accept(context.Background(), b.ID, uuid.NewString())
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}

	var got Booking
	f.db.First(&got, "id = ?", b.ID)
	if got.Status != StatusPending {
		t.Fatalf("booking must be untouched, status = %q", got.Status)
	}
}

func TestAcceptTwiceIsNoOp(t *testing.T) {
	f := newFixture(t)
	b := f.seedBooking(t, StatusPending)

	if _, err := f.svc.Accept(context.Background(), b.ID, f.providerID); err != nil {
		t.Fatalf("first Accept: %v", err)
	}
	got, err := f.svc.Accept(context.Background(), b.ID, f.providerID)
	if err != nil {
		t.Fatalf("second Accept: %v", err)
	}
	if got.Status != StatusConfirmed {
		t.Fatalf("status = %q, want confirmed", got.Status)
	}
}

func TestStartRequiresConfirmed(t *testing.T) {
	f := newFixture(t)
	b := f.seedBooking(t, StatusPending)

	_, err := f.svc.Start(context.Background(), b.ID, f.providerID)
	if !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("err = %v, want ErrInvalidStateTransition", err)
	}
}

func TestCancelStoresReasonAndNotifiesOtherParty(t *testing.T) {
	f := newFixture(t)
	b := f.seedBooking(t, StatusConfirmed)

	got, err := f.svc.Cancel(context.Background(), b.ID, f.customerID, "schedule conflict")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if got.Status != StatusCancelled {
		t.Fatalf("status = %q, want cancelled", got.Status)
	}
	if got.CancelReason == nil || *got.CancelReason != "schedule conflict" {
		t.Fatalf("cancel reason not stored: %+v", got.CancelReason)
	}

	var cnt int64
	f.db.Model(&notifications.Notification{}).
		Where("user_id = ? AND type = ?", f.providerID, notifications.TypeBookingCancelled).
		Count(&cnt)
	if cnt != 1 {
		t.Fatalf("cancellation notifications to provider = %d, want 1", cnt)
	}
}

func TestCancelByStranger(t *testing.T) {
	f := newFixture(t)
	b := f.seedBooking(t, StatusConfirmed)

	_, err := f.svc.Cancel(context.Background(), b.ID, uuid.NewString(), "")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestCompleteInitiatesPayout(t *testing.T) {
	f := newFixture(t)
	b := f.seedBooking(t, StatusInProgress)

	res, err := f.svc.Complete(context.Background(), b.ID, f.providerID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if res.Booking.Status != StatusCompleted {
		t.Fatalf("booking status = %q, want completed", res.Booking.Status)
	}
	if res.Booking.CompletedAt == nil {
		t.Fatalf("completed_at not set")
	}
	if res.Idempotent {
		t.Fatalf("first completion must not be flagged idempotent")
	}

	p := res.Payout
	if p.Status != payouts.StatusProcessing {
		t.Fatalf("payout status = %q, want processing", p.Status)
	}
	if p.NetCents != 10000 || p.FeeCents != 1000 {
		t.Fatalf("payout amounts = net %d fee %d, want the stored booking split", p.NetCents, p.FeeCents)
	}
	if p.TransferRef == nil {
		t.Fatalf("transfer ref not recorded")
	}
	if f.mock.TransferCount() != 1 {
		t.Fatalf("transfers = %d, want 1", f.mock.TransferCount())
	}
}

func TestCompleteAgainReturnsExistingPayout(t *testing.T) {
	f := newFixture(t)
	b := f.seedBooking(t, StatusInProgress)

	first, err := f.svc.Complete(context.Background(), b.ID, f.providerID)
	if err != nil {
		t.Fatalf("first Complete: %v", err)
	}
	second, err := f.svc.Complete(context.Background(), b.ID, f.providerID)
	if err != nil {
		t.Fatalf("second Complete: %v", err)
	}
	if !second.Idempotent {
		t.Fatalf("repeat completion must be flagged idempotent")
	}
	if second.Payout.ID != first.Payout.ID {
		t.Fatalf("repeat completion returned a different payout")
	}
	if f.mock.TransferCount() != 1 {
		t.Fatalf("transfers = %d, want exactly 1", f.mock.TransferCount())
	}
}

// Concurrent completion must produce exactly one payout row and one transfer,
// with every caller getting a successful response.
func TestCompleteConcurrent(t *testing.T) {
	f := newFixture(t)
	b := f.seedBooking(t, StatusInProgress)

	const callers = 4
	var wg sync.WaitGroup
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Complete(context.Background(), b.ID, f.providerID)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: %v", i, err)
		}
	}

	var cnt int64
	f.db.Model(&payouts.PayoutRecord{}).Where("booking_id = ?", b.ID).Count(&cnt)
	if cnt != 1 {
		t.Fatalf("payout rows = %d, want exactly 1", cnt)
	}
	if f.mock.TransferCount() != 1 {
		t.Fatalf("transfers = %d, want exactly 1", f.mock.TransferCount())
	}
}

func TestCompleteByWrongProvider(t *testing.T) {
	f := newFixture(t)
	b := f.seedBooking(t, StatusInProgress)

	_, err := f.svc.Complete(context.Background(), b.ID, uuid.NewString())
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}

	var got Booking
	f.db.First(&got, "id = ?", b.ID)
	if got.Status != StatusInProgress {
		t.Fatalf("booking must be untouched, status = %q", got.Status)
	}
	if f.mock.TransferCount() != 0 {
		t.Fatalf("no transfer may exist, got %d", f.mock.TransferCount())
	}
}

func TestCompleteFromWrongState(t *testing.T) {
	f := newFixture(t)
	b := f.seedBooking(t, StatusConfirmed)

	_, err := f.svc.Complete(context.Background(), b.ID, f.providerID)
	if !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("err = %v, want ErrInvalidStateTransition", err)
	}
}

func TestGetVisibility(t *testing.T) {
	f := newFixture(t)
	b := f.seedBooking(t, StatusPending)

	if _, err := f.svc.Get(context.Background(), b.ID, f.customerID); err != nil {
		t.Fatalf("customer view: %v", err)
	}
	if _, err := f.svc.Get(context.Background(), b.ID, f.providerID); err != nil {
		t.Fatalf("provider view: %v", err)
	}
	if _, err := f.svc.Get(context.Background(), b.ID, uuid.NewString()); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger view err = %v, want ErrForbidden", err)
	}
	if _, err := f.svc.Get(context.Background(), uuid.NewString(), f.customerID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing booking err = %v, want ErrNotFound", err)
	}
}

package bookings

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/modules/accounts"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/modules/notifications"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/modules/payouts"
)

type Service struct {
	db      *gorm.DB
	payouts *payouts.Service
	logger  *slog.Logger
}

func NewService(db *gorm.DB, p *payouts.Service) *Service {
	return &Service{db: db, payouts: p, logger: slog.Default()}
}

func (s *Service) SetLogger(l *slog.Logger) { s.logger = l }

// Get returns a booking visible to the actor (its customer or its provider).
func (s *Service) Get(ctx context.Context, bookingID, actorID string) (Booking, error) {
	var b Booking
	err := s.db.WithContext(ctx).First(&b, "id = ?", bookingID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Booking{}, ErrNotFound
	}
	if err != nil {
		return Booking{}, err
	}
	if b.CustomerID != actorID && b.ProviderID != actorID {
		return Booking{}, ErrForbidden
	}
	return b, nil
}

// Accept moves a pending booking to confirmed (provider action).
func (s *Service) Accept(ctx context.Context, bookingID, providerID string) (Booking, error) {
	b, err := s.transition(ctx, bookingID, providerID, StatusPending, StatusConfirmed, nil)
	if err != nil {
		return Booking{}, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return notifications.Ensure(ctx, tx, notifications.Notification{
			UserID:  b.CustomerID,
			Type:    notifications.TypeBookingConfirmed,
			Title:   "Booking confirmed",
			Body:    "Your provider accepted the booking.",
			RefType: "booking",
			RefID:   b.ID,
		})
	})
	return b, err
}

// Decline moves a pending booking to declined (provider action).
// TODO: wire the refund flow for paid-then-declined bookings once the refund
// service lands; funds currently stay on the platform balance for ops to
// return manually.
func (s *Service) Decline(ctx context.Context, bookingID, providerID string) (Booking, error) {
	return s.transition(ctx, bookingID, providerID, StatusPending, StatusDeclined, nil)
}

// Start moves a confirmed booking to in_progress (provider action).
func (s *Service) Start(ctx context.Context, bookingID, providerID string) (Booking, error) {
	return s.transition(ctx, bookingID, providerID, StatusConfirmed, StatusInProgress, nil)
}

// Cancel moves a confirmed booking to cancelled. Either party may cancel.
func (s *Service) Cancel(ctx context.Context, bookingID, actorID, reason string) (Booking, error) {
	extra := map[string]any{}
	if reason != "" {
		extra["cancel_reason"] = truncate(reason, 250)
	}

	b, err := s.transitionWhere(ctx, bookingID, StatusConfirmed, StatusCancelled, extra,
		"(customer_id = ? OR provider_id = ?)", actorID, actorID)
	if err != nil {
		return Booking{}, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		other := b.CustomerID
		if actorID == b.CustomerID {
			other = b.ProviderID
		}
		return notifications.Ensure(ctx, tx, notifications.Notification{
			UserID:  other,
			Type:    notifications.TypeBookingCancelled,
			Title:   "Booking cancelled",
			Body:    "The booking was cancelled.",
			RefType: "booking",
			RefID:   b.ID,
		})
	})
	return b, err
}

type CompleteResult struct {
	Booking    Booking
	Payout     payouts.PayoutRecord
	Idempotent bool
}

// Complete moves an in_progress booking to completed and initiates the payout.
// Completing an already-completed booking is a no-op that returns the existing
// payout; the compare-and-set on status means concurrent calls cannot race a
// second payout into existence.
func (s *Service) Complete(ctx context.Context, bookingID, providerID string) (CompleteResult, error) {
	now := time.Now()

	res := s.db.WithContext(ctx).Model(&Booking{}).
		Where("id = ? AND provider_id = ? AND status = ?", bookingID, providerID, StatusInProgress).
		Updates(map[string]any{
			"status":       StatusCompleted,
			"completed_at": &now,
			"updated_at":   now,
		})
	if res.Error != nil {
		return CompleteResult{}, res.Error
	}

	var b Booking
	if err := s.db.WithContext(ctx).First(&b, "id = ?", bookingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CompleteResult{}, ErrNotFound
		}
		return CompleteResult{}, err
	}
	if b.ProviderID != providerID {
		return CompleteResult{}, ErrForbidden
	}

	if res.RowsAffected == 0 {
		if b.Status != StatusCompleted {
			return CompleteResult{}, ErrInvalidStateTransition
		}
		// Lost the CAS (or a retry): the payout belongs to whoever won. If the
		// winner crashed before initiating it, fall through and repair.
		if rec, err := s.payouts.ByBooking(ctx, bookingID); err == nil {
			return CompleteResult{Booking: b, Payout: rec, Idempotent: true}, nil
		} else if !errors.Is(err, payouts.ErrNotFound) {
			return CompleteResult{}, err
		}
	}

	accountRef := ""
	var acc accounts.ProviderAccount
	if err := s.db.WithContext(ctx).First(&acc, "id = ?", providerID).Error; err == nil && acc.StripeAccountID != nil {
		accountRef = *acc.StripeAccountID
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return CompleteResult{}, err
	}

	out, err := s.payouts.Initiate(ctx, payouts.InitiateInput{
		BookingID:          b.ID,
		ProviderID:         b.ProviderID,
		ProviderAccountRef: accountRef,
		GrossCents:         b.BaseCents,
		FeeCents:           b.FeeCents,
		Currency:           b.Currency,
	})
	if err != nil {
		return CompleteResult{Booking: b, Payout: out.Record}, err
	}
	return CompleteResult{Booking: b, Payout: out.Record, Idempotent: out.Idempotent}, nil
}

// transition is the single-statement guarded update every lifecycle method
// uses: the WHERE clause checks the expected current status so a stale caller
// can never overwrite a concurrent change.
func (s *Service) transition(ctx context.Context, bookingID, providerID, from, to string, extra map[string]any) (Booking, error) {
	return s.transitionWhere(ctx, bookingID, from, to, extra, "provider_id = ?", providerID)
}

func (s *Service) transitionWhere(ctx context.Context, bookingID, from, to string, extra map[string]any, actorCond string, actorArgs ...any) (Booking, error) {
	if !CanTransition(from, to) {
		return Booking{}, ErrInvalidStateTransition
	}

	updates := map[string]any{
		"status":     to,
		"updated_at": time.Now(),
	}
	for k, v := range extra {
		updates[k] = v
	}

	res := s.db.WithContext(ctx).Model(&Booking{}).
		Where("id = ? AND status = ?", bookingID, from).
		Where(actorCond, actorArgs...).
		Updates(updates)
	if res.Error != nil {
		return Booking{}, res.Error
	}

	var b Booking
	if err := s.db.WithContext(ctx).First(&b, "id = ?", bookingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Booking{}, ErrNotFound
		}
		return Booking{}, err
	}

	if res.RowsAffected == 0 {
		if b.Status == to {
			// Another call already applied this transition.
			return b, nil
		}
		if b.Status == from {
			// Status was right, so the actor guard is what failed.
			return Booking{}, ErrForbidden
		}
		return Booking{}, ErrInvalidStateTransition
	}
	return b, nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}

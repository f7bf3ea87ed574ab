package payments

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/modules/bookings"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/modules/notifications"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/processor"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/shared/money"
)

type CaptureService struct {
	db        *gorm.DB
	processor processor.Client
	logger    *slog.Logger
}

func NewCaptureService(db *gorm.DB, p processor.Client) *CaptureService {
	return &CaptureService{db: db, processor: p, logger: slog.Default()}
}

func (s *CaptureService) SetLogger(l *slog.Logger) { s.logger = l }

type BookingDraft struct {
	ScheduledStart time.Time
	ScheduledEnd   time.Time
}

func (d BookingDraft) validate() error {
	if d.ScheduledStart.IsZero() || d.ScheduledEnd.IsZero() || !d.ScheduledEnd.After(d.ScheduledStart) {
		return ErrInvalidInput
	}
	return nil
}

// CaptureAndCreateBooking finalizes the authorized charge and creates the
// pending booking the customer paid for. Ordering is deliberate: the
// intent row is marked succeeded before the booking write, so a crash or
// write failure in between leaves a succeeded, unlinked intent that the
// orphaned-capture report finds, never a silent loss.
//
// Retrying after any failure is safe: capture is idempotency-keyed on the
// intent, and the booking insert dedupes on the intent ref.
func (s *CaptureService) CaptureAndCreateBooking(ctx context.Context, intentID string, actorID string, draft BookingDraft) (bookings.Booking, error) {
	if err := draft.validate(); err != nil {
		return bookings.Booking{}, err
	}

	var intent PaymentIntent
	if err := s.db.WithContext(ctx).First(&intent, "id = ?", intentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return bookings.Booking{}, ErrIntentNotFound
		}
		return bookings.Booking{}, err
	}
	if intent.CustomerID != actorID {
		return bookings.Booking{}, ErrIntentNotFound
	}

	// Replay of a fully processed request.
	if intent.Status == StatusSucceeded && intent.BookingID != nil {
		var b bookings.Booking
		if err := s.db.WithContext(ctx).First(&b, "id = ?", *intent.BookingID).Error; err != nil {
			return bookings.Booking{}, err
		}
		return b, nil
	}

	switch intent.Status {
	case StatusRequiresCapture, StatusSucceeded:
	default:
		return bookings.Booking{}, ErrIntentNotCapturable
	}
	if intent.ProcessorRef == nil {
		return bookings.Booking{}, ErrIntentNotCapturable
	}

	// Step 1: capture, unless a previous attempt already got this far.
	if intent.Status != StatusSucceeded {
		_, perr := s.processor.CaptureIntent(ctx, processor.CaptureRequest{
			IntentRef:      *intent.ProcessorRef,
			IdempotencyKey: "capture_" + intent.ID,
		})
		now := time.Now()
		if perr != nil {
			msg := truncate(perr.Error(), 250)
			if err := s.db.WithContext(ctx).Model(&PaymentIntent{}).
				Where("id = ? AND status = ?", intent.ID, StatusRequiresCapture).
				Updates(map[string]any{
					"status":        StatusFailed,
					"error_message": msg,
					"updated_at":    now,
				}).Error; err != nil {
				return bookings.Booking{}, err
			}
			return bookings.Booking{}, ErrCaptureFailed
		}

		// Money has moved. From here on every failure must stay loud.
		if err := s.db.WithContext(ctx).Model(&PaymentIntent{}).
			Where("id = ?", intent.ID).
			Updates(map[string]any{
				"status":        StatusSucceeded,
				"error_message": nil,
				"updated_at":    now,
			}).Error; err != nil {
			s.logger.ErrorContext(ctx, "orphaned capture: intent status write failed after capture",
				"intent_id", intent.ID, "processor_ref", *intent.ProcessorRef, "err", err)
			return bookings.Booking{}, ErrOrphanedCapture
		}
		intent.Status = StatusSucceeded
	}

	// Step 2: booking row. One in-place retry, then flag for reconciliation.
	b, err := s.createBooking(ctx, intent, draft)
	if err != nil {
		s.logger.WarnContext(ctx, "booking write failed after capture, retrying",
			"intent_id", intent.ID, "err", err)
		b, err = s.createBooking(ctx, intent, draft)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "orphaned capture: booking creation failed after capture",
			"intent_id", intent.ID, "processor_ref", *intent.ProcessorRef, "err", err)
		return bookings.Booking{}, ErrOrphanedCapture
	}
	return b, nil
}

func (s *CaptureService) createBooking(ctx context.Context, intent PaymentIntent, draft BookingDraft) (bookings.Booking, error) {
	now := time.Now()
	b := bookings.Booking{
		ID:             uuid.NewString(),
		CustomerID:     intent.CustomerID,
		ProviderID:     intent.ProviderID,
		ServiceID:      intent.ServiceID,
		ScheduledStart: draft.ScheduledStart,
		ScheduledEnd:   draft.ScheduledEnd,
		Status:         bookings.StatusPending,
		PaymentStatus:  bookings.PaymentPaid,
		BaseCents:      intent.BaseCents,
		FeeCents:       intent.FeeCents,
		TotalCents:     intent.TotalCents,
		Currency:       intent.Currency,
		IntentRef:      *intent.ProcessorRef,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).Create(&b).Error; err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Model(&PaymentIntent{}).
			Where("id = ?", intent.ID).
			Updates(map[string]any{"booking_id": b.ID, "updated_at": now}).Error; err != nil {
			return err
		}
		return notifications.Ensure(ctx, tx, notifications.Notification{
			UserID:  intent.CustomerID,
			Type:    notifications.TypeBookingPaid,
			Title:   "Payment received",
			Body:    "We received " + money.FormatMoney(intent.Currency, intent.TotalCents) + " for your booking.",
			RefType: "booking",
			RefID:   b.ID,
		})
	})
	if err != nil {
		// A concurrent replay of the same capture already created the booking.
		if errors.Is(err, gorm.ErrDuplicatedKey) || isDup(err) {
			var existing bookings.Booking
			if ferr := s.db.WithContext(ctx).First(&existing, "intent_ref = ?", *intent.ProcessorRef).Error; ferr == nil {
				return existing, nil
			}
		}
		return bookings.Booking{}, err
	}
	return b, nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}

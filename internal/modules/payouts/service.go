package payouts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/config"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/modules/notifications"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/processor"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/shared/money"
)

type Service struct {
	db        *gorm.DB
	processor processor.Client
	cfg       *config.Config
	logger    *slog.Logger
}

func NewService(db *gorm.DB, p processor.Client, cfg *config.Config) *Service {
	return &Service{db: db, processor: p, cfg: cfg, logger: slog.Default()}
}

func (s *Service) SetLogger(l *slog.Logger) { s.logger = l }

type InitiateInput struct {
	BookingID  string
	ProviderID string
	// ProviderAccountRef is the connected processor account receiving funds.
	ProviderAccountRef string

	// Amounts come from the stored booking split; never recomputed here.
	GrossCents int64
	FeeCents   int64
	Currency   string
}

type InitiateResult struct {
	Record     PayoutRecord
	Idempotent bool
}

// Initiate creates the payout ledger row and requests the transfer. The
// provider receives the stored base amount; the platform keeps the stored fee.
// Calling it again for the same booking returns the existing record.
func (s *Service) Initiate(ctx context.Context, in InitiateInput) (InitiateResult, error) {
	if in.BookingID == "" || in.ProviderID == "" {
		return InitiateResult{}, ErrNotFound
	}

	net := in.GrossCents
	if net < s.cfg.MinPayoutCents {
		return InitiateResult{}, ErrBelowMinimum
	}

	// Phase-1: claim the booking's payout slot.
	var rec PayoutRecord
	var existing bool

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prev PayoutRecord
		e := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&prev, "booking_id = ?", in.BookingID).Error
		if e == nil {
			rec = prev
			existing = true
			return nil
		}
		if !errors.Is(e, gorm.ErrRecordNotFound) {
			return e
		}

		now := time.Now()
		rec = PayoutRecord{
			ID:                 uuid.NewString(),
			ProviderID:         in.ProviderID,
			BookingID:          in.BookingID,
			GrossCents:         in.GrossCents,
			FeeCents:           in.FeeCents,
			NetCents:           net,
			Currency:           in.Currency,
			Status:             StatusProcessing,
			Attempts:           1,
			ExpectedPayoutDate: NextPayoutDate(now, s.cfg.PayoutWeekday),
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		return tx.WithContext(ctx).Create(&rec).Error
	})
	if err != nil {
		// A concurrent caller won the insert; treat as the idempotent path.
		if errors.Is(err, gorm.ErrDuplicatedKey) || isDup(err) {
			if ferr := s.db.WithContext(ctx).First(&rec, "booking_id = ?", in.BookingID).Error; ferr != nil {
				return InitiateResult{}, ferr
			}
			existing = true
		} else {
			return InitiateResult{}, err
		}
	}
	if existing {
		// A processing row with no transfer ref means a previous call died
		// between the claim and the processor request. Resume it; the
		// attempt-derived idempotency key makes the transfer exactly-once.
		if rec.Status == StatusProcessing && rec.TransferRef == nil {
			res, rerr := s.requestTransfer(ctx, rec, in.ProviderAccountRef)
			res.Idempotent = true
			return res, rerr
		}
		return InitiateResult{Record: rec, Idempotent: true}, nil
	}

	return s.requestTransfer(ctx, rec, in.ProviderAccountRef)
}

// RetryFailed flips a failed payout back to processing and requests a fresh
// transfer under a new idempotency key. Manual operational path.
func (s *Service) RetryFailed(ctx context.Context, bookingID, providerAccountRef string) (InitiateResult, error) {
	var rec PayoutRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&rec, "booking_id = ?", bookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if rec.Status != StatusFailed {
			return ErrNotRetryable
		}

		now := time.Now()
		res := tx.WithContext(ctx).Model(&PayoutRecord{}).
			Where("id = ? AND status = ?", rec.ID, StatusFailed).
			Updates(map[string]any{
				"status":               StatusProcessing,
				"attempts":             rec.Attempts + 1,
				"failure_reason":       nil,
				"expected_payout_date": NextPayoutDate(now, s.cfg.PayoutWeekday),
				"updated_at":           now,
			})
		if res.Error != nil {
			return res.Error
		}
		rec.Status = StatusProcessing
		rec.Attempts++
		rec.FailureReason = nil
		return nil
	})
	if err != nil {
		return InitiateResult{}, err
	}

	return s.requestTransfer(ctx, rec, providerAccountRef)
}

// requestTransfer is phase-2/3: processor call outside the claim transaction,
// then a finalize update. The idempotency key is derived from booking id and
// attempt so a crashed finalize can be replayed safely.
func (s *Service) requestTransfer(ctx context.Context, rec PayoutRecord, accountRef string) (InitiateResult, error) {
	idemKey := fmt.Sprintf("payout_%s_a%d", rec.BookingID, rec.Attempts)

	resp, perr := s.processor.CreateTransfer(ctx, processor.CreateTransferRequest{
		AmountCents:    rec.NetCents,
		Currency:       rec.Currency,
		DestinationRef: accountRef,
		IdempotencyKey: idemKey,
		Metadata: map[string]string{
			"booking_id": rec.BookingID,
			"payout_id":  rec.ID,
		},
	})

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		if perr != nil {
			reason := truncate(perr.Error(), 250)
			if err := tx.WithContext(ctx).Model(&PayoutRecord{}).
				Where("id = ?", rec.ID).
				Updates(map[string]any{
					"status":         StatusFailed,
					"failure_reason": reason,
					"updated_at":     now,
				}).Error; err != nil {
				return err
			}
			rec.Status = StatusFailed
			rec.FailureReason = &reason

			return notifications.Ensure(ctx, tx, notifications.Notification{
				UserID:  rec.ProviderID,
				Type:    notifications.TypePayoutFailed,
				Title:   "Payout could not be started",
				Body:    "We could not start your payout of " + money.FormatMoney(rec.Currency, rec.NetCents) + ". Our team has been notified.",
				RefType: "payout",
				RefID:   rec.ID,
			})
		}

		if err := tx.WithContext(ctx).Model(&PayoutRecord{}).
			Where("id = ?", rec.ID).
			Updates(map[string]any{
				"transfer_ref": resp.TransferRef,
				"updated_at":   now,
			}).Error; err != nil {
			return err
		}
		ref := resp.TransferRef
		rec.TransferRef = &ref

		return notifications.Ensure(ctx, tx, notifications.Notification{
			UserID:  rec.ProviderID,
			Type:    notifications.TypePayoutInitiated,
			Title:   "Payout on the way",
			Body:    money.FormatMoney(rec.Currency, rec.NetCents) + " is scheduled for " + rec.ExpectedPayoutDate.Format("Mon 2 Jan") + ".",
			RefType: "payout",
			RefID:   rec.ID,
		})
	})
	if err != nil {
		return InitiateResult{}, err
	}

	if perr != nil {
		s.logger.ErrorContext(ctx, "payout transfer refused",
			"booking_id", rec.BookingID, "payout_id", rec.ID, "err", perr)
		return InitiateResult{Record: rec}, ErrTransferFailed
	}

	return InitiateResult{Record: rec}, nil
}

// ByBooking returns the payout row for a booking, if any.
func (s *Service) ByBooking(ctx context.Context, bookingID string) (PayoutRecord, error) {
	var rec PayoutRecord
	err := s.db.WithContext(ctx).First(&rec, "booking_id = ?", bookingID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return PayoutRecord{}, ErrNotFound
	}
	return rec, err
}

// ListForProvider returns newest-first payouts for the provider dashboard.
func (s *Service) ListForProvider(ctx context.Context, providerID string, limit int) ([]PayoutRecord, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}
	var out []PayoutRecord
	err := s.db.WithContext(ctx).
		Where("provider_id = ?", providerID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// NextPayoutDate returns the next weekly cycle date strictly after now,
// normalized to midnight UTC.
func NextPayoutDate(now time.Time, payoutDay time.Weekday) time.Time {
	days := (int(payoutDay) - int(now.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	d := now.AddDate(0, 0, days)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}

package payments

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/config"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/modules/accounts"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/processor"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/shared/money"
)

type IntentService struct {
	db        *gorm.DB
	processor processor.Client
	cfg       *config.Config
	logger    *slog.Logger
}

func NewIntentService(db *gorm.DB, p processor.Client, cfg *config.Config) *IntentService {
	return &IntentService{db: db, processor: p, cfg: cfg, logger: slog.Default()}
}

func (s *IntentService) SetLogger(l *slog.Logger) { s.logger = l }

type CreateIntentInput struct {
	CustomerID string
	ProviderID string
	ServiceID  string
	BaseCents  int64
	Currency   string
	// IdempotencyKey is client-supplied; a timed-out client retries with the
	// same key and gets the original intent back.
	IdempotencyKey string
}

type CreateIntentResult struct {
	IntentID     string
	ClientSecret string
	Status       string
	TotalCents   int64
	Idempotent   bool
}

// CreateIntent computes the fee split, asks the processor for a manual-capture
// intent over the total, and persists the durable intent row. A processor
// failure persists nothing and surfaces ErrPaymentSetupFailed.
func (s *IntentService) CreateIntent(ctx context.Context, in CreateIntentInput) (CreateIntentResult, error) {
	if in.BaseCents <= 0 {
		return CreateIntentResult{}, ErrInvalidAmount
	}
	if in.CustomerID == "" || in.ProviderID == "" || in.ServiceID == "" || in.IdempotencyKey == "" {
		return CreateIntentResult{}, ErrInvalidInput
	}

	currency := in.Currency
	if currency == "" {
		currency = s.cfg.Currency
	}

	// The provider must be able to receive funds before we take any.
	var acc accounts.ProviderAccount
	if err := s.db.WithContext(ctx).First(&acc, "id = ?", in.ProviderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CreateIntentResult{}, ErrProviderNotBookable
		}
		return CreateIntentResult{}, err
	}
	if !acc.CanAcceptBookings() {
		return CreateIntentResult{}, ErrProviderNotBookable
	}

	// Client retry with the same key returns the original intent.
	var existing PaymentIntent
	e := s.db.WithContext(ctx).First(&existing, "customer_id = ? AND idempotency_key = ?", in.CustomerID, in.IdempotencyKey).Error
	if e == nil {
		return resultFrom(existing, true), nil
	}
	if !errors.Is(e, gorm.ErrRecordNotFound) {
		return CreateIntentResult{}, e
	}

	split := money.ComputeSplit(in.BaseCents, s.cfg.PlatformFeeRate)
	intentID := uuid.NewString()

	resp, perr := s.processor.CreateIntent(ctx, processor.CreateIntentRequest{
		AmountCents:    split.TotalCents,
		Currency:       currency,
		CustomerRef:    in.CustomerID,
		IdempotencyKey: in.IdempotencyKey,
		Metadata: map[string]string{
			"intent_id":   intentID,
			"service_id":  in.ServiceID,
			"provider_id": in.ProviderID,
			"customer_id": in.CustomerID,
		},
	})
	if perr != nil {
		s.logger.WarnContext(ctx, "processor intent creation failed",
			"customer_id", in.CustomerID, "service_id", in.ServiceID, "err", perr)
		return CreateIntentResult{}, ErrPaymentSetupFailed
	}

	now := time.Now()
	ref := resp.IntentRef
	secret := resp.ClientSecret
	row := PaymentIntent{
		ID:             intentID,
		ProcessorRef:   &ref,
		ClientSecret:   &secret,
		CustomerID:     in.CustomerID,
		ProviderID:     in.ProviderID,
		ServiceID:      in.ServiceID,
		BaseCents:      split.BaseCents,
		FeeCents:       split.FeeCents,
		TotalCents:     split.TotalCents,
		Currency:       currency,
		Status:         resp.Status,
		IdempotencyKey: in.IdempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		// Raced another request with the same key; the processor call was
		// idempotency-keyed so both saw the same intent.
		if errors.Is(err, gorm.ErrDuplicatedKey) || isDup(err) {
			if ferr := s.db.WithContext(ctx).First(&existing, "customer_id = ? AND idempotency_key = ?", in.CustomerID, in.IdempotencyKey).Error; ferr == nil {
				return resultFrom(existing, true), nil
			}
		}
		return CreateIntentResult{}, err
	}

	return resultFrom(row, false), nil
}

func resultFrom(p PaymentIntent, idempotent bool) CreateIntentResult {
	out := CreateIntentResult{
		IntentID:   p.ID,
		Status:     p.Status,
		TotalCents: p.TotalCents,
		Idempotent: idempotent,
	}
	if p.ClientSecret != nil {
		out.ClientSecret = *p.ClientSecret
	}
	return out
}

// ExpireAbandoned sweeps intents the customer never confirmed past the
// configured window. Bookings are only created after capture, so there is
// nothing else to unwind.
func (s *IntentService) ExpireAbandoned(ctx context.Context, now time.Time) (int64, error) {
	cutoff := now.Add(-s.cfg.IntentAbandonAfter)

	var stale []PaymentIntent
	if err := s.db.WithContext(ctx).
		Where("status IN ? AND booking_id IS NULL AND created_at < ?",
			[]string{StatusRequiresAction, StatusRequiresCapture}, cutoff).
		Find(&stale).Error; err != nil {
		return 0, err
	}

	var swept int64
	for _, p := range stale {
		if p.ProcessorRef != nil {
			// Best effort; a failed remote cancel still leaves the local row
			// canceled and the authorization expires on its own.
			if err := s.processor.CancelIntent(ctx, processor.CancelIntentRequest{IntentRef: *p.ProcessorRef}); err != nil {
				s.logger.WarnContext(ctx, "remote intent cancel failed", "intent_id", p.ID, "err", err)
			}
		}

		res := s.db.WithContext(ctx).Model(&PaymentIntent{}).
			Where("id = ? AND status IN ?", p.ID, []string{StatusRequiresAction, StatusRequiresCapture}).
			Updates(map[string]any{"status": StatusCanceled, "updated_at": now})
		if res.Error != nil {
			return swept, res.Error
		}
		swept += res.RowsAffected
	}
	return swept, nil
}

// ListOrphanedCaptures reports succeeded intents that never got a booking.
// Each row is real customer money with no internal record; the admin surface
// pages on a non-empty result.
func (s *IntentService) ListOrphanedCaptures(ctx context.Context, olderThan time.Duration) ([]PaymentIntent, error) {
	cutoff := time.Now().Add(-olderThan)
	var out []PaymentIntent
	err := s.db.WithContext(ctx).
		Where("status = ? AND booking_id IS NULL AND updated_at < ?", StatusSucceeded, cutoff).
		Order("updated_at ASC").
		Find(&out).Error
	return out, err
}

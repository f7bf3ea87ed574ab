package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/modules/accounts"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/modules/bookings"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/modules/notifications"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/modules/payments"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/modules/payouts"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/modules/subscriptions"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/processor"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/shared/money"
)

// WebhookService applies processor events to the internal ledger. Each
// handler owns exactly one aggregate and is idempotent: redelivery of an
// event id is absorbed by the processor_events unique index, and replays of
// the same state change are absorbed by status guards on the target row.
type WebhookService struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewWebhookService(db *gorm.DB) *WebhookService {
	return &WebhookService{db: db, logger: slog.Default()}
}

func (s *WebhookService) SetLogger(l *slog.Logger) { s.logger = l }

// Handle persists and applies one verified event. A nil return means the
// delivery may be acknowledged; any error must surface as a non-2xx so the
// processor redelivers.
//
// The event row is claimed outside the apply transaction on purpose: a failed
// apply must leave the row behind with its error recorded, so redelivery can
// re-attempt it and the ops replay path can find it.
func (s *WebhookService) Handle(ctx context.Context, ev processor.Event, rawBody []byte) error {
	now := time.Now()

	pe := ProcessorEvent{
		ID:          uuid.NewString(),
		EventID:     ev.ID,
		EventType:   ev.Type,
		PayloadJSON: datatypes.JSON(rawBody),
		ReceivedAt:  now,
	}
	if err := s.db.WithContext(ctx).Create(&pe).Error; err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) && !isDup(err) {
			s.logger.ErrorContext(ctx, "failed to persist processor event", "event_id", ev.ID, "err", err)
			return err
		}
		if ferr := s.db.WithContext(ctx).First(&pe, "event_id = ?", ev.ID).Error; ferr != nil {
			return ferr
		}
		if pe.ProcessedAt != nil {
			s.logger.InfoContext(ctx, "webhook event deduplicated", "event_id", ev.ID, "type", ev.Type)
			return nil
		}
		// Stored but never applied; re-attempt below.
	}

	applyErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.apply(ctx, tx, ev)
	})
	if applyErr != nil {
		msg := truncate(applyErr.Error(), 250)
		if err := s.db.WithContext(ctx).Model(&ProcessorEvent{}).
			Where("id = ?", pe.ID).
			Updates(map[string]any{"process_error": msg}).Error; err != nil {
			s.logger.ErrorContext(ctx, "failed to record apply error", "event_id", ev.ID, "err", err)
		}
		s.logger.ErrorContext(ctx, "webhook event apply failed", "event_id", ev.ID, "type", ev.Type, "error", msg)
		return applyErr
	}

	processed := time.Now()
	if err := s.db.WithContext(ctx).Model(&ProcessorEvent{}).
		Where("id = ?", pe.ID).
		Updates(map[string]any{"processed_at": &processed, "process_error": nil}).Error; err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "webhook event processed", "event_id", ev.ID, "type", ev.Type)
	return nil
}

// Replay re-applies a stored event by its processor event id. Operational
// path for events that failed past the processor's retry horizon.
func (s *WebhookService) Replay(ctx context.Context, eventID string) error {
	var pe ProcessorEvent
	if err := s.db.WithContext(ctx).First(&pe, "event_id = ?", eventID).Error; err != nil {
		return err
	}

	ev, err := processor.ParseEvent(buildEnvelope(pe))
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.apply(ctx, tx, ev); err != nil {
			return err
		}
		now := time.Now()
		return tx.WithContext(ctx).Model(&ProcessorEvent{}).
			Where("id = ?", pe.ID).
			Updates(map[string]any{"processed_at": &now, "process_error": nil}).Error
	})
}

func buildEnvelope(pe ProcessorEvent) []byte {
	// PayloadJSON stores the original envelope verbatim.
	return []byte(pe.PayloadJSON)
}

func (s *WebhookService) apply(ctx context.Context, tx *gorm.DB, ev processor.Event) error {
	switch ev.Type {
	case processor.EvPaymentSucceeded:
		return s.applyPaymentSucceeded(ctx, tx, ev)
	case processor.EvPaymentFailed:
		return s.applyPaymentFailed(ctx, tx, ev)
	case processor.EvPaymentCanceled:
		return s.applyPaymentCanceled(ctx, tx, ev)
	case processor.EvPaymentRequiresAction:
		return s.applyPaymentRequiresAction(ctx, tx, ev)
	case processor.EvAccountUpdated, processor.EvCapabilityUpdated:
		return s.applyAccountUpdated(ctx, tx, ev)
	case processor.EvPayoutPaid:
		return s.applyPayoutPaid(ctx, tx, ev)
	case processor.EvPayoutFailed:
		return s.applyPayoutFailed(ctx, tx, ev)
	case processor.EvSubscriptionCreated, processor.EvSubscriptionUpdated, processor.EvSubscriptionDeleted:
		return s.applySubscription(ctx, tx, ev)
	case processor.EvInvoicePaySucceeded, processor.EvInvoicePayFailed:
		return s.applyInvoice(ctx, tx, ev)
	default:
		// Intentionally ignored types are acknowledged so the processor stops
		// redelivering them.
		s.logger.InfoContext(ctx, "webhook event type ignored", "event_id", ev.ID, "type", ev.Type)
		return nil
	}
}

func (s *WebhookService) applyPaymentSucceeded(ctx context.Context, tx *gorm.DB, ev processor.Event) error {
	d := ev.PaymentIntent

	var p payments.PaymentIntent
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&p, "processor_ref = ?", d.IntentRef).Error; err != nil {
		return err // not found: retry, the synchronous path may still be writing
	}

	now := time.Now()
	if p.Status != payments.StatusSucceeded {
		if err := tx.WithContext(ctx).Model(&payments.PaymentIntent{}).
			Where("id = ?", p.ID).
			Updates(map[string]any{
				"status":        payments.StatusSucceeded,
				"error_message": nil,
				"updated_at":    now,
			}).Error; err != nil {
			return err
		}
	}

	if p.BookingID == nil {
		return nil
	}

	// payment_status only ever moves to paid off the back of a capture event.
	if err := tx.WithContext(ctx).Model(&bookings.Booking{}).
		Where("id = ? AND payment_status = ?", *p.BookingID, bookings.PaymentPending).
		Updates(map[string]any{
			"payment_status": bookings.PaymentPaid,
			"updated_at":     now,
		}).Error; err != nil {
		return err
	}

	return notifications.Ensure(ctx, tx, notifications.Notification{
		UserID:  p.CustomerID,
		Type:    notifications.TypeBookingPaid,
		Title:   "Payment received",
		Body:    "We received " + money.FormatMoney(p.Currency, p.TotalCents) + " for your booking.",
		RefType: "booking",
		RefID:   *p.BookingID,
	})
}

func (s *WebhookService) applyPaymentFailed(ctx context.Context, tx *gorm.DB, ev processor.Event) error {
	d := ev.PaymentIntent

	var p payments.PaymentIntent
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&p, "processor_ref = ?", d.IntentRef).Error; err != nil {
		return err
	}

	// Never downgrade a capture that already succeeded; a late failure event
	// for an earlier attempt is stale.
	if p.Status == payments.StatusSucceeded || p.Status == payments.StatusFailed {
		return nil
	}

	now := time.Now()
	msg := "processor webhook: payment_failed"
	if d.FailureReason != "" {
		msg = truncate(d.FailureReason, 250)
	}
	if err := tx.WithContext(ctx).Model(&payments.PaymentIntent{}).
		Where("id = ? AND status NOT IN ?", p.ID, []string{payments.StatusSucceeded, payments.StatusFailed}).
		Updates(map[string]any{
			"status":        payments.StatusFailed,
			"error_message": msg,
			"updated_at":    now,
		}).Error; err != nil {
		return err
	}

	return notifications.Ensure(ctx, tx, notifications.Notification{
		UserID:  p.CustomerID,
		Type:    notifications.TypePaymentFailed,
		Title:   "Payment failed",
		Body:    "Your payment could not be completed. Please try again.",
		RefType: "payment_intent",
		RefID:   p.ID,
	})
}

func (s *WebhookService) applyPaymentCanceled(ctx context.Context, tx *gorm.DB, ev processor.Event) error {
	d := ev.PaymentIntent

	var p payments.PaymentIntent
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&p, "processor_ref = ?", d.IntentRef).Error; err != nil {
		return err
	}
	if p.Status == payments.StatusSucceeded || p.Status == payments.StatusCanceled {
		return nil
	}

	return tx.WithContext(ctx).Model(&payments.PaymentIntent{}).
		Where("id = ? AND status NOT IN ?", p.ID, []string{payments.StatusSucceeded, payments.StatusCanceled}).
		Updates(map[string]any{
			"status":     payments.StatusCanceled,
			"updated_at": time.Now(),
		}).Error
}

func (s *WebhookService) applyPaymentRequiresAction(ctx context.Context, tx *gorm.DB, ev processor.Event) error {
	d := ev.PaymentIntent

	return tx.WithContext(ctx).Model(&payments.PaymentIntent{}).
		Where("processor_ref = ? AND status IN ?", d.IntentRef,
			[]string{payments.StatusRequiresAction, payments.StatusRequiresCapture}).
		Updates(map[string]any{
			"status":     payments.StatusRequiresAction,
			"updated_at": time.Now(),
		}).Error
}

func (s *WebhookService) applyAccountUpdated(ctx context.Context, tx *gorm.DB, ev processor.Event) error {
	d := ev.Account

	var acc accounts.ProviderAccount
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&acc, "stripe_account_id = ?", d.AccountRef).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Account belongs to nobody we know; ack rather than retry forever.
			s.logger.WarnContext(ctx, "account event for unknown account", "account_ref", d.AccountRef)
			return nil
		}
		return err
	}

	status := accounts.StatusPending
	if d.ChargesEnabled && d.DetailsSubmitted {
		status = accounts.StatusActive
	}

	if err := tx.WithContext(ctx).Model(&accounts.ProviderAccount{}).
		Where("id = ?", acc.ID).
		Updates(map[string]any{
			"stripe_charges_enabled":   d.ChargesEnabled,
			"stripe_details_submitted": d.DetailsSubmitted,
			"account_status":           status,
			"updated_at":               time.Now(),
		}).Error; err != nil {
		return err
	}

	if status == accounts.StatusActive && acc.AccountStatus != accounts.StatusActive {
		return notifications.Ensure(ctx, tx, notifications.Notification{
			UserID:  acc.ID,
			Type:    notifications.TypeAccountActive,
			Title:   "Payouts enabled",
			Body:    "Your account is verified and you can now accept bookings.",
			RefType: "account",
			RefID:   acc.ID,
		})
	}
	return nil
}

func (s *WebhookService) applyPayoutPaid(ctx context.Context, tx *gorm.DB, ev processor.Event) error {
	d := ev.Payout

	var rec payouts.PayoutRecord
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&rec, "transfer_ref = ?", d.TransferRef).Error; err != nil {
		return err // not found: retry, the initiate path may still be writing
	}

	if rec.Status == payouts.StatusCompleted {
		return nil
	}

	paidAt := time.Now()
	if d.ArrivalDate > 0 {
		paidAt = time.Unix(d.ArrivalDate, 0)
	}
	res := tx.WithContext(ctx).Model(&payouts.PayoutRecord{}).
		Where("id = ? AND status = ?", rec.ID, payouts.StatusProcessing).
		Updates(map[string]any{
			"status":             payouts.StatusCompleted,
			"actual_payout_date": &paidAt,
			"updated_at":         time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Row left processing since the lock, most likely marked failed. Keep
		// the local verdict and never tell the provider money arrived.
		s.logger.WarnContext(ctx, "payout.paid for non-processing payout, ignoring",
			"payout_id", rec.ID, "status", rec.Status, "transfer_ref", d.TransferRef)
		return nil
	}

	return notifications.Ensure(ctx, tx, notifications.Notification{
		UserID:  rec.ProviderID,
		Type:    notifications.TypePayoutCompleted,
		Title:   "Payout sent",
		Body:    money.FormatMoney(rec.Currency, rec.NetCents) + " is on its way to your bank.",
		RefType: "payout",
		RefID:   rec.ID,
	})
}

func (s *WebhookService) applyPayoutFailed(ctx context.Context, tx *gorm.DB, ev processor.Event) error {
	d := ev.Payout

	var rec payouts.PayoutRecord
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&rec, "transfer_ref = ?", d.TransferRef).Error; err != nil {
		return err
	}

	if rec.Status == payouts.StatusFailed {
		return nil
	}
	if rec.Status == payouts.StatusCompleted {
		// Stale failure after a recorded completion; keep the completion.
		s.logger.WarnContext(ctx, "payout.failed after completion, ignoring",
			"payout_id", rec.ID, "transfer_ref", d.TransferRef)
		return nil
	}

	reason := "processor webhook: payout_failed"
	if d.FailureReason != "" {
		reason = truncate(d.FailureReason, 250)
	}
	res := tx.WithContext(ctx).Model(&payouts.PayoutRecord{}).
		Where("id = ? AND status = ?", rec.ID, payouts.StatusProcessing).
		Updates(map[string]any{
			"status":         payouts.StatusFailed,
			"failure_reason": reason,
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return nil
	}

	return notifications.Ensure(ctx, tx, notifications.Notification{
		UserID:  rec.ProviderID,
		Type:    notifications.TypePayoutFailed,
		Title:   "Payout failed",
		Body:    "Your payout of " + money.FormatMoney(rec.Currency, rec.NetCents) + " failed. Our team has been notified.",
		RefType: "payout",
		RefID:   rec.ID,
	})
}

func (s *WebhookService) applySubscription(ctx context.Context, tx *gorm.DB, ev processor.Event) error {
	d := ev.Subscription
	if d.SubscriptionRef == "" {
		return fmt.Errorf("subscription event without subscription id")
	}
	now := time.Now()

	var sub subscriptions.ProviderSubscription
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&sub, "subscription_ref = ?", d.SubscriptionRef).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		providerID := d.Metadata["provider_id"]
		if providerID == "" {
			// Nothing to attach the subscription to; ack.
			s.logger.WarnContext(ctx, "subscription event without provider metadata", "ref", d.SubscriptionRef)
			return nil
		}
		sub = subscriptions.ProviderSubscription{
			ID:              uuid.NewString(),
			ProviderID:      providerID,
			SubscriptionRef: d.SubscriptionRef,
			Status:          d.Status,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if d.CurrentPeriodEnd > 0 {
			t := time.Unix(d.CurrentPeriodEnd, 0)
			sub.CurrentPeriodEnd = &t
		}
		if cerr := tx.WithContext(ctx).Create(&sub).Error; cerr != nil {
			if errors.Is(cerr, gorm.ErrDuplicatedKey) || isDup(cerr) {
				return nil
			}
			return cerr
		}
		return nil
	}

	updates := map[string]any{
		"status":     d.Status,
		"updated_at": now,
	}
	if d.CurrentPeriodEnd > 0 {
		updates["current_period_end"] = time.Unix(d.CurrentPeriodEnd, 0)
	}
	if ev.Type == processor.EvSubscriptionDeleted {
		updates["status"] = subscriptions.StatusCanceled
		updates["canceled_at"] = &now
	}

	return tx.WithContext(ctx).Model(&subscriptions.ProviderSubscription{}).
		Where("id = ?", sub.ID).
		Updates(updates).Error
}

func (s *WebhookService) applyInvoice(ctx context.Context, tx *gorm.DB, ev processor.Event) error {
	d := ev.Invoice
	if d.SubscriptionRef == "" {
		// One-off invoice; nothing of ours to reconcile.
		return nil
	}

	var sub subscriptions.ProviderSubscription
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&sub, "subscription_ref = ?", d.SubscriptionRef).Error; err != nil {
		return err // subscription event may not have landed yet; retry
	}
	if sub.Status == subscriptions.StatusCanceled {
		return nil
	}

	status := subscriptions.StatusActive
	if ev.Type == processor.EvInvoicePayFailed {
		status = subscriptions.StatusPastDue
	}

	return tx.WithContext(ctx).Model(&subscriptions.ProviderSubscription{}).
		Where("id = ? AND status <> ?", sub.ID, subscriptions.StatusCanceled).
		Updates(map[string]any{
			"status":     status,
			"updated_at": time.Now(),
		}).Error
}

func isDup(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}

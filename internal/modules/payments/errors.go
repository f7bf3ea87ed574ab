package payments

import "errors"

var (
	// ErrPaymentSetupFailed: the processor was unreachable or rejected intent
	// creation. Nothing was persisted; the client may retry with the same key.
	ErrPaymentSetupFailed = errors.New("payment setup failed")

	// ErrCaptureFailed: the capture itself was refused. No money moved and no
	// booking exists; surfaced to the user as "payment failed, try again".
	ErrCaptureFailed = errors.New("payment capture failed")

	// ErrOrphanedCapture: money was captured but the booking row could not be
	// written. This must never be swallowed; the intent stays succeeded and
	// unlinked so the reconciliation report picks it up.
	ErrOrphanedCapture = errors.New("captured payment has no booking")

	ErrIntentNotFound      = errors.New("payment intent not found")
	ErrIntentNotCapturable = errors.New("payment intent not capturable")
	ErrProviderNotBookable = errors.New("provider cannot accept bookings")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidInput        = errors.New("missing required fields")
)

package payouts

import "errors"

var (
	ErrNotFound       = errors.New("payout not found")
	ErrNotRetryable   = errors.New("payout not in a retryable state")
	ErrTransferFailed = errors.New("processor refused transfer")
	ErrBelowMinimum   = errors.New("net amount below payout minimum")
)

package processor

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Event types the reconciliation engine dispatches on. Everything else parses
// into an event with Known=false and is acknowledged without effect.
const (
	EvPaymentSucceeded      = "payment_intent.succeeded"
	EvPaymentFailed         = "payment_intent.payment_failed"
	EvPaymentCanceled       = "payment_intent.canceled"
	EvPaymentRequiresAction = "payment_intent.requires_action"
	EvAccountUpdated        = "account.updated"
	EvCapabilityUpdated     = "capability.updated"
	EvPayoutPaid            = "payout.paid"
	EvPayoutFailed          = "payout.failed"
	EvSubscriptionCreated   = "customer.subscription.created"
	EvSubscriptionUpdated   = "customer.subscription.updated"
	EvSubscriptionDeleted   = "customer.subscription.deleted"
	EvInvoicePaySucceeded   = "invoice.payment_succeeded"
	EvInvoicePayFailed      = "invoice.payment_failed"
)

type PaymentIntentData struct {
	IntentRef     string            `json:"id"`
	AmountCents   int64             `json:"amount"`
	Currency      string            `json:"currency"`
	Status        string            `json:"status"`
	FailureReason string            `json:"failure_reason,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

type AccountData struct {
	AccountRef       string `json:"id"`
	ChargesEnabled   bool   `json:"charges_enabled"`
	DetailsSubmitted bool   `json:"details_submitted"`
}

type PayoutData struct {
	TransferRef   string            `json:"id"`
	AmountCents   int64             `json:"amount"`
	Currency      string            `json:"currency"`
	Status        string            `json:"status"`
	FailureReason string            `json:"failure_reason,omitempty"`
	ArrivalDate   int64             `json:"arrival_date,omitempty"` // unix
	Metadata      map[string]string `json:"metadata,omitempty"`
}

type SubscriptionData struct {
	SubscriptionRef  string            `json:"id"`
	CustomerRef      string            `json:"customer"`
	Status           string            `json:"status"`
	CurrentPeriodEnd int64             `json:"current_period_end,omitempty"` // unix
	Metadata         map[string]string `json:"metadata,omitempty"`
}

type InvoiceData struct {
	InvoiceRef      string `json:"id"`
	SubscriptionRef string `json:"subscription"`
	AmountCents     int64  `json:"amount_due"`
	Currency        string `json:"currency"`
}

// Event is the decoded webhook envelope. Exactly one payload pointer is set
// for known types; unknown types keep only ID/Type/Raw.
type Event struct {
	ID    string
	Type  string
	Known bool

	PaymentIntent *PaymentIntentData
	Account       *AccountData
	Payout        *PayoutData
	Subscription  *SubscriptionData
	Invoice       *InvoiceData

	Raw json.RawMessage
}

type envelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

var ErrMalformedEvent = errors.New("malformed webhook event")

// ParseEvent decodes the {id, type, data:{object}} envelope into the typed
// union above. Call VerifySignature on the raw body first.
func ParseEvent(body []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if env.ID == "" || env.Type == "" {
		return Event{}, fmt.Errorf("%w: missing id or type", ErrMalformedEvent)
	}

	ev := Event{ID: env.ID, Type: env.Type, Raw: env.Data.Object}

	switch env.Type {
	case EvPaymentSucceeded, EvPaymentFailed, EvPaymentCanceled, EvPaymentRequiresAction:
		var d PaymentIntentData
		if err := json.Unmarshal(env.Data.Object, &d); err != nil {
			return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		if d.IntentRef == "" {
			return Event{}, fmt.Errorf("%w: payment event without intent id", ErrMalformedEvent)
		}
		ev.PaymentIntent = &d
		ev.Known = true

	case EvAccountUpdated, EvCapabilityUpdated:
		var d AccountData
		if err := json.Unmarshal(env.Data.Object, &d); err != nil {
			return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		if d.AccountRef == "" {
			return Event{}, fmt.Errorf("%w: account event without account id", ErrMalformedEvent)
		}
		ev.Account = &d
		ev.Known = true

	case EvPayoutPaid, EvPayoutFailed:
		var d PayoutData
		if err := json.Unmarshal(env.Data.Object, &d); err != nil {
			return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		if d.TransferRef == "" {
			return Event{}, fmt.Errorf("%w: payout event without transfer id", ErrMalformedEvent)
		}
		ev.Payout = &d
		ev.Known = true

	case EvSubscriptionCreated, EvSubscriptionUpdated, EvSubscriptionDeleted:
		var d SubscriptionData
		if err := json.Unmarshal(env.Data.Object, &d); err != nil {
			return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		ev.Subscription = &d
		ev.Known = true

	case EvInvoicePaySucceeded, EvInvoicePayFailed:
		var d InvoiceData
		if err := json.Unmarshal(env.Data.Object, &d); err != nil {
			return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		ev.Invoice = &d
		ev.Known = true
	}

	return ev, nil
}

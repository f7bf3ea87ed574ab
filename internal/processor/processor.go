package processor

import "context"

// Intent statuses as the processor reports them. Internal rows mirror these
// values verbatim so webhook reconciliation can compare without mapping.
const (
	IntentRequiresAction  = "requires_action"
	IntentRequiresCapture = "requires_capture"
	IntentSucceeded       = "succeeded"
	IntentCanceled        = "canceled"
	IntentFailed          = "failed"
)

// Transfer statuses.
const (
	TransferPending = "pending"
	TransferPaid    = "paid"
	TransferFailed  = "failed"
)

type CreateIntentRequest struct {
	AmountCents    int64
	Currency       string
	CustomerRef    string
	IdempotencyKey string
	// Metadata is echoed back on webhook events; used to locate internal rows.
	Metadata map[string]string
}

type CreateIntentResponse struct {
	IntentRef    string
	ClientSecret string
	Status       string
}

type CaptureRequest struct {
	IntentRef      string
	IdempotencyKey string
}

type CaptureResponse struct {
	Status string
}

type CancelIntentRequest struct {
	IntentRef string
}

type CreateTransferRequest struct {
	AmountCents    int64
	Currency       string
	DestinationRef string // connected provider account
	IdempotencyKey string
	Metadata       map[string]string
}

type CreateTransferResponse struct {
	TransferRef string
	Status      string
}

type AccountLinkRequest struct {
	AccountRef string
	ReturnURL  string
	RefreshURL string
}

type AccountLinkResponse struct {
	URL string
}

// Client is the outbound surface to the payment processor. Every call that
// moves money takes an idempotency key; retries with the same key are safe.
type Client interface {
	Name() string
	CreateIntent(ctx context.Context, req CreateIntentRequest) (CreateIntentResponse, error)
	CaptureIntent(ctx context.Context, req CaptureRequest) (CaptureResponse, error)
	CancelIntent(ctx context.Context, req CancelIntentRequest) error
	CreateTransfer(ctx context.Context, req CreateTransferRequest) (CreateTransferResponse, error)
	CreateAccountLink(ctx context.Context, req AccountLinkRequest) (AccountLinkResponse, error)
}

package payments

import "time"

// Intent statuses mirror the processor's values verbatim.
const (
	StatusRequiresAction  = "requires_action"
	StatusRequiresCapture = "requires_capture"
	StatusSucceeded       = "succeeded"
	StatusCanceled        = "canceled"
	StatusFailed          = "failed"
)

// PaymentIntent is one authorization attempt. Rows are never deleted; an
// abandoned or failed intent stays for audit. BookingID is nil until the
// capture coordinator links the booking it paid for; a succeeded intent with
// a nil BookingID older than a few minutes is an orphaned capture and shows
// up on the reconciliation report.
type PaymentIntent struct {
	ID           string  `gorm:"type:char(36);primaryKey"`
	ProcessorRef *string `gorm:"type:varchar(128);uniqueIndex:ux_payment_intents_processor_ref"`
	ClientSecret *string `gorm:"type:varchar(255)"`

	BookingID *string `gorm:"type:char(36);index:ix_payment_intents_booking_id"`

	CustomerID string `gorm:"type:char(36);not null;uniqueIndex:ux_payment_intents_customer_key,priority:1"`
	ProviderID string `gorm:"type:char(36);not null"`
	ServiceID  string `gorm:"type:char(36);not null"`

	BaseCents  int64  `gorm:"not null"`
	FeeCents   int64  `gorm:"not null"`
	TotalCents int64  `gorm:"not null"`
	Currency   string `gorm:"type:char(3);not null"`

	Status         string  `gorm:"type:varchar(32);not null;index:ix_payment_intents_status"`
	IdempotencyKey string  `gorm:"type:varchar(64);not null;uniqueIndex:ux_payment_intents_customer_key,priority:2"`
	ErrorMessage   *string `gorm:"type:varchar(255)"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (PaymentIntent) TableName() string { return "payment_intents" }

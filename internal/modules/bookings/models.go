package bookings

import "time"

const (
	StatusPending    = "pending"
	StatusConfirmed  = "confirmed"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
	StatusDeclined   = "declined"
	StatusExpired    = "expired"
)

const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
	PaymentFailed  = "failed"
)

// Booking is created only after the customer's payment is captured, so a row
// here always has money behind it. Cancellation is a terminal status, never a
// delete. Invariant: TotalCents == BaseCents + FeeCents, fixed at creation.
type Booking struct {
	ID         string `gorm:"type:char(36);primaryKey"`
	CustomerID string `gorm:"type:char(36);not null;index:ix_bookings_customer_id"`
	ProviderID string `gorm:"type:char(36);not null;index:ix_bookings_provider_id"`
	ServiceID  string `gorm:"type:char(36);not null"`

	ScheduledStart time.Time `gorm:"not null"`
	ScheduledEnd   time.Time `gorm:"not null"`

	Status        string `gorm:"type:varchar(32);not null;index:ix_bookings_status"`
	PaymentStatus string `gorm:"type:varchar(16);not null"`

	BaseCents  int64  `gorm:"not null"`
	FeeCents   int64  `gorm:"not null"`
	TotalCents int64  `gorm:"not null"`
	Currency   string `gorm:"type:char(3);not null"`

	// Processor-side payment intent ref; 1:1 with payment_intents rows.
	IntentRef string `gorm:"type:varchar(128);not null;uniqueIndex:ux_bookings_intent_ref"`

	ReceiptKey *string `gorm:"type:varchar(255)"`
	ReceiptURL *string `gorm:"type:varchar(512)"`

	CancelReason *string    `gorm:"type:varchar(255)"`
	CompletedAt  *time.Time
	CreatedAt    time.Time  `gorm:"not null"`
	UpdatedAt    time.Time  `gorm:"not null"`
}

func (Booking) TableName() string { return "bookings" }

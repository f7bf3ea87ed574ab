package notifications

import "time"

const (
	TypeBookingPaid      = "booking_paid"
	TypeBookingConfirmed = "booking_confirmed"
	TypeBookingCancelled = "booking_cancelled"
	TypePaymentFailed    = "payment_failed"
	TypePayoutInitiated  = "payout_initiated"
	TypePayoutCompleted  = "payout_completed"
	TypePayoutFailed     = "payout_failed"
	TypeAccountActive    = "account_active"
)

type Notification struct {
	ID     string `gorm:"type:char(36);primaryKey"`
	UserID string `gorm:"type:char(36);not null;index:ix_notifications_user_id"`
	Type   string `gorm:"type:varchar(64);not null"`
	Title  string `gorm:"type:varchar(255);not null"`
	Body   string `gorm:"type:varchar(1024);not null"`

	// RefType/RefID point at the row this notification is about; together with
	// Type they form the dedupe identity for webhook redelivery.
	RefType string `gorm:"type:varchar(32);not null"`
	RefID   string `gorm:"type:char(36);not null;index:ix_notifications_ref"`

	ReadAt    *time.Time
	CreatedAt time.Time  `gorm:"not null"`
}

func (Notification) TableName() string { return "notifications" }

package payouts

import "time"

const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// PayoutRecord tracks one transfer of a provider's share for one completed
// booking. The unique index on booking_id is the at-most-one guarantee; a
// failed payout is retried by flipping the same row back to processing, never
// by inserting a second one.
type PayoutRecord struct {
	ID         string `gorm:"type:char(36);primaryKey"`
	ProviderID string `gorm:"type:char(36);not null;index:ix_provider_payouts_provider_id"`
	BookingID  string `gorm:"type:char(36);not null;uniqueIndex:ux_provider_payouts_booking_id"`

	GrossCents int64  `gorm:"not null"`
	FeeCents   int64  `gorm:"not null"`
	NetCents   int64  `gorm:"not null"`
	Currency   string `gorm:"type:char(3);not null"`

	Status   string `gorm:"type:varchar(16);not null;index:ix_provider_payouts_status"`
	Attempts int    `gorm:"not null;default:1"`

	ExpectedPayoutDate time.Time  `gorm:"not null"`
	ActualPayoutDate   *time.Time

	TransferRef   *string `gorm:"type:varchar(128);uniqueIndex:ux_provider_payouts_transfer_ref"`
	FailureReason *string `gorm:"type:varchar(255)"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (PayoutRecord) TableName() string { return "provider_payouts" }

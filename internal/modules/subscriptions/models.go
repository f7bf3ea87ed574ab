package subscriptions

import "time"

const (
	StatusActive   = "active"
	StatusPastDue  = "past_due"
	StatusCanceled = "canceled"
)

// ProviderSubscription mirrors the provider's premium subscription as the
// processor reports it. Rows are written only by webhook reconciliation;
// there is no checkout flow on this side.
type ProviderSubscription struct {
	ID              string `gorm:"type:char(36);primaryKey"`
	ProviderID      string `gorm:"type:char(36);not null;index:ix_provider_subscriptions_provider_id"`
	SubscriptionRef string `gorm:"type:varchar(128);not null;uniqueIndex:ux_provider_subscriptions_ref"`
	Status          string `gorm:"type:varchar(32);not null"`

	CurrentPeriodEnd *time.Time
	CanceledAt       *time.Time

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (ProviderSubscription) TableName() string { return "provider_subscriptions" }

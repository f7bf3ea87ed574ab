package accounts

import "time"

const (
	StatusPending = "pending"
	StatusActive  = "active"
)

// ProviderAccount is the provider-profile subset this subsystem owns: the
// connected processor account and its capability flags. Only webhook
// reconciliation mutates the stripe_* columns; everything else reads them.
// A provider with charges disabled must not accept new bookings.
type ProviderAccount struct {
	ID string `gorm:"type:char(36);primaryKey"`

	Role        string `gorm:"type:varchar(16);not null;index:ix_profiles_role"`
	DisplayName string `gorm:"type:varchar(255);not null"`

	StripeAccountID        *string `gorm:"type:varchar(128);uniqueIndex:ux_profiles_stripe_account_id"`
	StripeChargesEnabled   bool    `gorm:"not null;default:false"`
	StripeDetailsSubmitted bool    `gorm:"not null;default:false"`
	AccountStatus          string  `gorm:"type:varchar(16);not null;default:'pending'"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (ProviderAccount) TableName() string { return "profiles" }

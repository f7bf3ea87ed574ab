package accounts

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/processor"
)

var (
	ErrNotFound     = errors.New("provider account not found")
	ErrNotOnboarded = errors.New("provider has no connected account")
)

type Service struct {
	db        *gorm.DB
	processor processor.Client
	returnURL string
}

func NewService(db *gorm.DB, p processor.Client, returnURL string) *Service {
	return &Service{db: db, processor: p, returnURL: returnURL}
}

func (s *Service) Get(ctx context.Context, providerID string) (ProviderAccount, error) {
	var acc ProviderAccount
	err := s.db.WithContext(ctx).First(&acc, "id = ?", providerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ProviderAccount{}, ErrNotFound
	}
	return acc, err
}

// CanAcceptBookings is the flag the access-control layer gates on. Exposed
// here so every caller reads the same definition.
func (a ProviderAccount) CanAcceptBookings() bool {
	return a.StripeAccountID != nil && a.StripeChargesEnabled
}

// OnboardingLink asks the processor for a fresh hosted-onboarding URL for the
// provider's connected account.
func (s *Service) OnboardingLink(ctx context.Context, providerID string) (string, error) {
	acc, err := s.Get(ctx, providerID)
	if err != nil {
		return "", err
	}
	if acc.StripeAccountID == nil {
		return "", ErrNotOnboarded
	}

	resp, err := s.processor.CreateAccountLink(ctx, processor.AccountLinkRequest{
		AccountRef: *acc.StripeAccountID,
		ReturnURL:  s.returnURL + "/onboarding/complete",
		RefreshURL: s.returnURL + "/onboarding/refresh",
	})
	if err != nil {
		return "", err
	}
	return resp.URL, nil
}

package money

import (
	"fmt"
	"math"
)

// Split is the fee breakdown fixed at booking-creation time. All amounts are
// minor units (pence/cents). Downstream code must read stored splits instead
// of recomputing them, so a config change never drifts a live booking.
type Split struct {
	BaseCents  int64
	FeeCents   int64
	TotalCents int64
}

// ComputeSplit derives the platform fee from the base price. Fee rounding is
// round-half-up on minor units.
func ComputeSplit(baseCents int64, feeRate float64) Split {
	fee := int64(math.Floor(float64(baseCents)*feeRate + 0.5))
	return Split{
		BaseCents:  baseCents,
		FeeCents:   fee,
		TotalCents: baseCents + fee,
	}
}

// FormatMoney renders minor units with a currency symbol for receipts and
// notification copy.
func FormatMoney(currency string, cents int64) string {
	major := float64(cents) / 100.0
	switch currency {
	case "GBP":
		return fmt.Sprintf("£%.2f", major)
	case "EUR":
		return fmt.Sprintf("€%.2f", major)
	case "USD":
		return fmt.Sprintf("$%.2f", major)
	default:
		return fmt.Sprintf("%.2f %s", major, currency)
	}
}

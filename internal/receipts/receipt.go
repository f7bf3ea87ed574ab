package receipts

import (
	"bytes"
	"fmt"

	"github.com/phpdave11/gofpdf"

	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/modules/bookings"
	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/shared/money"
)

type Generator struct {
	AppName string
}

func NewGenerator(appName string) *Generator {
	if appName == "" {
		appName = "Zova"
	}
	return &Generator{AppName: appName}
}

// BookingReceipt renders the payment receipt from the amounts stored on the
// booking row. It never recomputes the split; what was charged is what prints.
func (g *Generator) BookingReceipt(b bookings.Booking) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Payment Receipt", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, g.AppName+" - Payment Receipt")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Receipt No    : RCP-%s", shortID(b.ID)),
		fmt.Sprintf("Booking Ref   : %s", b.ID),
		fmt.Sprintf("Date          : %s", b.CreatedAt.Format("2006-01-02 15:04")),
		fmt.Sprintf("Scheduled     : %s - %s",
			b.ScheduledStart.Format("2006-01-02 15:04"),
			b.ScheduledEnd.Format("15:04")),
		"",
		fmt.Sprintf("Service amount : %s", money.FormatMoney(b.Currency, b.BaseCents)),
		fmt.Sprintf("Platform fee   : %s", money.FormatMoney(b.Currency, b.FeeCents)),
		fmt.Sprintf("Total paid     : %s", money.FormatMoney(b.Currency, b.TotalCents)),
		"",
		fmt.Sprintf("Payment status : %s", b.PaymentStatus),
	}
	for _, line := range lines {
		pdf.Cell(0, 7, line)
		pdf.Ln(7)
	}

	pdf.Ln(8)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.Cell(0, 6, "Amounts shown are the amounts charged at booking time.")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func shortID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

package invoice

import (
	"github.com/dustin/go-humanize"
	"github.com/tay-dev-lab/voice-to-invoice/internal/domain"
)

// ItemAmounts holds the derived amounts for one line item. All rates
// apply to the net amount (value after discount).
type ItemAmounts struct {
	Net       float64
	VAT       float64
	CIS       float64
	Retention float64
	Gross     float64
	Payable   float64
}

// Totals aggregates amounts across all items on an invoice.
type Totals struct {
	Net        float64
	VAT        float64
	CIS        float64
	Retention  float64
	Gross      float64
	Deductions float64
	Payable    float64
}

// AmountsFor computes the derived amounts for a single item.
func AmountsFor(item domain.InvoiceItem) ItemAmounts {
	net := item.Value * (1 - item.DiscountRate/100)
	vat := net * item.VATRate / 100
	cis := net * item.CISRate / 100
	retention := net * item.RetentionRate / 100

	return ItemAmounts{
		Net:       net,
		VAT:       vat,
		CIS:       cis,
		Retention: retention,
		Gross:     net + vat,
		Payable:   net + vat - cis - retention,
	}
}

// TotalsFor aggregates derived amounts across an invoice's items.
func TotalsFor(inv *domain.Invoice) Totals {
	var t Totals
	for _, item := range inv.Items {
		a := AmountsFor(item)
		t.Net += a.Net
		t.VAT += a.VAT
		t.CIS += a.CIS
		t.Retention += a.Retention
	}
	t.Gross = t.Net + t.VAT
	t.Deductions = t.CIS + t.Retention
	t.Payable = t.Gross - t.Deductions
	return t
}

// formatCurrency renders an amount as pounds with thousands separators.
func formatCurrency(amount float64) string {
	return "£" + humanize.FormatFloat("#,###.##", amount)
}

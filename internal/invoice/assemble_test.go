package invoice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tay-dev-lab/voice-to-invoice/internal/domain"
)

func completedSession() *domain.Session {
	s := domain.NewSession("abcd1234", time.Hour)
	s.Step = domain.StepDone
	s.ClientInfo = &domain.ClientInfo{Name: "Acme Ltd", Address: "1 High St"}
	s.Details = &domain.InvoiceDetails{Type: domain.InvoiceTypeDeposit, DueDate: domain.NewDate(2025, 1, 15)}
	s.Items = []domain.InvoiceItem{
		{Description: "Labour", Value: 1000, VATRate: 20, CISRate: 30},
		{Description: "Materials", Value: 450.25, DiscountRate: 10},
	}
	return s
}

func TestAssembleCompletedSession(t *testing.T) {
	s := completedSession()

	inv := Assemble(s)

	require.NotNil(t, inv)
	assert.Equal(t, "INV-ABCD1234", inv.ReferenceNumber)
	assert.Equal(t, *s.ClientInfo, inv.Client)
	assert.Equal(t, *s.Details, inv.Details)
	assert.Equal(t, s.Items, inv.Items)
}

func TestAssembleCopiesItems(t *testing.T) {
	s := completedSession()

	inv := Assemble(s)
	require.NotNil(t, inv)

	// Mutating the session afterwards must not reach the invoice.
	s.Items[0].Value = 9999
	assert.Equal(t, 1000.0, inv.Items[0].Value)
}

func TestAssembleMidFlowReturnsNil(t *testing.T) {
	s := completedSession()
	s.Step = domain.StepItemVAT

	assert.Nil(t, Assemble(s))
}

func TestAssembleMissingSections(t *testing.T) {
	t.Run("no client", func(t *testing.T) {
		s := completedSession()
		s.ClientInfo = nil
		assert.Nil(t, Assemble(s))
	})
	t.Run("no details", func(t *testing.T) {
		s := completedSession()
		s.Details = nil
		assert.Nil(t, Assemble(s))
	})
	t.Run("no items", func(t *testing.T) {
		s := completedSession()
		s.Items = nil
		assert.Nil(t, Assemble(s))
	})
	t.Run("nil session", func(t *testing.T) {
		assert.Nil(t, Assemble(nil))
		assert.False(t, CanGenerate(nil))
	})
}

func TestAmountsFor(t *testing.T) {
	item := domain.InvoiceItem{
		Description:   "Labour",
		Value:         1000,
		VATRate:       20,
		CISRate:       30,
		RetentionRate: 5,
		DiscountRate:  10,
	}

	a := AmountsFor(item)

	assert.InDelta(t, 900.0, a.Net, 0.001)    // 1000 less 10% discount
	assert.InDelta(t, 180.0, a.VAT, 0.001)    // 20% of net
	assert.InDelta(t, 270.0, a.CIS, 0.001)    // 30% of net
	assert.InDelta(t, 45.0, a.Retention, 0.001)
	assert.InDelta(t, 1080.0, a.Gross, 0.001)
	assert.InDelta(t, 765.0, a.Payable, 0.001)
}

func TestAmountsForZeroRates(t *testing.T) {
	a := AmountsFor(domain.InvoiceItem{Description: "Labour", Value: 250})

	assert.InDelta(t, 250.0, a.Net, 0.001)
	assert.Zero(t, a.VAT)
	assert.InDelta(t, 250.0, a.Gross, 0.001)
	assert.InDelta(t, 250.0, a.Payable, 0.001)
}

func TestTotalsFor(t *testing.T) {
	inv := Assemble(completedSession())
	require.NotNil(t, inv)

	totals := TotalsFor(inv)

	// Item 1: net 1000, VAT 200, CIS 300. Item 2: net 405.225.
	assert.InDelta(t, 1405.225, totals.Net, 0.001)
	assert.InDelta(t, 200.0, totals.VAT, 0.001)
	assert.InDelta(t, 300.0, totals.CIS, 0.001)
	assert.InDelta(t, 1605.225, totals.Gross, 0.001)
	assert.InDelta(t, 300.0, totals.Deductions, 0.001)
	assert.InDelta(t, 1305.225, totals.Payable, 0.001)
}

func TestFormatCurrency(t *testing.T) {
	assert.Equal(t, "£1,250.50", formatCurrency(1250.5))
	assert.Equal(t, "£0.00", formatCurrency(0))
	assert.Equal(t, "£1,000,000.00", formatCurrency(1e6))
}

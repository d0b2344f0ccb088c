package domain

import (
	"fmt"
	"strings"
	"time"
)

// InvoiceType distinguishes the two supported invoice kinds.
type InvoiceType string

const (
	InvoiceTypeDeposit        InvoiceType = "deposit"
	InvoiceTypeWorksCompleted InvoiceType = "works_completed"
)

// Valid reports whether the invoice type is one of the supported kinds.
func (t InvoiceType) Valid() bool {
	return t == InvoiceTypeDeposit || t == InvoiceTypeWorksCompleted
}

// Date is a calendar date serialized as "2006-01-02".
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

// NewDate builds a Date from year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a "2006-01-02" string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{t}, nil
}

// MarshalJSON renders the date as a "2006-01-02" JSON string.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

// UnmarshalJSON parses a "2006-01-02" JSON string.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

// ClientInfo holds the party the invoice is billed to.
type ClientInfo struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// InvoiceDetails holds the invoice kind and the payment due date.
type InvoiceDetails struct {
	Type    InvoiceType `json:"type"`
	DueDate Date        `json:"due_date"`
}

// InvoiceItem is a single line item. Rates are percentages in [0,100]
// and default to zero when the speaker never mentions them.
type InvoiceItem struct {
	Description   string  `json:"description"`
	Value         float64 `json:"value"`
	VATRate       float64 `json:"vat_rate"`
	CISRate       float64 `json:"cis_rate"`
	RetentionRate float64 `json:"retention_rate"`
	DiscountRate  float64 `json:"discount_rate"`
}

// Invoice is the immutable record assembled from a completed session,
// ready for handoff to the PDF renderer. Amount arithmetic belongs to
// the renderer; the invoice carries raw rates only.
type Invoice struct {
	ReferenceNumber string         `json:"reference_number"`
	Client          ClientInfo     `json:"client"`
	Details         InvoiceDetails `json:"details"`
	Items           []InvoiceItem  `json:"items"`
}

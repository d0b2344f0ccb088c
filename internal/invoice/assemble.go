// Package invoice assembles finished sessions into invoice records and
// renders them as PDF files.
package invoice

import (
	"github.com/tay-dev-lab/voice-to-invoice/internal/domain"
)

// CanGenerate reports whether a session holds everything an invoice
// needs. Callers are expected to check this before Assemble.
func CanGenerate(s *domain.Session) bool {
	return s != nil &&
		s.Terminal() &&
		s.ClientInfo != nil &&
		s.Details != nil &&
		len(s.Items) > 0
}

// Assemble builds the immutable invoice record from a terminal session.
// It returns nil, not an error, when the session has not reached the
// terminal step or is missing a required section; that is a precondition
// miss, not a failure. Items are copied in order, and the due date and
// reference number are carried over unchanged; no arithmetic happens
// here, the renderer computes amounts from the raw rates.
func Assemble(s *domain.Session) *domain.Invoice {
	if !CanGenerate(s) {
		return nil
	}

	items := make([]domain.InvoiceItem, len(s.Items))
	copy(items, s.Items)

	return &domain.Invoice{
		ReferenceNumber: s.ReferenceNumber,
		Client:          *s.ClientInfo,
		Details:         *s.Details,
		Items:           items,
	}
}

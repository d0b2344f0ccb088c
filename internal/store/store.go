// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/tay-dev-lab/voice-to-invoice/internal/domain"
)

// StoredInvoice is a completed invoice row, kept alongside the path of
// the PDF rendered from it.
type StoredInvoice struct {
	SessionID string
	Invoice   domain.Invoice
	PDFPath   string
	CreatedAt time.Time
}

// Repository defines the interface for persisting sessions and
// completed invoices.
type Repository interface {
	// GetSession retrieves a session by ID. Expired sessions are
	// deleted lazily on read; absent and expired both return (nil, nil).
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)

	// PutSession creates or replaces a session document.
	PutSession(ctx context.Context, session *domain.Session) error

	// DeleteSession removes a session.
	DeleteSession(ctx context.Context, sessionID string) error

	// CleanupExpiredSessions removes sessions past their TTL and
	// returns how many were deleted.
	CleanupExpiredSessions(ctx context.Context) (int64, error)

	// SaveInvoice stores a completed invoice for a session, replacing
	// any previous one.
	SaveInvoice(ctx context.Context, sessionID string, invoice *domain.Invoice, pdfPath string) error

	// GetInvoice retrieves the stored invoice for a session, or
	// (nil, nil) when none exists.
	GetInvoice(ctx context.Context, sessionID string) (*StoredInvoice, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}

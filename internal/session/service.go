// Package session exposes the step-flow session operations consumed by
// the HTTP layer: get-or-create, step submission, advancement, reset,
// and invoice-readiness checks.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tay-dev-lab/voice-to-invoice/internal/domain"
	"github.com/tay-dev-lab/voice-to-invoice/internal/flow"
	"github.com/tay-dev-lab/voice-to-invoice/internal/invoice"
	"github.com/tay-dev-lab/voice-to-invoice/internal/store"
)

var (
	// ErrSessionComplete signals a step submission against a terminal
	// session; the accumulated fields are frozen for assembly.
	ErrSessionComplete = errors.New("session is complete; no further steps accepted")

	// ErrStepMismatch signals a submission for a step other than the
	// session's current one.
	ErrStepMismatch = errors.New("submitted step does not match the session's current step")
)

// Service coordinates the flow engine and the persistent store. It does
// not lock across concurrent submissions for the same session ID; one
// client context per session is assumed.
type Service struct {
	repo store.Repository
	ttl  time.Duration
}

// New creates a session service with the given session TTL.
func New(repo store.Repository, ttl time.Duration) *Service {
	return &Service{repo: repo, ttl: ttl}
}

// GetOrCreate returns the session for an ID, creating it in its initial
// shape when absent or expired. New sessions are persisted immediately.
func (s *Service) GetOrCreate(ctx context.Context, sessionID string) (*domain.Session, error) {
	sess, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess != nil {
		return sess, nil
	}

	sess = domain.NewSession(sessionID, s.ttl)
	if err := s.repo.PutSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	slog.Info("created session", "session_id", sessionID)
	return sess, nil
}

// Start returns the session for an ID with a freshly minted token.
// Rotation invalidates any token issued earlier for the same session,
// closing a replay window for stale clients.
func (s *Service) Start(ctx context.Context, sessionID string) (*domain.Session, error) {
	sess, err := s.GetOrCreate(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	sess.Token = uuid.NewString()
	if err := s.repo.PutSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("rotate session token: %w", err)
	}
	return sess, nil
}

// Authorize reports whether a presented bearer token matches the
// session's current token.
func (s *Service) Authorize(sess *domain.Session, token string) bool {
	return sess.Token != "" && token == sess.Token
}

// SubmitStepResult validates and applies one step's extracted text,
// persisting the session write-through so a crash between steps leaves
// it resumable. Returns *flow.ValidationError (via errors.As) for bad
// input; the session and its persisted state are unchanged on failure.
func (s *Service) SubmitStepResult(ctx context.Context, sess *domain.Session, step domain.Step, raw string) error {
	if sess.Terminal() {
		return ErrSessionComplete
	}
	if step != sess.Step {
		return ErrStepMismatch
	}

	if err := flow.StoreStepResult(sess, step, raw); err != nil {
		return err
	}

	if err := s.repo.PutSession(ctx, sess); err != nil {
		return fmt.Errorf("persist step result: %w", err)
	}
	slog.Info("stored step result", "session_id", sess.SessionID, "step", step)
	return nil
}

// Advance moves the session to its next step and persists it.
func (s *Service) Advance(ctx context.Context, sess *domain.Session) (domain.Step, error) {
	next := flow.Advance(sess)
	if err := s.repo.PutSession(ctx, sess); err != nil {
		return next, fmt.Errorf("persist step advance: %w", err)
	}
	return next, nil
}

// Reset reinitializes a session in place and mints a new token. The
// reference number is re-derived from the session ID; derivation is
// deterministic, so the value survives the reset.
func (s *Service) Reset(ctx context.Context, sessionID string) (*domain.Session, error) {
	sess := domain.NewSession(sessionID, s.ttl)
	sess.Token = uuid.NewString()
	if err := s.repo.PutSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("reset session: %w", err)
	}
	slog.Info("reset session", "session_id", sessionID)
	return sess, nil
}

// CanGenerate reports whether the session has everything an invoice
// needs: terminal step, client info, invoice details, and ≥1 item.
func (s *Service) CanGenerate(sess *domain.Session) bool {
	return invoice.CanGenerate(sess)
}

// Assemble produces the immutable invoice for a terminal session, or
// nil when preconditions do not hold.
func (s *Service) Assemble(sess *domain.Session) *domain.Invoice {
	return invoice.Assemble(sess)
}

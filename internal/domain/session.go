// Package domain defines the data model for voice-driven invoice sessions.
package domain

import (
	"strings"
	"time"
)

// Session is the unit of conversation state. It accumulates invoice
// fields one step at a time and is persisted write-through after every
// successful step submission.
type Session struct {
	SessionID       string             `json:"session_id"`
	Step            Step               `json:"step"`
	ClientInfo      *ClientInfo        `json:"client_info,omitempty"`
	Details         *InvoiceDetails    `json:"invoice_details,omitempty"`
	Items           []InvoiceItem      `json:"items"`
	CurrentItem     *InvoiceItem       `json:"current_item,omitempty"`
	LastAddAnother  AddAnotherResponse `json:"last_add_another_response,omitempty"`
	ReferenceNumber string             `json:"reference_number"`
	Token           string             `json:"token,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	ExpiresAt       time.Time          `json:"expires_at"`
}

// NewSession returns a session in its initial shape. The reference
// number is derived deterministically from the session ID, so resetting
// a session re-derives the same value.
func NewSession(sessionID string, ttl time.Duration) *Session {
	now := time.Now().UTC()
	return &Session{
		SessionID:       sessionID,
		Step:            StepStart,
		Items:           []InvoiceItem{},
		ReferenceNumber: ReferenceNumber(sessionID),
		CreatedAt:       now,
		ExpiresAt:       now.Add(ttl),
	}
}

// ReferenceNumber derives the invoice reference for a session ID.
func ReferenceNumber(sessionID string) string {
	short := sessionID
	if len(short) > 8 {
		short = short[:8]
	}
	return "INV-" + strings.ToUpper(short)
}

// Expired reports whether the session TTL has elapsed.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Terminal reports whether the session has reached the done step.
func (s *Session) Terminal() bool {
	return s.Step == StepDone
}

// ScratchItem returns the in-progress line item, creating it on first use.
func (s *Session) ScratchItem() *InvoiceItem {
	if s.CurrentItem == nil {
		s.CurrentItem = &InvoiceItem{}
	}
	return s.CurrentItem
}

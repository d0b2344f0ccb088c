// Package flow owns the invoice conversation state machine: step
// ordering, per-step prompts, and validation of LLM-extracted results.
package flow

import (
	"log/slog"

	"github.com/tay-dev-lab/voice-to-invoice/internal/domain"
)

// MaxItems caps line items per invoice. The add_another loop forces the
// flow to done once the cap is reached, regardless of the user's answer.
const MaxItems = 30

var stepOrder = []domain.Step{
	domain.StepStart,
	domain.StepClientInfo,
	domain.StepInvoiceDetails,
	domain.StepItemDescription,
	domain.StepItemValue,
	domain.StepItemVAT,
	domain.StepItemCIS,
	domain.StepItemRetention,
	domain.StepItemDiscount,
	domain.StepAddAnother,
	domain.StepDone,
}

// Advance moves the session to its next step and returns it. The
// transition is deterministic given the current step and, for the item
// loop, the last add_another response. Unknown steps fail closed to done
// rather than erroring, as a floor against corrupt persisted state.
func Advance(s *domain.Session) domain.Step {
	if s.Step == domain.StepAddAnother {
		if s.LastAddAnother == domain.AddAnotherAdd && len(s.Items) < MaxItems {
			s.Step = domain.StepItemDescription
			s.CurrentItem = nil
			return s.Step
		}
		s.Step = domain.StepDone
		return s.Step
	}

	for i, step := range stepOrder {
		if step != s.Step {
			continue
		}
		if i < len(stepOrder)-1 {
			s.Step = stepOrder[i+1]
		}
		return s.Step
	}

	slog.Warn("unknown session step, forcing done", "session_id", s.SessionID, "step", s.Step)
	s.Step = domain.StepDone
	return s.Step
}

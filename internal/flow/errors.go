package flow

import (
	"fmt"

	"github.com/tay-dev-lab/voice-to-invoice/internal/domain"
)

// ValidationError is a recoverable, user-facing rejection of a step's
// input. The HTTP layer converts it into a retry prompt rather than a
// server error, so it must carry enough detail for the user to try again.
type ValidationError struct {
	Step    domain.Step
	Message string
	Example string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("step %s: %s", e.Step, e.Message)
}

func invalid(step domain.Step, message, example string) *ValidationError {
	return &ValidationError{Step: step, Message: message, Example: example}
}

package flow

import (
	"fmt"

	"github.com/tay-dev-lab/voice-to-invoice/internal/domain"
)

// rawJSONOnly is appended to every extraction prompt that expects a
// structured reply. The extractor has no schema negotiation with the
// model, only text matching, so the prompt must pin the output shape.
const rawJSONOnly = "Return raw JSON only, with no code fences and no commentary."

var userPrompts = map[domain.Step]string{
	domain.StepStart:           "Welcome! Let's create your invoice. Click 'Start Invoice' to begin.",
	domain.StepClientInfo:      "Please provide the client's name and address.",
	domain.StepInvoiceDetails:  "What type of invoice is this, and when is payment due? Say 'deposit invoice' or 'works completed invoice', and a due date if you have one.",
	domain.StepItemDescription: "Please describe the invoice item or service.",
	domain.StepItemValue:       "What is the value or price for this item?",
	domain.StepItemVAT:         "Is VAT applicable? If yes, what's the VAT rate? (Say 'no VAT' or '20 percent VAT')",
	domain.StepItemCIS:         "Is CIS applicable? If yes, what rate? (Say 'no CIS' or the CIS rate)",
	domain.StepItemRetention:   "Is there any retention? If yes, what percentage? (Say 'no retention' or the retention rate)",
	domain.StepItemDiscount:    "Any discount to apply? (Say 'no discount' or the discount percentage)",
	domain.StepAddAnother:      "Would you like to add another item or generate the invoice? (Say 'add another' or 'generate invoice')",
	domain.StepDone:            "Invoice information complete! Click 'Generate PDF' to create your invoice.",
}

// UserPrompt returns the user-facing instruction for a step.
func UserPrompt(step domain.Step) string {
	if p, ok := userPrompts[step]; ok {
		return p
	}
	return "Please continue with the next step."
}

// ExtractionPrompt returns the prompt handed to the LLM to turn a
// transcript into the structured value the step expects.
func ExtractionPrompt(step domain.Step, transcript string) string {
	switch step {
	case domain.StepClientInfo:
		return fmt.Sprintf(
			"Extract the client's name and address from the voice input below:\n\n%s\n\nReturn as JSON: {\"name\": \"...\", \"address\": \"...\"}\n%s",
			transcript, rawJSONOnly)
	case domain.StepInvoiceDetails:
		return fmt.Sprintf(
			"What type of invoice is being requested, and what is the payment due date?\n\nVoice:\n%s\n\nReturn as JSON: {\"type\": \"deposit\" or \"works_completed\", \"due_date\": \"YYYY-MM-DD\"}. Omit due_date if no date is mentioned.\n%s",
			transcript, rawJSONOnly)
	case domain.StepItemDescription:
		return fmt.Sprintf(
			"Extract the description of the invoice item:\n\n%s\n\nReturn as plain text with no commentary.",
			transcript)
	case domain.StepItemValue:
		return fmt.Sprintf(
			"What is the value of this invoice item?\n\n%s\n\nReturn a number only.",
			transcript)
	case domain.StepItemVAT:
		return fmt.Sprintf(
			"Is VAT applicable? If so, what is the VAT rate (as a number)?\n\n%s\n\nReturn {\"vat_rate\": 20.0} or {\"vat_rate\": 0.0}\n%s",
			transcript, rawJSONOnly)
	case domain.StepItemCIS:
		return fmt.Sprintf(
			"Is CIS applicable? If so, what rate?\n\n%s\n\nReturn {\"cis_rate\": 20.0} or {\"cis_rate\": 0.0}\n%s",
			transcript, rawJSONOnly)
	case domain.StepItemRetention:
		return fmt.Sprintf(
			"Is retention applicable? What rate?\n\n%s\n\nReturn {\"retention_rate\": 5.0} or {\"retention_rate\": 0.0}\n%s",
			transcript, rawJSONOnly)
	case domain.StepItemDiscount:
		return fmt.Sprintf(
			"Is any discount applied? What rate?\n\n%s\n\nReturn {\"discount_rate\": 10.0} or {\"discount_rate\": 0.0}\n%s",
			transcript, rawJSONOnly)
	case domain.StepAddAnother:
		return fmt.Sprintf(
			"Should we add another item or generate the invoice?\n\n%s\n\nReturn 'add' or 'submit', one word only.",
			transcript)
	default:
		return "Invalid step"
	}
}

package flow

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tay-dev-lab/voice-to-invoice/internal/domain"
)

// defaultDueDays is applied when the speaker never mentions a due date.
const defaultDueDays = 30

// StoreStepResult validates one step's LLM-produced text, coerces it
// into the typed value the step expects, and applies the corresponding
// session mutation. A *ValidationError return means the input was
// malformed or out of domain; the session is left untouched so the
// caller can re-prompt the user without advancing.
func StoreStepResult(s *domain.Session, step domain.Step, raw string) error {
	switch step {
	case domain.StepClientInfo:
		client, err := parseClientInfo(raw)
		if err != nil {
			return err
		}
		s.ClientInfo = client

	case domain.StepInvoiceDetails:
		details, err := parseInvoiceDetails(raw)
		if err != nil {
			return err
		}
		s.Details = details

	case domain.StepItemDescription:
		description := stripNoise(raw)
		if description == "" {
			return invalid(step, "item description is required", "e.g. 'Kitchen renovation labour'")
		}
		s.ScratchItem().Description = description

	case domain.StepItemValue:
		value, err := parseValue(raw)
		if err != nil {
			return err
		}
		s.ScratchItem().Value = value

	case domain.StepItemVAT:
		rate, err := parseRate(step, "vat_rate", raw)
		if err != nil {
			return err
		}
		s.ScratchItem().VATRate = rate

	case domain.StepItemCIS:
		rate, err := parseRate(step, "cis_rate", raw)
		if err != nil {
			return err
		}
		s.ScratchItem().CISRate = rate

	case domain.StepItemRetention:
		rate, err := parseRate(step, "retention_rate", raw)
		if err != nil {
			return err
		}
		s.ScratchItem().RetentionRate = rate

	case domain.StepItemDiscount:
		rate, err := parseRate(step, "discount_rate", raw)
		if err != nil {
			return err
		}
		// Discount is the last per-item field: the scratch item is
		// complete and joins the invoice.
		item := s.ScratchItem()
		item.DiscountRate = rate
		s.Items = append(s.Items, *item)
		s.CurrentItem = nil

	case domain.StepAddAnother:
		response, err := parseAddAnother(raw)
		if err != nil {
			return err
		}
		s.LastAddAnother = response

	default:
		return invalid(step, "no input is expected at this step", "")
	}

	return nil
}

var (
	codeFenceRe  = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)\\s*```")
	jsonObjectRe = regexp.MustCompile(`(?s)\{.*\}`)
	numberRe     = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	nameFieldRe  = regexp.MustCompile(`"name"\s*:\s*"([^"]*)"`)
	addrFieldRe  = regexp.MustCompile(`"address"\s*:\s*"([^"]*)"`)
	typeFieldRe  = regexp.MustCompile(`"type"\s*:\s*"([^"]*)"`)
	dateFieldRe  = regexp.MustCompile(`"due_date"\s*:\s*"([^"]*)"`)
)

// stripNoise removes markdown code fences and surrounding whitespace
// that models wrap around their output despite being told not to.
func stripNoise(raw string) string {
	s := strings.TrimSpace(raw)
	if m := codeFenceRe.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}
	return s
}

// jsonCandidate narrows noisy text to its first JSON object, when one
// is present at all.
func jsonCandidate(s string) string {
	if m := jsonObjectRe.FindString(s); m != "" {
		return m
	}
	return s
}

func parseClientInfo(raw string) (*domain.ClientInfo, *ValidationError) {
	const example = `{"name": "Acme Ltd", "address": "1 High St"}`
	cleaned := stripNoise(raw)

	var client domain.ClientInfo
	if err := json.Unmarshal([]byte(jsonCandidate(cleaned)), &client); err != nil {
		// Secondary strategy: pull the fields out by regex. Not a
		// silent success path; missing fields still fail below.
		if m := nameFieldRe.FindStringSubmatch(cleaned); m != nil {
			client.Name = m[1]
		}
		if m := addrFieldRe.FindStringSubmatch(cleaned); m != nil {
			client.Address = m[1]
		}
	}

	client.Name = strings.TrimSpace(client.Name)
	client.Address = strings.TrimSpace(client.Address)
	if client.Name == "" || client.Address == "" {
		return nil, invalid(domain.StepClientInfo,
			"client name and address are required", example)
	}
	return &client, nil
}

func parseInvoiceDetails(raw string) (*domain.InvoiceDetails, *ValidationError) {
	const example = `{"type": "deposit", "due_date": "2025-01-15"}`
	cleaned := stripNoise(raw)

	var payload struct {
		Type    string `json:"type"`
		DueDate string `json:"due_date"`
	}
	if err := json.Unmarshal([]byte(jsonCandidate(cleaned)), &payload); err != nil {
		if m := typeFieldRe.FindStringSubmatch(cleaned); m != nil {
			payload.Type = m[1]
		} else {
			// The type step also accepts free text.
			payload.Type = cleaned
		}
		if m := dateFieldRe.FindStringSubmatch(cleaned); m != nil {
			payload.DueDate = m[1]
		}
	}

	invoiceType := normalizeInvoiceType(payload.Type)
	if !invoiceType.Valid() {
		return nil, invalid(domain.StepInvoiceDetails,
			"invoice type must be 'deposit' or 'works_completed'", example)
	}

	dueDate := domain.Date{Time: time.Now().UTC().AddDate(0, 0, defaultDueDays)}
	if strings.TrimSpace(payload.DueDate) != "" {
		parsed, err := domain.ParseDate(payload.DueDate)
		if err != nil {
			return nil, invalid(domain.StepInvoiceDetails,
				"due date must be a valid YYYY-MM-DD date", example)
		}
		dueDate = parsed
	}

	return &domain.InvoiceDetails{Type: invoiceType, DueDate: dueDate}, nil
}

func normalizeInvoiceType(s string) domain.InvoiceType {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Trim(s, `"'.`)
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	switch {
	case strings.Contains(s, "deposit"):
		return domain.InvoiceTypeDeposit
	case strings.Contains(s, "works_completed"):
		return domain.InvoiceTypeWorksCompleted
	default:
		return domain.InvoiceType(s)
	}
}

func parseValue(raw string) (float64, *ValidationError) {
	const example = "e.g. 1250.00"
	cleaned := stripNoise(raw)
	cleaned = strings.NewReplacer("£", "", "$", "", "€", "", ",", "").Replace(cleaned)

	value, err := strconv.ParseFloat(strings.TrimSpace(cleaned), 64)
	if err != nil {
		m := numberRe.FindString(cleaned)
		if m == "" {
			return 0, invalid(domain.StepItemValue,
				"item value must be a number", example)
		}
		value, err = strconv.ParseFloat(m, 64)
		if err != nil {
			return 0, invalid(domain.StepItemValue,
				"item value must be a number", example)
		}
	}

	if value <= 0 {
		return 0, invalid(domain.StepItemValue,
			"item value must be a positive number", example)
	}
	return value, nil
}

// parseRate extracts a percentage rate field. A well-formed JSON object
// missing the field means the rate does not apply and defaults to zero;
// unparsable text with no recoverable number is a validation failure.
func parseRate(step domain.Step, field, raw string) (float64, *ValidationError) {
	example := `{"` + field + `": 20.0} or {"` + field + `": 0.0}`
	cleaned := stripNoise(raw)

	var rate float64
	var payload map[string]json.Number
	if err := json.Unmarshal([]byte(jsonCandidate(cleaned)), &payload); err == nil {
		if v, ok := payload[field]; ok {
			f, err := v.Float64()
			if err != nil {
				return 0, invalid(step, field+" must be a number", example)
			}
			rate = f
		}
	} else {
		fieldRe := regexp.MustCompile(`(?i)"?` + field + `"?\s*[:=]\s*(-?\d+(?:\.\d+)?)`)
		switch {
		case fieldRe.FindStringSubmatch(cleaned) != nil:
			m := fieldRe.FindStringSubmatch(cleaned)
			rate, _ = strconv.ParseFloat(m[1], 64)
		case numberRe.FindString(cleaned) != "":
			rate, _ = strconv.ParseFloat(numberRe.FindString(cleaned), 64)
		default:
			return 0, invalid(step, "could not read a "+field+" from the response", example)
		}
	}

	if rate < 0 || rate > 100 {
		return 0, invalid(step, field+" must be a percentage between 0 and 100", example)
	}
	return rate, nil
}

func parseAddAnother(raw string) (domain.AddAnotherResponse, *ValidationError) {
	cleaned := strings.ToLower(stripNoise(raw))
	cleaned = strings.Trim(cleaned, `"'.! `)

	switch {
	case strings.Contains(cleaned, "add"):
		return domain.AddAnotherAdd, nil
	case strings.Contains(cleaned, "submit"), strings.Contains(cleaned, "generate"):
		return domain.AddAnotherSubmit, nil
	default:
		return "", invalid(domain.StepAddAnother,
			"answer must be 'add' or 'submit'", "say 'add another' or 'generate invoice'")
	}
}

package domain

// Step identifies one position in the invoice conversation flow.
type Step string

const (
	StepStart           Step = "start"
	StepClientInfo      Step = "client_info"
	StepInvoiceDetails  Step = "invoice_details"
	StepItemDescription Step = "item_description"
	StepItemValue       Step = "item_value"
	StepItemVAT         Step = "item_vat"
	StepItemCIS         Step = "item_cis"
	StepItemRetention   Step = "item_retention"
	StepItemDiscount    Step = "item_discount"
	StepAddAnother      Step = "add_another"
	StepDone            Step = "done"
)

// AddAnotherResponse is the validated answer to the add_another step.
type AddAnotherResponse string

const (
	AddAnotherAdd    AddAnotherResponse = "add"
	AddAnotherSubmit AddAnotherResponse = "submit"
)

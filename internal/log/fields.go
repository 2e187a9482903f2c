package log

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldDuration  = "duration_ms"
	FieldBackend   = "backend"
	FieldError     = "error"
	FieldOperation = "operation"
	FieldJobID     = "job_id"
	FieldLineItem  = "line_item_id"
	FieldTxnID     = "transaction_id"
	FieldSelected  = "selected"
	FieldResults   = "results"
)

// Components defines standard component names
const (
	ComponentApp            = "app"
	ComponentCLI            = "cli"
	ComponentGateway        = "gateway"
	ComponentExpenseTracker = "expensetracker"
	ComponentRevenue        = "revenue"
)

// Operations defines standard operation names
const (
	OpLoad        = "load_reference_data"
	OpSearch      = "search"
	OpSaveJob     = "save_job"
	OpNewJob      = "save_new_job"
	OpSaveItem    = "save_line_item"
	OpNewItem     = "save_new_line_item"
	OpRefund      = "refund"
)

package log

import "sort"

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldOperation     = "operation"
	FieldError         = "error"
	FieldErrorType     = "error_type"
	FieldDuration      = "duration_ms"
	FieldImportID      = "import_id"
	FieldSource        = "source"
	FieldLayout        = "layout"
	FieldLines         = "lines"
	FieldWorkers       = "workers"
	FieldBackend       = "backend"
	FieldAccountNumber = "account_number"
	FieldAmountCents   = "amount_cents"
	FieldDateOp        = "date_op"
	FieldCategory      = "category"
	FieldSheetsRef     = "sheets_ref"
	FieldExchange      = "exchange"
	FieldQueue         = "queue"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentImport  = "import"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentSheets  = "sheets"
	ComponentBackend = "backend"
	ComponentConfig  = "config"
	ComponentHTTP    = "http"
)

// Operations defines standard operation names
const (
	OpParse    = "parse"
	OpStore    = "store"
	OpPublish  = "publish"
	OpList     = "list"
	OpAppend   = "append"
	OpValidate = "validate"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithErrorType adds the error category
func (f LogFields) WithErrorType(errType string) LogFields {
	f[FieldErrorType] = errType
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithImport adds the fields identifying one statement import
func (f LogFields) WithImport(importID, source, layout string) LogFields {
	f[FieldImportID] = importID
	f[FieldSource] = source
	f[FieldLayout] = layout
	return f
}

// WithLine adds bank line fields
func (f LogFields) WithLine(dateOp string, amountCents int64, accountNumber uint32) LogFields {
	f[FieldDateOp] = dateOp
	f[FieldAmountCents] = amountCents
	f[FieldAccountNumber] = accountNumber
	return f
}

// ToSlice converts LogFields to a slice for slog. Keys are sorted so the
// output is stable.
func (f LogFields) ToSlice() []any {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	slice := make([]any, 0, len(f)*2)
	for _, k := range keys {
		slice = append(slice, k, f[k])
	}
	return slice
}

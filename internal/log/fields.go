package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"

	FieldRecordID   = "record_id"
	FieldRecordKind = "record_kind"
	FieldInvoiceID  = "invoice_id"
	FieldProductID  = "product_id"
	FieldTemplateID = "template_id"
	FieldAmount     = "amount"
	FieldMonthKey   = "month_key"
	FieldRowRef     = "row_ref"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentExport    = "export"
	ComponentPipeline  = "pipeline"
	ComponentRecurring = "recurring"
	ComponentCache     = "cache"
)

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
	FieldUserAgent  = "user_agent"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldUserID     = "user_id"
	FieldExpenseID  = "expense_id"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentAuth    = "auth"
	ComponentExpense = "expense"
	ComponentStorage = "storage"
	ComponentSession = "session"
	ComponentCLI     = "cli"
)

// Operations defines standard operation names
const (
	OpRegister = "register"
	OpLogin    = "login"
	OpLogout   = "logout"
	OpCreate   = "create"
	OpList     = "list"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpTotals   = "totals"
	OpRenew    = "renew"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

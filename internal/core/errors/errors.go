package errors

const (
	HttpInternalError       = "internal_error"
	HttpInvalidInputError   = "invalid_input"
	HttpInvalidJsonError    = "invalid_json"
	HttpNotFoundError       = "not_found"
	HttpDuplicateClickError = "duplicate_click"
)

// ErrorResponse is the error response body for all engine endpoints.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}

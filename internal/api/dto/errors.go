package dto

// APIError is the body of every non-2xx response from the audit API.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrCodeNotFound      = "not_found"
	ErrCodeBadRequest    = "bad_request"
	ErrCodeInternalError = "internal_error"
	ErrCodeValidation    = "validation_error"
	ErrCodeUnsupported   = "unsupported_format"
)

// NewAPIError builds an error body.
func NewAPIError(code, message string) APIError {
	return APIError{Code: code, Message: message}
}

// NotFoundError reports a missing client, task, analysis or sample run.
func NotFoundError(resource string) APIError {
	return NewAPIError(ErrCodeNotFound, resource+" not found")
}

// BadRequestError reports a malformed request: bad JSON, missing upload.
func BadRequestError(message string) APIError {
	return NewAPIError(ErrCodeBadRequest, message)
}

// ValidationError reports a well-formed request with invalid values, such as
// a negative threshold or a ledger row that fails to parse.
func ValidationError(message string) APIError {
	return NewAPIError(ErrCodeValidation, message)
}

// UnsupportedFormatError reports an upload that is neither xlsx nor csv.
func UnsupportedFormatError(err error) APIError {
	return NewAPIError(ErrCodeUnsupported, err.Error())
}

// InternalError hides the cause of a 500; it is logged instead.
func InternalError() APIError {
	return NewAPIError(ErrCodeInternalError, "internal server error")
}

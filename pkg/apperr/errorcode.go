package apperr

import "net/http"

// Predefined standard error codes (can be extended)
var (
	ErrorCodeSuccess        = NewErrorCode("success", "OK", 0, http.StatusOK)
	ErrorCodeInvalidRequest = NewErrorCode("invalid_request", "Invalid request body", 10, http.StatusBadRequest)
	ErrorCodeInvalidInput   = NewErrorCode("invalid_input", "Invalid input", 20, http.StatusUnprocessableEntity)
	ErrorCodeValidationFail = NewErrorCode("validation_failed", "Validation failed", 30, http.StatusUnprocessableEntity)
	ErrorCodeUnauthorized   = NewErrorCode("unauthorized", "Unauthorized", 40, http.StatusUnauthorized)
	ErrorCodeForbidden      = NewErrorCode("forbidden", "Forbidden", 50, http.StatusForbidden)
	ErrorCodeNotFound       = NewErrorCode("not_found", "Not found", 60, http.StatusNotFound)
	ErrorCodeConflict       = NewErrorCode("conflict", "Resource already exists", 65, http.StatusConflict)
	ErrorCodeTooMany        = NewErrorCode("rate_limited", "Too many requests", 70, http.StatusTooManyRequests)
	ErrorCodeUnavailable    = NewErrorCode("service_unavailable", "Service unavailable", 90, http.StatusServiceUnavailable)
	ErrorCodeInternal       = NewErrorCode("internal_error", "Internal server error", 100, http.StatusInternalServerError)

	// session and access control
	ErrorCodeSessionMissing   = NewErrorCode("session_missing", "Sign in required", 41, http.StatusUnauthorized)
	ErrorCodeSessionPending   = NewErrorCode("session_pending", "Session is still being established", 42, http.StatusUnauthorized)
	ErrorCodePermissionDenied = NewErrorCode("permission_denied", "Caller lacks a required role", 51, http.StatusForbidden)
	ErrorCodeUnknownAction    = NewErrorCode("permission_not_registered", "Action is not registered", 52, http.StatusForbidden)
)

// ErrorCode describes a canonical application error code.
// It carries a numeric severity/priority (Value) and an HTTP status.
type ErrorCode struct {
	code       string
	message    string
	value      int
	httpStatus int
}

func NewErrorCode(code, message string, value, httpStatus int) *ErrorCode {
	return &ErrorCode{code: code, message: message, value: value, httpStatus: httpStatus}
}

func (ec *ErrorCode) Code() string    { return ec.code }
func (ec *ErrorCode) Message() string { return ec.message }
func (ec *ErrorCode) Value() int      { return ec.value }
func (ec *ErrorCode) HTTPStatus() int { return ec.httpStatus }

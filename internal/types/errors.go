package types

import (
	"errors"
	"maps"
	"net/http"
	"strings"
)

// ErrorCode identifies an error family by prefix, e.g. "validation_".
type ErrorCode string

const (
	// Validation (400)
	ErrCodeValidationMissingField     ErrorCode = "validation_missing_field"
	ErrCodeValidationMissingSignature ErrorCode = "validation_missing_signature"
	ErrCodeValidationMalformedBody    ErrorCode = "validation_malformed_body"
	ErrCodeValidationInvalidStatus    ErrorCode = "validation_invalid_status"
	ErrCodeValidationInvalidAmount    ErrorCode = "validation_invalid_amount"
	ErrCodeValidationInvalidURL       ErrorCode = "validation_invalid_url"

	// Auth (401)
	ErrCodeAuthTokenMissing     ErrorCode = "auth_token_missing"
	ErrCodeAuthTokenInvalid     ErrorCode = "auth_token_invalid"
	ErrCodeAuthSignatureExpired ErrorCode = "auth_signature_expired"

	// Permission (403)
	ErrCodePermissionSignatureInvalid ErrorCode = "permission_signature_invalid"

	// Not Found (404)
	ErrCodeNotFoundTransaction ErrorCode = "not_found_transaction"
	ErrCodeNotFoundInvoice     ErrorCode = "not_found_invoice"

	// Conflict (409)
	ErrCodeConflictDuplicateTransaction ErrorCode = "conflict_duplicate_transaction"
	ErrCodeConflictTerminalState        ErrorCode = "conflict_terminal_state"
	ErrCodeConflictInvoicePaid          ErrorCode = "conflict_invoice_paid"

	// Internal (500)
	ErrCodeInternalDB                ErrorCode = "internal_database_error"
	ErrCodeInternalUnexpected        ErrorCode = "internal_unexpected_error"
	ErrCodeInternalInvoiceSideEffect ErrorCode = "internal_invoice_side_effect_failed"

	// Upstream (502)
	ErrCodeUpstreamProcessorUnavailable ErrorCode = "upstream_processor_unavailable"
	ErrCodeUpstreamCircuitOpen          ErrorCode = "upstream_circuit_open"

	// Processor declined (402)
	ErrCodePaymentRejected ErrorCode = "payment_rejected"
)

// statusByPrefix maps code families to HTTP statuses. Codes outside every
// family are internal errors.
var statusByPrefix = []struct {
	prefix string
	status int
}{
	{"validation_", http.StatusBadRequest},
	{"auth_", http.StatusUnauthorized},
	{"permission_", http.StatusForbidden},
	{"not_found_", http.StatusNotFound},
	{"conflict_", http.StatusConflict},
	{"payment_", http.StatusPaymentRequired},
	{"upstream_", http.StatusBadGateway},
}

// HTTPStatus returns the response status for c.
func (c ErrorCode) HTTPStatus() int {
	for _, f := range statusByPrefix {
		if strings.HasPrefix(string(c), f.prefix) {
			return f.status
		}
	}
	return http.StatusInternalServerError
}

// AppError carries a stable code alongside a client-safe message. Err is
// the internal cause and is never rendered to callers.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	msg := string(e.Code) + ": " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AppError) Unwrap() error { return e.Err }

// HTTPStatus is shorthand for e.Code.HTTPStatus().
func (e *AppError) HTTPStatus() int { return e.Code.HTTPStatus() }

// WithDetails returns a copy of e whose details include the given entries.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	out := *e
	out.Details = make(map[string]any, len(e.Details)+len(details))
	maps.Copy(out.Details, e.Details)
	maps.Copy(out.Details, details)
	return &out
}

func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{Code: code, Message: message, Err: err, Details: details}
}

// CodeOf returns the code of the first AppError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// HasCode reports whether err's chain carries an AppError with code.
func HasCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

package errors

import "errors"

// Error codes shared across domain services. Handlers map these onto HTTP
// statuses; services never import net/http.
const (
	CodeInvalidInput       = "invalid_input"
	CodeUnsupportedFormat  = "unsupported_format"
	CodeFileTooLarge       = "file_too_large"
	CodeSchemaError        = "schema_error"
	CodeInvalidTimestamp   = "invalid_timestamp"
	CodeNoTableFound       = "no_table_found"
	CodeEmptyTable         = "empty_table"
	CodeInvalidImage       = "invalid_image"
	CodeNotConfigured      = "not_configured"
	CodeUpstreamError      = "upstream_error"
	CodeUpstreamData       = "upstream_data"
	CodeNotFound           = "not_found"
	CodeInvalidCredentials = "invalid_credentials"
	CodeInvalidToken       = "invalid_token"
	CodeEmailExists        = "email_exists"
	CodeAuthError          = "auth_error"
	CodeStorageError       = "storage_error"
)

// AppError encodes domain specific error details.
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Wrap produces a new AppError instance.
func Wrap(code, message string, err error) error {
	if err == nil {
		return &AppError{Code: code, Message: message}
	}
	return &AppError{Code: code, Message: message, Err: err}
}

// IsCode helps handler differentiate failures.
func IsCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// CodeOf extracts the domain code, or "" for plain errors.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// MessageOf extracts the message half of an AppError without the wrapped
// cause, falling back to Error() for plain errors.
func MessageOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

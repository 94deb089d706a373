package errors

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// Common error types that can be used across the application
var (
	ErrNotFound      = new(ErrCodeNotFound, "resource not found")
	ErrAlreadyExists = new(ErrCodeAlreadyExists, "resource already exists")
	ErrValidation    = new(ErrCodeValidation, "validation error")
	ErrHTTPClient    = new(ErrCodeHTTPClient, "http client error")
	ErrDatabase      = new(ErrCodeDatabase, "database error")
	ErrSystem        = new(ErrCodeSystemError, "system error")

	// lockbox file errors, all of them reject the whole file
	ErrStructure      = new(ErrCodeStructure, "lockbox file structure error")
	ErrUniqueness     = new(ErrCodeUniqueness, "lockbox file uniqueness error")
	ErrDecode         = new(ErrCodeDecode, "lockbox field decode error")
	ErrReconciliation = new(ErrCodeReconciliation, "lockbox total reconciliation error")

	// maps errors to http status codes
	statusCodeMap = map[error]int{
		ErrHTTPClient:     http.StatusInternalServerError,
		ErrDatabase:       http.StatusInternalServerError,
		ErrNotFound:       http.StatusNotFound,
		ErrAlreadyExists:  http.StatusConflict,
		ErrValidation:     http.StatusBadRequest,
		ErrSystem:         http.StatusInternalServerError,
		ErrStructure:      http.StatusUnprocessableEntity,
		ErrUniqueness:     http.StatusUnprocessableEntity,
		ErrDecode:         http.StatusUnprocessableEntity,
		ErrReconciliation: http.StatusUnprocessableEntity,
	}
)

const (
	ErrCodeHTTPClient     = "http_client_error"
	ErrCodeSystemError    = "system_error"
	ErrCodeNotFound       = "not_found"
	ErrCodeAlreadyExists  = "already_exists"
	ErrCodeValidation     = "validation_error"
	ErrCodeDatabase       = "database_error"
	ErrCodeStructure      = "lockbox_structure_error"
	ErrCodeUniqueness     = "lockbox_uniqueness_error"
	ErrCodeDecode         = "lockbox_decode_error"
	ErrCodeReconciliation = "lockbox_reconciliation_error"
)

// InternalError represents a domain error
type InternalError struct {
	Code    string // Machine-readable error code
	Message string // Human-readable error message
	Op      string // Logical operation name
	Err     error  // Underlying error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return e.DisplayError()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
}

func (e *InternalError) DisplayError() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Is implements error matching for wrapped errors
func (e *InternalError) Is(target error) bool {
	if target == nil {
		return false
	}

	t, ok := target.(*InternalError)
	if !ok {
		return errors.Is(e.Err, target)
	}

	return e.Code == t.Code
}

func new(code string, message string) *InternalError {
	return &InternalError{
		Code:    code,
		Message: message,
	}
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsDatabase checks if an error is a database error
func IsDatabase(err error) bool {
	return errors.Is(err, ErrDatabase)
}

// IsStructure checks if an error is a lockbox structure error
func IsStructure(err error) bool {
	return errors.Is(err, ErrStructure)
}

// IsUniqueness checks if an error is a lockbox uniqueness error
func IsUniqueness(err error) bool {
	return errors.Is(err, ErrUniqueness)
}

// IsDecode checks if an error is a lockbox decode error
func IsDecode(err error) bool {
	return errors.Is(err, ErrDecode)
}

// IsReconciliation checks if an error is a lockbox reconciliation error
func IsReconciliation(err error) bool {
	return errors.Is(err, ErrReconciliation)
}

// IsParseError reports whether err rejected a lockbox file during parsing
func IsParseError(err error) bool {
	return IsStructure(err) || IsUniqueness(err) || IsDecode(err) || IsReconciliation(err)
}

func HTTPStatusFromErr(err error) int {
	for e, status := range statusCodeMap {
		if errors.Is(err, e) {
			return status
		}
	}
	return http.StatusInternalServerError
}

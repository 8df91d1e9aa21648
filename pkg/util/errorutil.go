package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// ErrorKind groups application errors into the taxonomy callers branch on.
type ErrorKind string

const (
	KindAuth       ErrorKind = "AUTH"
	KindValidation ErrorKind = "VALIDATION"
	KindSupervisor ErrorKind = "SUPERVISOR"
	KindNotFound   ErrorKind = "NOT_FOUND"
	KindConflict   ErrorKind = "CONFLICT"
	KindInternal   ErrorKind = "INTERNAL"
)

// Stable error codes surfaced to API clients.
const (
	CodeUserNotFound            = "USER_NOT_FOUND"
	CodeInsufficientPrivileges  = "INSUFFICIENT_PRIVILEGES"
	CodeEmployeeEmailRequired   = "EMPLOYEE_EMAIL_REQUIRED"
	CodeInvalidEmailFormat      = "INVALID_EMAIL_FORMAT"
	CodeTargetUserNotFound      = "TARGET_USER_NOT_FOUND"
	CodeTargetNotEmployee       = "TARGET_NOT_EMPLOYEE"
	CodeSupervisorAssignFailed  = "SUPERVISOR_ASSIGNMENT_FAILED"
	CodeInvalidRole             = "INVALID_ROLE"
	CodeInvalidRequest          = "INVALID_REQUEST"
	CodeNotFound                = "NOT_FOUND"
	CodeConflict                = "CONFLICT"
	CodeInternal                = "INTERNAL_ERROR"
	CodeUnauthorizedBearerToken = "INVALID_BEARER_TOKEN"
)

// DomainError standardizes application errors.
type DomainError struct {
	Kind       ErrorKind
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(kind ErrorKind, code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Kind: kind, Code: code, Message: message, HTTPStatus: status, Details: details}
}

// NewAuthError builds an AUTH-kind error. USER_NOT_FOUND maps to 401 so the
// response never reveals whether the subject exists; other auth codes are a
// plain 403.
func NewAuthError(code, message string) error {
	status := http.StatusForbidden
	if code == CodeUserNotFound {
		status = http.StatusUnauthorized
	}
	return NewDomainError(KindAuth, code, message, status, nil)
}

// NewAuthErrorWithCause is NewAuthError carrying an internal cause for
// diagnostics. The cause shows up in logs, never in responses.
func NewAuthErrorWithCause(code, message string, cause error) error {
	err := NewAuthError(code, message).(*DomainError)
	err.Err = cause
	return err
}

// NewPrivilegeError builds the INSUFFICIENT_PRIVILEGES error labeled with the
// operation that was refused.
func NewPrivilegeError(operation string) error {
	return NewDomainError(KindAuth, CodeInsufficientPrivileges, "insufficient privileges", http.StatusForbidden,
		map[string]any{"operation": operation})
}

// NewValidationError builds a VALIDATION-kind error with a stable code.
func NewValidationError(code, message string, details map[string]any) error {
	return NewDomainError(KindValidation, code, message, http.StatusBadRequest, details)
}

// NewSupervisorError reports a failed supervisor assignment batch. Validation
// already passed, so the failure is infrastructural and retrying the same
// batch is safe.
func NewSupervisorError(cause error) error {
	return &DomainError{
		Kind:       KindSupervisor,
		Code:       CodeSupervisorAssignFailed,
		Message:    "supervisor assignment failed",
		HTTPStatus: http.StatusInternalServerError,
		Err:        cause,
	}
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Kind:       KindNotFound,
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(KindAuth, CodeUnauthorizedBearerToken, message, http.StatusUnauthorized, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(KindConflict, CodeConflict, message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Kind:       KindInternal,
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return NewNotFound("resource", nil).(*DomainError)
	}
	return NewInternalError(err).(*DomainError)
}

func MapError(err error) error {
	return ToDomainError(err)
}

// KindOf reports the taxonomy kind of err, KindInternal for foreign errors.
func KindOf(err error) ErrorKind {
	return ToDomainError(err).Kind
}

// CodeOf reports the stable code of err, CodeInternal for foreign errors.
func CodeOf(err error) string {
	return ToDomainError(err).Code
}

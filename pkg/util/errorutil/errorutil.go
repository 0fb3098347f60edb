package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Numeric error codes shared with API clients. Server faults live in the 1xxxx
// range, client faults in 2xxxx.
const (
	CodeUndocumentedException = 10000 + iota
	CodeDatabaseIntegrityError
	CodeAuthServiceUnavailable
)

const (
	CodeInvalidToken = 20000 + iota
	CodeNotAuthenticated
	CodeInvalidCredentials
	CodeDuplicateUsername
	CodeIncorrectUsernameOrPassword
	CodeInvalidUserOperation
	CodeResultNotFound
	CodeValidationFailed
	CodeRateLimited
)

// SQLSTATE codes postgres reports for constraint failures.
const (
	foreignKeyViolation = "23503"
	uniqueViolation     = "23505"
	checkViolation      = "23514"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	ErrorCode  int
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
func NewDomainError(code string, errorCode int, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, ErrorCode: errorCode, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "RESULT_NOT_FOUND",
		ErrorCode:  CodeResultNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

// NewNotAuthenticated reports a request that carried no usable credential.
func NewNotAuthenticated() error {
	return NewDomainError("NOT_AUTHENTICATED", CodeNotAuthenticated, "not authenticated", http.StatusUnauthorized, nil)
}

// NewInvalidToken reports a credential that was presented but rejected. The
// message does not vary with the rejection reason.
func NewInvalidToken() error {
	return NewDomainError("INVALID_TOKEN", CodeInvalidToken, "invalid token", http.StatusForbidden, nil)
}

// NewAuthServiceUnavailable reports that authentication could not be decided.
func NewAuthServiceUnavailable(err error) error {
	return &DomainError{
		Code:       "AUTH_SERVICE_UNAVAILABLE",
		ErrorCode:  CodeAuthServiceUnavailable,
		Message:    "authentication service unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func NewIncorrectCredentials() error {
	return NewDomainError("INCORRECT_USERNAME_OR_PASSWORD", CodeIncorrectUsernameOrPassword, "incorrect username or password", http.StatusUnauthorized, nil)
}

func NewDuplicateUsername() error {
	return NewDomainError("DUPLICATE_USERNAME", CodeDuplicateUsername, "username already taken", http.StatusConflict, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("INVALID_USER_OPERATION", CodeInvalidUserOperation, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("DATABASE_INTEGRITY_ERROR", CodeDatabaseIntegrityError, message, http.StatusConflict, details)
}

func NewRateLimited(retryAfterSeconds int) error {
	return NewDomainError("RATE_LIMITED", CodeRateLimited, "too many requests", http.StatusTooManyRequests,
		map[string]any{"retry_after": retryAfterSeconds})
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "UNDOCUMENTED_EXCEPTION",
		ErrorCode:  CodeUndocumentedException,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// IsUniqueViolation reports whether err is a postgres duplicate key error.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
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
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return statusError(fiberErr.Code, fiberErr.Message)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return NewNotFound("resource", nil).(*DomainError)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return NewConflict("resource already exists", map[string]any{"constraint": pgErr.ConstraintName}).(*DomainError)
		case foreignKeyViolation:
			return NewConflict("resource is referenced or references a missing resource", map[string]any{"constraint": pgErr.ConstraintName}).(*DomainError)
		case checkViolation:
			return NewValidationError("value violates a constraint", map[string]any{"constraint": pgErr.ConstraintName}).(*DomainError)
		}
	}
	return NewInternalError(err).(*DomainError)
}

// MapError converts generic errors to DomainError.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}

func statusError(status int, message string) *DomainError {
	switch status {
	case http.StatusNotFound:
		return NewNotFound("route", nil).(*DomainError)
	case http.StatusMethodNotAllowed:
		return NewDomainError("METHOD_NOT_ALLOWED", CodeInvalidUserOperation, message, status, nil)
	}
	if status >= http.StatusInternalServerError {
		return NewInternalError(errors.New(message)).(*DomainError)
	}
	return NewDomainError("BAD_REQUEST", CodeValidationFailed, message, status, nil)
}

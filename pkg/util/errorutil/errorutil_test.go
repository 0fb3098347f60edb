package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		code      string
		errorCode int
		status    int
	}{
		{name: "domain error passes through", err: fmt.Errorf("wrap: %w", NewDuplicateUsername()), code: "DUPLICATE_USERNAME", errorCode: CodeDuplicateUsername, status: http.StatusConflict},
		{name: "no rows", err: fmt.Errorf("get: %w", pgx.ErrNoRows), code: "RESULT_NOT_FOUND", errorCode: CodeResultNotFound, status: http.StatusNotFound},
		{name: "unique violation", err: &pgconn.PgError{Code: "23505"}, code: "DATABASE_INTEGRITY_ERROR", errorCode: CodeDatabaseIntegrityError, status: http.StatusConflict},
		{name: "foreign key violation", err: &pgconn.PgError{Code: "23503"}, code: "DATABASE_INTEGRITY_ERROR", errorCode: CodeDatabaseIntegrityError, status: http.StatusConflict},
		{name: "check violation", err: &pgconn.PgError{Code: "23514"}, code: "VALIDATION_FAILED", errorCode: CodeValidationFailed, status: http.StatusBadRequest},
		{name: "fiber not found", err: fiber.ErrNotFound, code: "RESULT_NOT_FOUND", errorCode: CodeResultNotFound, status: http.StatusNotFound},
		{name: "fiber method not allowed", err: fiber.ErrMethodNotAllowed, code: "METHOD_NOT_ALLOWED", errorCode: CodeInvalidUserOperation, status: http.StatusMethodNotAllowed},
		{name: "fiber bad request", err: fiber.ErrBadRequest, code: "BAD_REQUEST", errorCode: CodeValidationFailed, status: http.StatusBadRequest},
		{name: "unknown", err: errors.New("boom"), code: "UNDOCUMENTED_EXCEPTION", errorCode: CodeUndocumentedException, status: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToDomainError(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.code, got.Code)
			assert.Equal(t, tt.errorCode, got.ErrorCode)
			assert.Equal(t, tt.status, got.HTTPStatus)
		})
	}
	assert.Nil(t, ToDomainError(nil))
	assert.NoError(t, MapError(nil))
}

func TestAuthErrorCodes(t *testing.T) {
	assert.Equal(t, 20000, CodeInvalidToken)
	assert.Equal(t, 20001, CodeNotAuthenticated)
	assert.Equal(t, 10000, CodeUndocumentedException)
	assert.Equal(t, 10001, CodeDatabaseIntegrityError)

	unavailable := ToDomainError(NewAuthServiceUnavailable(errors.New("dial tcp: refused")))
	assert.Equal(t, http.StatusServiceUnavailable, unavailable.HTTPStatus)
	assert.NotContains(t, unavailable.Message, "refused")

	assert.Equal(t, http.StatusForbidden, ToDomainError(NewInvalidToken()).HTTPStatus)
	assert.Equal(t, http.StatusUnauthorized, ToDomainError(NewNotAuthenticated()).HTTPStatus)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("other")))
}

func TestNewRateLimitedCarriesRetryAfter(t *testing.T) {
	got := ToDomainError(NewRateLimited(12))
	assert.Equal(t, http.StatusTooManyRequests, got.HTTPStatus)
	assert.Equal(t, 12, got.Details["retry_after"])
}

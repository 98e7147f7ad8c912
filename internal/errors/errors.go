package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/portal-admin/internal/types"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	// CategoryValidation represents malformed or missing input (4xx)
	CategoryValidation ErrorCategory = "validation"
	// CategoryAuthentication represents a missing or invalid session
	CategoryAuthentication ErrorCategory = "authentication"
	// CategoryAuthorization represents a role that is not permitted
	CategoryAuthorization ErrorCategory = "authorization"
	// CategoryNotFound represents a referenced entity that does not exist
	CategoryNotFound ErrorCategory = "not_found"
	// CategoryConflict represents unique violations and invalid state transitions
	CategoryConflict ErrorCategory = "conflict"
	// CategoryPrecondition represents unmet business preconditions (fee, balance)
	CategoryPrecondition ErrorCategory = "precondition"
	// CategoryRateLimit represents rate limit errors
	CategoryRateLimit ErrorCategory = "rate_limit"
	// CategorySystem represents system errors (5xx)
	CategorySystem ErrorCategory = "system"
	// CategoryDatabase represents database errors
	CategoryDatabase ErrorCategory = "database"
	// CategoryCache represents cache errors
	CategoryCache ErrorCategory = "cache"
)

// Error codes surfaced to API clients
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeNotFound            = "NOT_FOUND"
	CodeConflict            = "CONFLICT"
	CodeFeeNotConfigured    = "FEE_NOT_CONFIGURED"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodeAlreadyFinalized    = "ALREADY_FINALIZED"
	CodeRateLimitExceeded   = "RATE_LIMIT_EXCEEDED"
	CodeInternal            = "INTERNAL_ERROR"
	CodeDatabase            = "DATABASE_ERROR"
	CodeCache               = "CACHE_ERROR"
	CodeServiceUnavailable  = "SERVICE_UNAVAILABLE"
)

// CategorizedError represents an error with category and HTTP status code
type CategorizedError struct {
	Category   ErrorCategory
	StatusCode int
	Code       string
	Message    string
	Details    map[string]interface{}
	Cause      error
}

// Error implements the error interface
func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// ToServiceError converts to a ServiceError. System errors are sanitized so
// that internal messages never reach API clients.
func (e *CategorizedError) ToServiceError() *types.ServiceError {
	if e.StatusCode >= http.StatusInternalServerError {
		return &types.ServiceError{
			Code:    e.Code,
			Message: "an internal error occurred",
		}
	}
	return &types.ServiceError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
}

// Input errors (4xx)

// NewValidationError creates a validation error. fields maps each offending
// field to a human readable reason.
func NewValidationError(message string, fields map[string]string) *CategorizedError {
	err := &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       CodeValidation,
		Message:    message,
	}
	if len(fields) > 0 {
		err.Details = map[string]interface{}{
			"fields": fields,
		}
	}
	return err
}

// NewInvalidParameterError creates a validation error for a single parameter
func NewInvalidParameterError(param string, reason string) *CategorizedError {
	return NewValidationError(
		fmt.Sprintf("invalid parameter '%s': %s", param, reason),
		map[string]string{param: reason},
	)
}

// NewUnauthorizedError creates an authentication-required error
func NewUnauthorizedError(message string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryAuthentication,
		StatusCode: http.StatusUnauthorized,
		Code:       CodeUnauthorized,
		Message:    message,
	}
}

// NewForbiddenError creates a forbidden error
func NewForbiddenError(message string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryAuthorization,
		StatusCode: http.StatusForbidden,
		Code:       CodeForbidden,
		Message:    message,
	}
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string, id interface{}) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryNotFound,
		StatusCode: http.StatusNotFound,
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found: %v", resource, id),
		Details: map[string]interface{}{
			"resource": resource,
			"id":       id,
		},
	}
}

// NewConflictError creates a conflict error
func NewConflictError(message string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryConflict,
		StatusCode: http.StatusConflict,
		Code:       CodeConflict,
		Message:    message,
	}
}

// NewAlreadyFinalizedError is returned when a review transition starts from a
// terminal status
func NewAlreadyFinalizedError(resource string, id int64, status types.ReviewStatus) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryConflict,
		StatusCode: http.StatusConflict,
		Code:       CodeAlreadyFinalized,
		Message:    fmt.Sprintf("%s %d is already %s", resource, id, status),
		Details: map[string]interface{}{
			"resource": resource,
			"id":       id,
			"status":   status,
		},
	}
}

// Business precondition errors

// NewFeeNotConfiguredError is returned when neither an agent override nor a
// default fee exists for an application type, or the configured value is unusable
func NewFeeNotConfiguredError(appType types.ApplicationType, reason string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryPrecondition,
		StatusCode: http.StatusPreconditionFailed,
		Code:       CodeFeeNotConfigured,
		Message:    fmt.Sprintf("fee not configured for %s", appType),
		Details: map[string]interface{}{
			"applicationType": appType,
			"reason":          reason,
		},
	}
}

// NewInsufficientBalanceError is returned when a debit would make the balance negative
func NewInsufficientBalanceError(balance, required string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryPrecondition,
		StatusCode: http.StatusPaymentRequired,
		Code:       CodeInsufficientBalance,
		Message:    "insufficient balance",
		Details: map[string]interface{}{
			"balance":  balance,
			"required": required,
		},
	}
}

// NewRateLimitError creates a rate limit error
func NewRateLimitError(retryAfter int) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryRateLimit,
		StatusCode: http.StatusTooManyRequests,
		Code:       CodeRateLimitExceeded,
		Message:    "rate limit exceeded",
		Details: map[string]interface{}{
			"retryAfter": retryAfter,
		},
	}
}

// System errors (5xx)

// NewInternalError creates an internal server error
func NewInternalError(message string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategorySystem,
		StatusCode: http.StatusInternalServerError,
		Code:       CodeInternal,
		Message:    message,
		Cause:      cause,
	}
}

// NewDatabaseError creates a database error
func NewDatabaseError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryDatabase,
		StatusCode: http.StatusInternalServerError,
		Code:       CodeDatabase,
		Message:    fmt.Sprintf("database error during %s", operation),
		Cause:      cause,
		Details: map[string]interface{}{
			"operation": operation,
		},
	}
}

// NewCacheError creates a cache error
func NewCacheError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryCache,
		StatusCode: http.StatusInternalServerError,
		Code:       CodeCache,
		Message:    fmt.Sprintf("cache error during %s", operation),
		Cause:      cause,
		Details: map[string]interface{}{
			"operation": operation,
		},
	}
}

// NewServiceUnavailableError creates a service unavailable error
func NewServiceUnavailableError(service string) *CategorizedError {
	return &CategorizedError{
		Category:   CategorySystem,
		StatusCode: http.StatusServiceUnavailable,
		Code:       CodeServiceUnavailable,
		Message:    fmt.Sprintf("service unavailable: %s", service),
		Details: map[string]interface{}{
			"service": service,
		},
	}
}

// Categorize categorizes an existing error. Wrapped categorized errors are
// found through errors.As.
func Categorize(err error) *CategorizedError {
	if err == nil {
		return nil
	}

	var catErr *CategorizedError
	if stderrors.As(err, &catErr) {
		return catErr
	}

	var svcErr *types.ServiceError
	if stderrors.As(err, &svcErr) {
		return categorizeServiceError(svcErr)
	}

	if stderrors.Is(err, context.DeadlineExceeded) {
		return NewServiceUnavailableError("request timed out")
	}

	// Default to internal error
	return NewInternalError("unexpected error", err)
}

// categorizeServiceError categorizes a ServiceError by its code
func categorizeServiceError(err *types.ServiceError) *CategorizedError {
	status := http.StatusInternalServerError
	category := CategorySystem

	switch err.Code {
	case CodeValidation:
		status, category = http.StatusBadRequest, CategoryValidation
	case CodeUnauthorized:
		status, category = http.StatusUnauthorized, CategoryAuthentication
	case CodeForbidden:
		status, category = http.StatusForbidden, CategoryAuthorization
	case CodeNotFound:
		status, category = http.StatusNotFound, CategoryNotFound
	case CodeConflict, CodeAlreadyFinalized:
		status, category = http.StatusConflict, CategoryConflict
	case CodeFeeNotConfigured:
		status, category = http.StatusPreconditionFailed, CategoryPrecondition
	case CodeInsufficientBalance:
		status, category = http.StatusPaymentRequired, CategoryPrecondition
	case CodeRateLimitExceeded:
		status, category = http.StatusTooManyRequests, CategoryRateLimit
	}

	return &CategorizedError{
		Category:   category,
		StatusCode: status,
		Code:       err.Code,
		Message:    err.Message,
		Details:    err.Details,
	}
}

// HasCode reports whether err carries the given error code
func HasCode(err error, code string) bool {
	if err == nil {
		return false
	}
	return Categorize(err).Code == code
}

// GetHTTPStatusCode returns the HTTP status code for an error
func GetHTTPStatusCode(err error) int {
	if catErr := Categorize(err); catErr != nil {
		return catErr.StatusCode
	}
	return http.StatusInternalServerError
}

// IsRetryable determines if an error is retryable
func IsRetryable(err error) bool {
	catErr := Categorize(err)
	if catErr == nil {
		return false
	}

	switch catErr.Category {
	case CategoryDatabase, CategoryCache:
		return true
	case CategorySystem:
		return catErr.StatusCode == http.StatusServiceUnavailable ||
			catErr.StatusCode == http.StatusGatewayTimeout
	default:
		return false
	}
}

// IsUserError determines if an error is a user error (4xx)
func IsUserError(err error) bool {
	catErr := Categorize(err)
	if catErr == nil {
		return false
	}

	return catErr.StatusCode >= 400 && catErr.StatusCode < 500
}

// IsSystemError determines if an error is a system error (5xx)
func IsSystemError(err error) bool {
	catErr := Categorize(err)
	if catErr == nil {
		return false
	}

	return catErr.StatusCode >= 500
}

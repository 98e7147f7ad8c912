package errors

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/portal-admin/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", NewValidationError("bad", map[string]string{"name": "required"}), http.StatusBadRequest, CodeValidation},
		{"wrapped insufficient balance", fmt.Errorf("create: %w", NewInsufficientBalanceError("10", "30")), http.StatusPaymentRequired, CodeInsufficientBalance},
		{"fee not configured", NewFeeNotConfiguredError(types.ApplicationPassport, "missing"), http.StatusPreconditionFailed, CodeFeeNotConfigured},
		{"already finalized", NewAlreadyFinalizedError("recharge request", 7, types.ReviewApproved), http.StatusConflict, CodeAlreadyFinalized},
		{"service error", &types.ServiceError{Code: CodeNotFound, Message: "gone"}, http.StatusNotFound, CodeNotFound},
		{"deadline", fmt.Errorf("tx: %w", context.DeadlineExceeded), http.StatusServiceUnavailable, CodeServiceUnavailable},
		{"plain", fmt.Errorf("boom"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat := Categorize(tt.err)
			require.NotNil(t, cat)
			assert.Equal(t, tt.wantStatus, cat.StatusCode)
			assert.Equal(t, tt.wantCode, cat.Code)
			assert.Equal(t, tt.wantStatus, GetHTTPStatusCode(tt.err))
		})
	}

	assert.Nil(t, Categorize(nil))
}

func TestToServiceErrorSanitizesSystemErrors(t *testing.T) {
	err := NewDatabaseError("debit balance", fmt.Errorf("pq: relation users does not exist"))

	svc := err.ToServiceError()
	assert.Equal(t, CodeDatabase, svc.Code)
	assert.NotContains(t, svc.Message, "relation")
	assert.Nil(t, svc.Details)

	userErr := NewValidationError("invalid input", map[string]string{"phone": "required"})
	svc = userErr.ToServiceError()
	assert.Equal(t, "invalid input", svc.Message)
	assert.Contains(t, svc.Details, "fields")
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, IsUserError(NewForbiddenError("no")))
	assert.False(t, IsSystemError(NewForbiddenError("no")))
	assert.True(t, IsSystemError(NewInternalError("x", nil)))
	assert.True(t, IsRetryable(NewDatabaseError("select", nil)))
	assert.False(t, IsRetryable(NewInsufficientBalanceError("0", "1")))
	assert.True(t, HasCode(fmt.Errorf("wrap: %w", NewUnauthorizedError("login")), CodeUnauthorized))
	assert.False(t, HasCode(nil, CodeUnauthorized))
}

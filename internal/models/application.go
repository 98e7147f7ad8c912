package models

import (
	"encoding/json"
	"time"

	"github.com/portal-admin/internal/types"
	"github.com/shopspring/decimal"
)

// Application is a paid service request. Data and FeeApplied are fixed at creation.
type Application struct {
	ID         int64                 `json:"id" db:"id"`
	UserID     int64                 `json:"userId" db:"user_id"`
	Type       types.ApplicationType `json:"type" db:"type"`
	Data       json.RawMessage       `json:"data" db:"data"`
	Status     types.ReviewStatus    `json:"status" db:"status"`
	FeeApplied decimal.Decimal       `json:"feeApplied" db:"fee_applied"`
	ActionBy   *int64                `json:"actionBy,omitempty" db:"action_by"`
	Note       string                `json:"note" db:"note"`
	CreatedAt  time.Time             `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time             `json:"updatedAt" db:"updated_at"`
}

// RechargeRequest asks an administrator to credit a balance after an
// out-of-band payment
type RechargeRequest struct {
	ID            int64              `json:"id" db:"id"`
	UserID        int64              `json:"userId" db:"user_id"`
	Type          types.RechargeType `json:"type" db:"type"`
	FromAccount   string             `json:"fromAccount" db:"from_account"`
	Amount        decimal.Decimal    `json:"amount" db:"amount"`
	TransactionID string             `json:"transactionId" db:"transaction_id"`
	Status        types.ReviewStatus `json:"status" db:"status"`
	ActionBy      *int64             `json:"actionBy,omitempty" db:"action_by"`
	CreatedAt     time.Time          `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time          `json:"updatedAt" db:"updated_at"`
}

// RechargeDecision is the outcome of finalizing a recharge request
type RechargeDecision struct {
	Recharge     *RechargeRequest `json:"recharge"`
	BalanceAfter *decimal.Decimal `json:"balanceAfter,omitempty"`
}

// BdrisApplication records a successful civil-registry submission
type BdrisApplication struct {
	ID              int64           `json:"id" db:"id"`
	UserID          int64           `json:"userId" db:"user_id"`
	ApplicationType string          `json:"applicationType" db:"application_type"`
	UBRN            string          `json:"ubrn" db:"ubrn"`
	Payload         json.RawMessage `json:"payload" db:"payload"`
	Response        json.RawMessage `json:"response" db:"response"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
}

// BdrisApplicationError records a failed civil-registry submission
type BdrisApplicationError struct {
	ID              int64           `json:"id" db:"id"`
	UserID          int64           `json:"userId" db:"user_id"`
	ApplicationType string          `json:"applicationType" db:"application_type"`
	Payload         json.RawMessage `json:"payload" db:"payload"`
	ErrorMessage    string          `json:"errorMessage" db:"error_message"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
}

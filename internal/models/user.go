// Package models provides the persisted data models of the portal admin backend.
package models

import (
	"time"

	"github.com/portal-admin/internal/types"
	"github.com/shopspring/decimal"
)

// User is a portal account. Balance only moves through application debits
// and approved recharges.
type User struct {
	ID            int64            `json:"id" db:"id"`
	Name          string           `json:"name" db:"name"`
	Phone         string           `json:"phone" db:"phone"`
	Email         *string          `json:"email,omitempty" db:"email"`
	Role          types.Role       `json:"role" db:"role"`
	Status        types.UserStatus `json:"status" db:"status"`
	Balance       decimal.Decimal  `json:"balance" db:"balance"`
	CenterName    string           `json:"centerName" db:"center_name"`
	CenterAddress string           `json:"centerAddress" db:"center_address"`
	ParentAgentID *int64           `json:"parentAgentId,omitempty" db:"parent_agent_id"`
	CreatedAt     time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time        `json:"updatedAt" db:"updated_at"`
}

// IsActive reports whether the account may log in and submit work
func (u *User) IsActive() bool {
	return u.Status == types.UserStatusActive
}

// Credentials holds the login material of a user. It is never serialized.
type Credentials struct {
	ID      int64            `db:"id"`
	Role    types.Role       `db:"role"`
	Status  types.UserStatus `db:"status"`
	PinHash string           `db:"pin_hash"`
}

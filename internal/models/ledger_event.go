package models

import (
	"time"

	"github.com/portal-admin/internal/types"
	"github.com/shopspring/decimal"
)

// LedgerEvent is one balance movement, stored in ClickHouse
type LedgerEvent struct {
	UserID        uint64                `json:"userId" ch:"user_id"`
	Kind          types.LedgerEventKind `json:"kind" ch:"kind"`
	Amount        decimal.Decimal       `json:"amount" ch:"amount"`
	BalanceAfter  decimal.Decimal       `json:"balanceAfter" ch:"balance_after"`
	ReferenceType string                `json:"referenceType" ch:"reference_type"`
	ReferenceID   uint64                `json:"referenceId" ch:"reference_id"`
	OccurredAt    time.Time             `json:"occurredAt" ch:"occurred_at"`
}

// DashboardStats summarizes the portal for administrators
type DashboardStats struct {
	UsersByRole           map[string]int64 `json:"usersByRole"`
	ApplicationsByStatus  map[string]int64 `json:"applicationsByStatus"`
	PendingRecharges      int64            `json:"pendingRecharges"`
	PendingRechargeAmount decimal.Decimal  `json:"pendingRechargeAmount"`
	TotalBalance          decimal.Decimal  `json:"totalBalance"`
}

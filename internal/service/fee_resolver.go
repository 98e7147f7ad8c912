package service

import (
	"context"

	"github.com/shopspring/decimal"

	apperrors "github.com/portal-admin/internal/errors"
	"github.com/portal-admin/internal/storage"
	"github.com/portal-admin/internal/types"
)

// LedgerStore runs ledger queries, alone or in one transaction; satisfied by
// *storage.Ledger
type LedgerStore interface {
	Queries() storage.LedgerQueries
	InTx(ctx context.Context, fn func(q storage.LedgerQueries) error) error
}

// FeeResolver decides the fee charged for an application. An agent override
// wins over the default schedule; with neither the fee is not configured.
// Both are read with the same queries, so a quoted fee and a charged fee come
// from the same rows.
type FeeResolver struct {
	ledger LedgerStore
}

// NewFeeResolver creates a fee resolver
func NewFeeResolver(ledger LedgerStore) *FeeResolver {
	return &FeeResolver{ledger: ledger}
}

// ResolveFee resolves the fee outside any transaction
func (r *FeeResolver) ResolveFee(ctx context.Context, userID int64, role types.Role, appType types.ApplicationType) (decimal.Decimal, error) {
	return r.ResolveFeeTx(ctx, r.ledger.Queries(), userID, role, appType)
}

// ResolveFeeTx resolves the fee with q. Inside a transaction the override and
// the default schedule are read in the same snapshot as the debit that
// follows, on the connection the transaction already holds.
func (r *FeeResolver) ResolveFeeTx(ctx context.Context, q storage.LedgerQueries, userID int64, role types.Role, appType types.ApplicationType) (decimal.Decimal, error) {
	if !appType.Valid() {
		return decimal.Zero, apperrors.NewValidationError("invalid application type", map[string]string{
			"type": "unknown application type",
		})
	}

	override, err := q.LatestAgentFee(ctx, userID, role, appType)
	if err != nil {
		return decimal.Zero, err
	}
	if override != nil {
		if override.IsNegative() {
			return decimal.Zero, apperrors.NewFeeNotConfiguredError(appType, "agent fee override is negative")
		}
		if !isCents(*override) {
			return decimal.Zero, apperrors.NewFeeNotConfiguredError(appType, "agent fee override has more than 2 decimal places")
		}
		return *override, nil
	}

	fields, err := q.DefaultFees(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	schedule, err := ParseFeeSchedule(fields)
	if err != nil {
		return decimal.Zero, apperrors.NewFeeNotConfiguredError(appType, "fees setting is invalid")
	}
	fee, ok := schedule[appType]
	if !ok {
		return decimal.Zero, apperrors.NewFeeNotConfiguredError(appType, "no agent override and no default fee")
	}
	return fee, nil
}

package storage

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/portal-admin/internal/models"
	"github.com/portal-admin/internal/types"
)

// LedgerEventRepository appends balance movements to ClickHouse
type LedgerEventRepository struct {
	db *ClickHouseDB
}

// NewLedgerEventRepository creates a new ledger event repository
func NewLedgerEventRepository(db *ClickHouseDB) *LedgerEventRepository {
	return &LedgerEventRepository{db: db}
}

// Append inserts events in one batch
func (r *LedgerEventRepository) Append(ctx context.Context, events ...models.LedgerEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := r.db.Conn().PrepareBatch(ctx, `
		INSERT INTO ledger_events (
			user_id, kind, amount, balance_after, reference_type, reference_id, occurred_at
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, e := range events {
		// Decimal columns accept their string form
		err := batch.Append(
			e.UserID,
			string(e.Kind),
			e.Amount.String(),
			e.BalanceAfter.String(),
			e.ReferenceType,
			e.ReferenceID,
			e.OccurredAt,
		)
		if err != nil {
			return fmt.Errorf("failed to append ledger event: %w", err)
		}
	}

	return batch.Send()
}

// UserHistory returns the most recent events of a user, newest first
func (r *LedgerEventRepository) UserHistory(ctx context.Context, userID uint64, limit int) ([]models.LedgerEvent, error) {
	if limit <= 0 || limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	rows, err := r.db.Conn().Query(ctx, `
		SELECT user_id, kind, toString(amount), toString(balance_after), reference_type, reference_id, occurred_at
		FROM ledger_events
		WHERE user_id = ?
		ORDER BY occurred_at DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger events: %w", err)
	}
	defer rows.Close()

	var events []models.LedgerEvent
	for rows.Next() {
		var (
			e                    models.LedgerEvent
			kind                 string
			amount, balanceAfter string
		)
		if err := rows.Scan(&e.UserID, &kind, &amount, &balanceAfter, &e.ReferenceType, &e.ReferenceID, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger event: %w", err)
		}
		e.Kind = types.LedgerEventKind(kind)
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("invalid ledger amount %q: %w", amount, err)
		}
		if e.BalanceAfter, err = decimal.NewFromString(balanceAfter); err != nil {
			return nil, fmt.Errorf("invalid ledger balance %q: %w", balanceAfter, err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	apperrors "github.com/portal-admin/internal/errors"
	"github.com/portal-admin/internal/models"
	"github.com/portal-admin/internal/types"
)

// ErrInsufficientFunds is returned by DebitBalance when the balance does not
// cover the amount. No row is changed.
var ErrInsufficientFunds = errors.New("insufficient funds")

// FeesModule is the settings module holding the default fee per application type
const FeesModule = "fees"

// LedgerQueries are the statements that move balances and finalize reviews.
// Implementations run against one transaction snapshot.
type LedgerQueries interface {
	// LockUser loads the user and holds a row lock until the transaction ends
	LockUser(ctx context.Context, userID int64) (*models.User, error)
	// GetUser loads the user without locking it
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	// LatestAgentFee returns the newest override for the user, or nil
	LatestAgentFee(ctx context.Context, userID int64, role types.Role, appType types.ApplicationType) (*decimal.Decimal, error)
	// DefaultFees returns the fields of the fees settings module, or nil when
	// the module does not exist
	DefaultFees(ctx context.Context) ([]models.SettingField, error)
	// DebitBalance subtracts amount only if the balance covers it
	DebitBalance(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error)
	// CreditBalance adds amount and returns the new balance
	CreditBalance(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error)
	InsertApplication(ctx context.Context, app *models.Application) (*models.Application, error)
	// FinalizeApplication moves a pending application to status
	FinalizeApplication(ctx context.Context, id int64, status types.ReviewStatus, reviewerID int64, note string) (*models.Application, error)
	// FinalizeRecharge moves a pending recharge request to status
	FinalizeRecharge(ctx context.Context, id int64, status types.ReviewStatus, adminID int64) (*models.RechargeRequest, error)
}

// Ledger runs ledger queries on Postgres
type Ledger struct {
	db *PostgresDB
}

// NewLedger creates a ledger over db
func NewLedger(db *PostgresDB) *Ledger {
	return &Ledger{db: db}
}

// Queries returns ledger queries outside any transaction
func (l *Ledger) Queries() LedgerQueries {
	return &ledgerQueries{q: l.db.Pool()}
}

// InTx runs fn with ledger queries bound to one transaction
func (l *Ledger) InTx(ctx context.Context, fn func(q LedgerQueries) error) error {
	return l.db.InTx(ctx, func(tx pgx.Tx) error {
		return fn(&ledgerQueries{q: tx})
	})
}

type ledgerQueries struct {
	q Querier
}

func (l *ledgerQueries) LockUser(ctx context.Context, userID int64) (*models.User, error) {
	return l.loadUser(ctx, userID, " FOR UPDATE")
}

func (l *ledgerQueries) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	return l.loadUser(ctx, userID, "")
}

func (l *ledgerQueries) loadUser(ctx context.Context, userID int64, lock string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1%s",
		strings.Join(UserSchema.Columns, ", "), lock)

	rows, err := l.q.Query(ctx, query, userID)
	if err != nil {
		return nil, translateError("load user", err)
	}
	user, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[models.User])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("user", userID)
		}
		return nil, translateError("load user", err)
	}
	return user, nil
}

func (l *ledgerQueries) LatestAgentFee(ctx context.Context, userID int64, role types.Role, appType types.ApplicationType) (*decimal.Decimal, error) {
	var query string
	switch role {
	case types.RoleAgent:
		// Rows with a sub-agent belong to that sub-agent, not the agent
		query = `
			SELECT fee_per_application FROM agent_fees
			WHERE agent_id = $1 AND sub_agent_id IS NULL AND application_type = $2
			ORDER BY id DESC
			LIMIT 1
		`
	case types.RoleSubAgent:
		query = `
			SELECT fee_per_application FROM agent_fees
			WHERE sub_agent_id = $1 AND application_type = $2
			ORDER BY id DESC
			LIMIT 1
		`
	default:
		return nil, nil
	}

	var fee decimal.Decimal
	err := l.q.QueryRow(ctx, query, userID, string(appType)).Scan(&fee)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, translateError("resolve agent fee", err)
	}
	return &fee, nil
}

func (l *ledgerQueries) DefaultFees(ctx context.Context) ([]models.SettingField, error) {
	var fields []models.SettingField
	err := l.q.QueryRow(ctx, `SELECT setting_fields FROM settings WHERE module = $1`, FeesModule).Scan(&fields)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, translateError("read default fees", err)
	}
	return fields, nil
}

func (l *ledgerQueries) DebitBalance(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := l.q.QueryRow(ctx, `
		UPDATE users
		SET balance = balance - $2, updated_at = NOW()
		WHERE id = $1 AND balance >= $2
		RETURNING balance
	`, userID, amount).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, ErrInsufficientFunds
		}
		return decimal.Zero, translateError("debit balance", err)
	}
	return balance, nil
}

func (l *ledgerQueries) CreditBalance(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := l.q.QueryRow(ctx, `
		UPDATE users
		SET balance = balance + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING balance
	`, userID, amount).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, apperrors.NewNotFoundError("user", userID)
		}
		return decimal.Zero, translateError("credit balance", err)
	}
	return balance, nil
}

func (l *ledgerQueries) InsertApplication(ctx context.Context, app *models.Application) (*models.Application, error) {
	query := fmt.Sprintf(`
		INSERT INTO applications (user_id, type, data, status, fee_applied)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING %s
	`, strings.Join(ApplicationSchema.Columns, ", "))

	rows, err := l.q.Query(ctx, query, app.UserID, string(app.Type), app.Data, string(types.ReviewPending), app.FeeApplied)
	if err != nil {
		return nil, translateError("insert application", err)
	}
	created, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[models.Application])
	if err != nil {
		return nil, translateError("insert application", err)
	}
	return created, nil
}

func (l *ledgerQueries) FinalizeApplication(ctx context.Context, id int64, status types.ReviewStatus, reviewerID int64, note string) (*models.Application, error) {
	// data and fee_applied are never part of the SET list
	query := fmt.Sprintf(`
		UPDATE applications
		SET status = $2, action_by = $3, note = $4, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING %s
	`, strings.Join(ApplicationSchema.Columns, ", "))

	rows, err := l.q.Query(ctx, query, id, string(status), reviewerID, note)
	if err != nil {
		return nil, translateError("finalize application", err)
	}
	app, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[models.Application])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, l.notPending(ctx, ApplicationSchema, id)
		}
		return nil, translateError("finalize application", err)
	}
	return app, nil
}

func (l *ledgerQueries) FinalizeRecharge(ctx context.Context, id int64, status types.ReviewStatus, adminID int64) (*models.RechargeRequest, error) {
	query := fmt.Sprintf(`
		UPDATE recharge_requests
		SET status = $2, action_by = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING %s
	`, strings.Join(RechargeSchema.Columns, ", "))

	rows, err := l.q.Query(ctx, query, id, string(status), adminID)
	if err != nil {
		return nil, translateError("finalize recharge", err)
	}
	recharge, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[models.RechargeRequest])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, l.notPending(ctx, RechargeSchema, id)
		}
		return nil, translateError("finalize recharge", err)
	}
	return recharge, nil
}

// notPending explains why a guarded update matched no row
func (l *ledgerQueries) notPending(ctx context.Context, schema Schema, id int64) error {
	var status string
	err := l.q.QueryRow(ctx, fmt.Sprintf("SELECT status FROM %s WHERE id = $1", schema.Table), id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFoundError(schema.Resource, id)
		}
		return translateError("read "+schema.Resource+" status", err)
	}
	return apperrors.NewAlreadyFinalizedError(schema.Resource, id, types.ReviewStatus(status))
}

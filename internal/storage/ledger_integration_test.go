package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/portal-admin/internal/errors"
	"github.com/portal-admin/internal/models"
	"github.com/portal-admin/internal/types"
)

// setupTestPostgres connects to TEST_POSTGRES_DSN and migrates it, skipping
// the test when no database is configured
func setupTestPostgres(t *testing.T) *PostgresDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}

	if err := RunMigrations(dsn, "../../migrations/postgres"); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	db, err := NewPostgresDBFromDSN(dsn, 10)
	if err != nil {
		t.Skipf("Skipping test - Postgres not available: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

func createTestUser(t *testing.T, db *PostgresDB, role types.Role, balance string) *models.User {
	t.Helper()

	users := NewUserRepository(db)
	user, err := users.Create(testContext(t), map[string]any{
		"name":     "Test " + string(role),
		"phone":    fmt.Sprintf("017%08d", time.Now().UnixNano()%100000000),
		"pin_hash": "x",
		"role":     string(role),
		"status":   string(types.UserStatusActive),
	})
	require.NoError(t, err)

	if balance != "0" {
		_, err = NewLedger(db).Queries().CreditBalance(testContext(t), user.ID, decimal.RequireFromString(balance))
		require.NoError(t, err)
	}
	return user
}

func TestLedger_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	db := setupTestPostgres(t)
	ledger := NewLedger(db)
	user := createTestUser(t, db, types.RoleEntrepreneur, "30")
	fee := decimal.NewFromInt(30)

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		declined  int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := ledger.InTx(context.Background(), func(q LedgerQueries) error {
				if _, err := q.LockUser(context.Background(), user.ID); err != nil {
					return err
				}
				_, err := q.DebitBalance(context.Background(), user.ID, fee)
				return err
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrInsufficientFunds):
				declined++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, declined)

	after, err := NewUserRepository(db).GetByID(testContext(t), user.ID)
	require.NoError(t, err)
	assert.True(t, after.Balance.IsZero(), "balance = %s", after.Balance)
}

func TestLedger_FinalizeRechargeOnlyOnce(t *testing.T) {
	db := setupTestPostgres(t)
	ledger := NewLedger(db)
	user := createTestUser(t, db, types.RoleAgent, "0")

	recharges := NewRepository[models.RechargeRequest](db.Pool(), RechargeSchema)
	req, err := recharges.Create(testContext(t), map[string]any{
		"user_id":        user.ID,
		"type":           string(types.RechargeBkash),
		"from_account":   "01700000000",
		"amount":         decimal.NewFromInt(50),
		"transaction_id": fmt.Sprintf("TX%d", time.Now().UnixNano()),
	})
	require.NoError(t, err)

	q := ledger.Queries()
	_, err = q.FinalizeRecharge(testContext(t), req.ID, types.ReviewApproved, user.ID)
	require.NoError(t, err)

	_, err = q.FinalizeRecharge(testContext(t), req.ID, types.ReviewApproved, user.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAlreadyFinalized))

	_, err = q.FinalizeRecharge(testContext(t), 987654321, types.ReviewApproved, user.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestLedger_RollbackOnError(t *testing.T) {
	db := setupTestPostgres(t)
	ledger := NewLedger(db)
	user := createTestUser(t, db, types.RoleEntrepreneur, "100")

	boom := errors.New("boom")
	err := ledger.InTx(testContext(t), func(q LedgerQueries) error {
		if _, err := q.DebitBalance(testContext(t), user.ID, decimal.NewFromInt(40)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	after, err := NewUserRepository(db).GetByID(testContext(t), user.ID)
	require.NoError(t, err)
	assert.True(t, after.Balance.Equal(decimal.NewFromInt(100)))
}

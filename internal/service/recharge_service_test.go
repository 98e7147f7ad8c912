package service

import (
	"context"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/portal-admin/internal/errors"
	"github.com/portal-admin/internal/models"
	"github.com/portal-admin/internal/types"
)

type rechargeFixture struct {
	ledger   *memLedger
	store    *memStore[models.RechargeRequest]
	notifier *countingNotifier
	sink     *memSink
	service  *RechargeService
}

func newRechargeFixture() *rechargeFixture {
	ledger := newMemLedger()
	store := newMemStore(func(id int64, values map[string]any) *models.RechargeRequest {
		req := &models.RechargeRequest{ID: id, Status: types.ReviewPending}
		req.UserID, _ = values["user_id"].(int64)
		req.Amount, _ = values["amount"].(decimal.Decimal)
		req.TransactionID, _ = values["transaction_id"].(string)
		return req
	}, func(r *models.RechargeRequest) int64 { return r.UserID })
	notifier := &countingNotifier{}
	sink := &memSink{}

	return &rechargeFixture{
		ledger:   ledger,
		store:    store,
		notifier: notifier,
		sink:     sink,
		service:  NewRechargeService(ledger, store, notifier, NewLedgerRecorder(sink, &recordingPool{}, nil), nil),
	}
}

// Scenario D: approval credits once; re-approval is refused
func TestUpdateRechargeStatus_ApproveOnce(t *testing.T) {
	f := newRechargeFixture()
	f.ledger.addUser(agentID, types.RoleAgent, "20")
	id := f.ledger.addRecharge(agentID, "50")

	decision, err := f.service.UpdateStatus(context.Background(), id, adminID, types.ReviewApproved)
	require.NoError(t, err)
	assert.Equal(t, types.ReviewApproved, decision.Recharge.Status)
	require.NotNil(t, decision.BalanceAfter)
	assert.True(t, decision.BalanceAfter.Equal(decimal.NewFromInt(70)))
	assert.True(t, f.ledger.balance(agentID).Equal(decimal.NewFromInt(70)))

	_, err = f.service.UpdateStatus(context.Background(), id, adminID, types.ReviewApproved)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAlreadyFinalized))
	assert.True(t, f.ledger.balance(agentID).Equal(decimal.NewFromInt(70)), "balance must not be credited twice")

	require.Len(t, f.sink.events, 1)
	assert.Equal(t, types.LedgerCredit, f.sink.events[0].Kind)
}

func TestUpdateRechargeStatus_RejectDoesNotCredit(t *testing.T) {
	f := newRechargeFixture()
	f.ledger.addUser(agentID, types.RoleAgent, "20")
	id := f.ledger.addRecharge(agentID, "50")

	decision, err := f.service.UpdateStatus(context.Background(), id, adminID, types.ReviewRejected)
	require.NoError(t, err)
	assert.Nil(t, decision.BalanceAfter)
	assert.True(t, f.ledger.balance(agentID).Equal(decimal.NewFromInt(20)))
	assert.Empty(t, f.sink.events)

	_, err = f.service.UpdateStatus(context.Background(), id, adminID, types.ReviewApproved)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAlreadyFinalized))
	assert.True(t, f.ledger.balance(agentID).Equal(decimal.NewFromInt(20)))
}

func TestUpdateRechargeStatus_Errors(t *testing.T) {
	f := newRechargeFixture()

	_, err := f.service.UpdateStatus(context.Background(), 1, adminID, types.ReviewPending)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = f.service.UpdateStatus(context.Background(), 404, adminID, types.ReviewApproved)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	// A missing owner rolls the status change back
	id := f.ledger.addRecharge(777, "10")
	_, err = f.service.UpdateStatus(context.Background(), id, adminID, types.ReviewApproved)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	f.ledger.addUser(777, types.RoleAgent, "0")
	_, err = f.service.UpdateStatus(context.Background(), id, adminID, types.ReviewApproved)
	require.NoError(t, err)
	assert.True(t, f.ledger.balance(777).Equal(decimal.NewFromInt(10)))
}

func TestCreateRecharge(t *testing.T) {
	f := newRechargeFixture()
	f.ledger.addUser(agentID, types.RoleAgent, "0")

	req, err := f.service.Create(context.Background(), agentID, CreateRechargeInput{
		Type:          "bkash",
		FromAccount:   " 01711111111 ",
		Amount:        decimal.RequireFromString("500.50"),
		TransactionID: "TX-1",
	})
	require.NoError(t, err)
	assert.Equal(t, agentID, req.UserID)
	assert.Equal(t, 1, f.notifier.recharges)
	assert.Equal(t, "01711111111", f.store.created[0]["from_account"])

	tests := []struct {
		name      string
		input     CreateRechargeInput
		wantField string
	}{
		{name: "zero amount", input: CreateRechargeInput{Type: "bkash", FromAccount: "1", Amount: decimal.Zero, TransactionID: "a"}, wantField: "amount"},
		{name: "negative amount", input: CreateRechargeInput{Type: "bkash", FromAccount: "1", Amount: decimal.NewFromInt(-5), TransactionID: "a"}, wantField: "amount"},
		{name: "too precise", input: CreateRechargeInput{Type: "bkash", FromAccount: "1", Amount: decimal.RequireFromString("1.005"), TransactionID: "a"}, wantField: "amount"},
		{name: "unknown type", input: CreateRechargeInput{Type: "paypal", FromAccount: "1", Amount: decimal.NewFromInt(5), TransactionID: "a"}, wantField: "type"},
		{name: "missing transaction", input: CreateRechargeInput{Type: "nagad", FromAccount: "1", Amount: decimal.NewFromInt(5)}, wantField: "transactionId"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Create(context.Background(), agentID, tt.input)
			require.Error(t, err)
			fields, _ := apperrors.Categorize(err).Details["fields"].(map[string]string)
			assert.Contains(t, fields, tt.wantField)
		})
	}
	assert.Equal(t, 1, f.notifier.recharges)
}

func TestCreateRecharge_AccountMustBeActive(t *testing.T) {
	f := newRechargeFixture()
	input := CreateRechargeInput{Type: "nagad", FromAccount: "01722222222", Amount: decimal.NewFromInt(100), TransactionID: "TX-9"}

	_, err := f.service.Create(context.Background(), 404, input)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound), "got %v", err)

	f.ledger.addUser(agentID, types.RoleAgent, "0")
	f.ledger.setStatus(agentID, types.UserStatusSuspended)
	_, err = f.service.Create(context.Background(), agentID, input)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden), "got %v", err)

	assert.Empty(t, f.store.created)
	assert.Equal(t, 0, f.notifier.recharges)
}

// balanceOp is one generated step: a recharge decision or an application
type balanceOp struct {
	Recharge bool
	Approve  bool
	Amount   int64
}

// Any interleaving of approvals, rejections and application debits keeps the
// balance non-negative and equal to credits minus charged fees.
func TestPropertyBalanceNeverNegative(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	opGen := gen.Struct(reflect.TypeOf(balanceOp{}), map[string]gopter.Gen{
		"Recharge": gen.Bool(),
		"Approve":  gen.Bool(),
		"Amount":   gen.Int64Range(1, 200),
	})

	properties.Property("balance stays non-negative and consistent", prop.ForAll(
		func(ops []balanceOp) bool {
			ledger := newMemLedger()
			ledger.addUser(agentID, types.RoleAgent, "0")
			ledger.setDefaultFees(FeeSchedule{types.ApplicationPassport: decimal.NewFromInt(40)})
			fees := NewFeeResolver(ledger)
			apps := NewApplicationService(ledger, fees, newMemStore[models.Application](nil, nil), nil, nil, nil)
			recharges := NewRechargeService(ledger, newMemStore[models.RechargeRequest](nil, nil), nil, nil, nil)

			expected := decimal.Zero
			for _, o := range ops {
				if o.Recharge {
					id := ledger.addRecharge(agentID, decimal.NewFromInt(o.Amount).String())
					status := types.ReviewRejected
					if o.Approve {
						status = types.ReviewApproved
					}
					if _, err := recharges.UpdateStatus(context.Background(), id, adminID, status); err != nil {
						return false
					}
					if o.Approve {
						expected = expected.Add(decimal.NewFromInt(o.Amount))
					}
					// A second decision never moves the balance
					_, _ = recharges.UpdateStatus(context.Background(), id, adminID, types.ReviewApproved)
				} else {
					_, err := apps.Create(context.Background(), agentID, passportInput())
					switch {
					case err == nil:
						expected = expected.Sub(decimal.NewFromInt(40))
					case !apperrors.HasCode(err, apperrors.CodeInsufficientBalance):
						return false
					}
				}

				balance := ledger.balance(agentID)
				if balance.IsNegative() || !balance.Equal(expected) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(opGen),
	))

	properties.TestingRun(t)
}

package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	apperrors "github.com/portal-admin/internal/errors"
	"github.com/portal-admin/internal/logging"
	"github.com/portal-admin/internal/metrics"
	"github.com/portal-admin/internal/models"
	"github.com/portal-admin/internal/storage"
	"github.com/portal-admin/internal/types"
)

// RechargeNotifier announces new recharge requests; satisfied by *notify.Notifier
type RechargeNotifier interface {
	RechargeRequested(req *models.RechargeRequest)
}

// RechargeWriter inserts recharge requests; satisfied by *storage.Repository[models.RechargeRequest]
type RechargeWriter interface {
	Reader[models.RechargeRequest]
	Create(ctx context.Context, values map[string]any) (*models.RechargeRequest, error)
}

// CreateRechargeInput is the body of a recharge request
type CreateRechargeInput struct {
	Type          string          `json:"type" validate:"required,rechargetype"`
	FromAccount   string          `json:"fromAccount" validate:"required,max=64"`
	Amount        decimal.Decimal `json:"amount" validate:"required,gt=0"`
	TransactionID string          `json:"transactionId" validate:"required,max=128"`
}

// RechargeService records recharge requests and credits balances on approval
type RechargeService struct {
	ledger   LedgerStore
	store    RechargeWriter
	reader   *OwnedReader[models.RechargeRequest]
	notifier RechargeNotifier
	events   *LedgerRecorder
	logger   *logging.Logger
}

// NewRechargeService creates the recharge service. notifier and events may be nil.
func NewRechargeService(ledger LedgerStore, store RechargeWriter, notifier RechargeNotifier, events *LedgerRecorder, logger *logging.Logger) *RechargeService {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &RechargeService{
		ledger: ledger,
		store:  store,
		reader: NewOwnedReader[models.RechargeRequest](store, storage.RechargeSchema.Resource, func(r *models.RechargeRequest) int64 {
			return r.UserID
		}),
		notifier: notifier,
		events:   events,
		logger:   logger.WithField("component", "recharges"),
	}
}

// Create records a pending recharge request for userID
func (s *RechargeService) Create(ctx context.Context, userID int64, input CreateRechargeInput) (*models.RechargeRequest, error) {
	if err := validateInput(&input); err != nil {
		return nil, err
	}

	// A token outlives a suspension, so the account is checked on every request
	user, err := s.ledger.Queries().GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive() {
		return nil, apperrors.NewForbiddenError("account is " + string(user.Status))
	}

	req, err := s.store.Create(ctx, map[string]any{
		"user_id":        userID,
		"type":           input.Type,
		"from_account":   strings.TrimSpace(input.FromAccount),
		"amount":         input.Amount,
		"transaction_id": strings.TrimSpace(input.TransactionID),
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.RechargeRequested(req)
	}
	return req, nil
}

// UpdateStatus finalizes a pending request. Approval credits the owner in the
// same transaction; a request that is no longer pending is never credited again.
func (s *RechargeService) UpdateStatus(ctx context.Context, id, adminID int64, status types.ReviewStatus) (*models.RechargeDecision, error) {
	if !types.ReviewPending.CanTransitionTo(status) {
		return nil, apperrors.NewInvalidParameterError("status", "must be approved or rejected")
	}

	var decision models.RechargeDecision
	err := s.ledger.InTx(ctx, func(q storage.LedgerQueries) error {
		req, err := q.FinalizeRecharge(ctx, id, status, adminID)
		if err != nil {
			return err
		}
		decision.Recharge = req

		if status != types.ReviewApproved {
			return nil
		}
		balance, err := q.CreditBalance(ctx, req.UserID, req.Amount)
		if err != nil {
			return err
		}
		decision.BalanceAfter = &balance
		return nil
	})
	if err != nil {
		metrics.RecordWorkflow("update_recharge", apperrors.Categorize(err).Code)
		return nil, err
	}
	metrics.RecordWorkflow("update_recharge", "ok")

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"recharge_id": id,
		"status":      status,
		"admin_id":    adminID,
	}).Info("recharge finalized")

	if decision.BalanceAfter != nil {
		req := decision.Recharge
		s.events.Record(req.UserID, types.LedgerCredit, req.Amount, *decision.BalanceAfter, "recharge", req.ID)
	}
	return &decision, nil
}

// List returns recharge requests visible to the caller
func (s *RechargeService) List(ctx context.Context, params storage.ListParams) (*storage.Page[models.RechargeRequest], error) {
	return s.reader.List(ctx, params)
}

// Get returns one recharge request visible to the caller
func (s *RechargeService) Get(ctx context.Context, id int64) (*models.RechargeRequest, error) {
	return s.reader.Get(ctx, id)
}

package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/portal-admin/internal/errors"
	"github.com/portal-admin/internal/logging"
	"github.com/portal-admin/internal/metrics"
	"github.com/portal-admin/internal/models"
	"github.com/portal-admin/internal/storage"
	"github.com/portal-admin/internal/types"
	"github.com/portal-admin/internal/worker"
)

// LedgerSink stores balance movement events; satisfied by
// *storage.LedgerEventRepository
type LedgerSink interface {
	Append(ctx context.Context, events ...models.LedgerEvent) error
	UserHistory(ctx context.Context, userID uint64, limit int) ([]models.LedgerEvent, error)
}

// TaskSubmitter queues background work; satisfied by *worker.Pool
type TaskSubmitter interface {
	Submit(task worker.Task) error
}

// LedgerRecorder appends balance movements to the event sink off the request
// path. A nil sink records metrics only.
type LedgerRecorder struct {
	sink   LedgerSink
	pool   TaskSubmitter
	logger *logging.Logger
	now    func() time.Time
}

// NewLedgerRecorder creates a recorder. sink and pool may be nil.
func NewLedgerRecorder(sink LedgerSink, pool TaskSubmitter, logger *logging.Logger) *LedgerRecorder {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &LedgerRecorder{
		sink:   sink,
		pool:   pool,
		logger: logger.WithField("component", "ledger_events"),
		now:    time.Now,
	}
}

// Record queues one movement. Failures are logged, never returned.
func (l *LedgerRecorder) Record(userID int64, kind types.LedgerEventKind, amount, balanceAfter decimal.Decimal, refType string, refID int64) {
	metrics.RecordLedgerMovement(string(kind), amount)

	if l == nil || l.sink == nil || l.pool == nil {
		return
	}

	event := models.LedgerEvent{
		UserID:        uint64(userID),
		Kind:          kind,
		Amount:        amount,
		BalanceAfter:  balanceAfter,
		ReferenceType: refType,
		ReferenceID:   uint64(refID),
		OccurredAt:    l.now().UTC(),
	}

	err := l.pool.Submit(worker.Task{
		Name: "ledger.append",
		Run: func(ctx context.Context) error {
			return l.sink.Append(ctx, event)
		},
	})
	if err != nil {
		l.logger.WithError(err).WithFields(map[string]interface{}{
			"user_id":      userID,
			"reference_id": refID,
		}).Warn("ledger event dropped")
	}
}

// DefaultHistoryLimit is the number of movements returned when no limit is given
const DefaultHistoryLimit = 50

// History returns the newest movements of a user
func (l *LedgerRecorder) History(ctx context.Context, userID int64, limit int) ([]models.LedgerEvent, error) {
	if l == nil || l.sink == nil {
		return nil, apperrors.NewServiceUnavailableError("ledger history")
	}
	switch {
	case limit < 1:
		limit = DefaultHistoryLimit
	case limit > storage.MaxPageLimit:
		limit = storage.MaxPageLimit
	}
	events, err := l.sink.UserHistory(ctx, uint64(userID), limit)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []models.LedgerEvent{}
	}
	return events, nil
}

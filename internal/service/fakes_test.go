package service

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/portal-admin/internal/errors"
	"github.com/portal-admin/internal/models"
	"github.com/portal-admin/internal/storage"
	"github.com/portal-admin/internal/types"
	"github.com/portal-admin/internal/worker"
)

// memState is the data behind memLedger
type memState struct {
	users     map[int64]models.User
	fees      []models.AgentFee
	apps      map[int64]models.Application
	recharges map[int64]models.RechargeRequest
	defaults  []models.SettingField
	nextID    int64
}

func (s *memState) clone() *memState {
	c := &memState{
		users:     make(map[int64]models.User, len(s.users)),
		fees:      append([]models.AgentFee(nil), s.fees...),
		apps:      make(map[int64]models.Application, len(s.apps)),
		recharges: make(map[int64]models.RechargeRequest, len(s.recharges)),
		defaults:  append([]models.SettingField(nil), s.defaults...),
		nextID:    s.nextID,
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.apps {
		c.apps[k] = v
	}
	for k, v := range s.recharges {
		c.recharges[k] = v
	}
	return c
}

// memLedger is an in-memory LedgerStore. Transactions are serialized and
// work on a copy that replaces the state only on commit.
type memLedger struct {
	mu    sync.Mutex
	state *memState
	// failInsert makes InsertApplication fail after the debit
	failInsert error
}

func newMemLedger() *memLedger {
	return &memLedger{state: &memState{
		users:     map[int64]models.User{},
		apps:      map[int64]models.Application{},
		recharges: map[int64]models.RechargeRequest{},
		nextID:    1000,
	}}
}

func (m *memLedger) addUser(id int64, role types.Role, balance string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.users[id] = models.User{
		ID:      id,
		Name:    "user",
		Role:    role,
		Status:  types.UserStatusActive,
		Balance: decimal.RequireFromString(balance),
	}
}

func (m *memLedger) setStatus(id int64, status types.UserStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.state.users[id]
	u.Status = status
	m.state.users[id] = u
}

func (m *memLedger) addFee(agentID int64, subAgentID *int64, appType types.ApplicationType, fee string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.nextID++
	m.state.fees = append(m.state.fees, models.AgentFee{
		ID:                m.state.nextID,
		AgentID:           agentID,
		SubAgentID:        subAgentID,
		ApplicationType:   appType,
		FeePerApplication: decimal.RequireFromString(fee),
	})
}

// setDefaultFees stores schedule as the fees settings module
func (m *memLedger) setDefaultFees(schedule FeeSchedule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.defaults = nil
	for appType, fee := range schedule {
		m.state.defaults = append(m.state.defaults, models.SettingField{
			Name:  string(appType),
			Type:  "number",
			Value: fee.String(),
		})
	}
}

// setDefaultFields stores raw fees module fields
func (m *memLedger) setDefaultFields(fields ...models.SettingField) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.defaults = fields
}

func (m *memLedger) addRecharge(userID int64, amount string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.nextID++
	id := m.state.nextID
	m.state.recharges[id] = models.RechargeRequest{
		ID:     id,
		UserID: userID,
		Type:   types.RechargeBkash,
		Amount: decimal.RequireFromString(amount),
		Status: types.ReviewPending,
	}
	return id
}

func (m *memLedger) balance(id int64) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.users[id].Balance
}

func (m *memLedger) applicationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.apps)
}

func (m *memLedger) application(id int64) models.Application {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.apps[id]
}

func (m *memLedger) Queries() storage.LedgerQueries {
	return &memQueries{ledger: m, autoCommit: true}
}

func (m *memLedger) InTx(ctx context.Context, fn func(q storage.LedgerQueries) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.state.clone()
	if err := fn(&memQueries{ledger: m, state: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.state = work
	return nil
}

type memQueries struct {
	ledger     *memLedger
	state      *memState
	autoCommit bool
}

// with runs fn against the transaction state, or the live state under the lock
func (q *memQueries) with(fn func(s *memState) error) error {
	if !q.autoCommit {
		return fn(q.state)
	}
	q.ledger.mu.Lock()
	defer q.ledger.mu.Unlock()
	return fn(q.ledger.state)
}

func (q *memQueries) LockUser(ctx context.Context, userID int64) (*models.User, error) {
	var user *models.User
	err := q.with(func(s *memState) error {
		u, ok := s.users[userID]
		if !ok {
			return apperrors.NewNotFoundError("user", userID)
		}
		user = &u
		return nil
	})
	return user, err
}

func (q *memQueries) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	return q.LockUser(ctx, userID)
}

func (q *memQueries) LatestAgentFee(ctx context.Context, userID int64, role types.Role, appType types.ApplicationType) (*decimal.Decimal, error) {
	var fee *decimal.Decimal
	err := q.with(func(s *memState) error {
		var matches []models.AgentFee
		for _, f := range s.fees {
			if f.ApplicationType != appType {
				continue
			}
			switch role {
			case types.RoleAgent:
				if f.AgentID == userID && f.SubAgentID == nil {
					matches = append(matches, f)
				}
			case types.RoleSubAgent:
				if f.SubAgentID != nil && *f.SubAgentID == userID {
					matches = append(matches, f)
				}
			}
		}
		sort.Slice(matches, func(i, j int) bool { return matches[i].ID > matches[j].ID })
		if len(matches) > 0 {
			f := matches[0].FeePerApplication
			fee = &f
		}
		return nil
	})
	return fee, err
}

func (q *memQueries) DefaultFees(ctx context.Context) ([]models.SettingField, error) {
	var fields []models.SettingField
	err := q.with(func(s *memState) error {
		fields = append(fields, s.defaults...)
		return nil
	})
	return fields, err
}

func (q *memQueries) DebitBalance(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	var after decimal.Decimal
	err := q.with(func(s *memState) error {
		u, ok := s.users[userID]
		if !ok || u.Balance.LessThan(amount) {
			return storage.ErrInsufficientFunds
		}
		u.Balance = u.Balance.Sub(amount)
		s.users[userID] = u
		after = u.Balance
		return nil
	})
	return after, err
}

func (q *memQueries) CreditBalance(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	var after decimal.Decimal
	err := q.with(func(s *memState) error {
		u, ok := s.users[userID]
		if !ok {
			return apperrors.NewNotFoundError("user", userID)
		}
		u.Balance = u.Balance.Add(amount)
		s.users[userID] = u
		after = u.Balance
		return nil
	})
	return after, err
}

func (q *memQueries) InsertApplication(ctx context.Context, app *models.Application) (*models.Application, error) {
	if q.ledger.failInsert != nil {
		return nil, q.ledger.failInsert
	}
	var created models.Application
	err := q.with(func(s *memState) error {
		s.nextID++
		created = *app
		created.ID = s.nextID
		created.Status = types.ReviewPending
		created.Data = append(json.RawMessage(nil), app.Data...)
		created.CreatedAt = time.Now()
		created.UpdatedAt = created.CreatedAt
		s.apps[created.ID] = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (q *memQueries) FinalizeApplication(ctx context.Context, id int64, status types.ReviewStatus, reviewerID int64, note string) (*models.Application, error) {
	var app models.Application
	err := q.with(func(s *memState) error {
		a, ok := s.apps[id]
		if !ok {
			return apperrors.NewNotFoundError("application", id)
		}
		if a.Status != types.ReviewPending {
			return apperrors.NewAlreadyFinalizedError("application", id, a.Status)
		}
		a.Status = status
		a.ActionBy = &reviewerID
		a.Note = note
		s.apps[id] = a
		app = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (q *memQueries) FinalizeRecharge(ctx context.Context, id int64, status types.ReviewStatus, adminID int64) (*models.RechargeRequest, error) {
	var req models.RechargeRequest
	err := q.with(func(s *memState) error {
		r, ok := s.recharges[id]
		if !ok {
			return apperrors.NewNotFoundError("recharge request", id)
		}
		if r.Status != types.ReviewPending {
			return apperrors.NewAlreadyFinalizedError("recharge request", id, r.Status)
		}
		r.Status = status
		r.ActionBy = &adminID
		s.recharges[id] = r
		req = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// memStore is an in-memory Store[T] keyed by an id accessor
type memStore[T any] struct {
	mu      sync.Mutex
	rows    map[int64]*T
	nextID  int64
	build   func(id int64, values map[string]any) *T
	ownerOf func(*T) int64
	created []map[string]any
}

func newMemStore[T any](build func(id int64, values map[string]any) *T, ownerOf func(*T) int64) *memStore[T] {
	return &memStore[T]{rows: map[int64]*T{}, build: build, ownerOf: ownerOf}
}

func (m *memStore[T]) List(ctx context.Context, params storage.ListParams) (*storage.Page[T], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	params = params.Normalize()

	ids := make([]int64, 0, len(m.rows))
	for id, row := range m.rows {
		if params.OwnerID != nil && m.ownerOf != nil && m.ownerOf(row) != *params.OwnerID {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })

	data := []*T{}
	for i := params.Offset(); i < len(ids) && len(data) < params.Limit; i++ {
		data = append(data, m.rows[ids[i]])
	}
	return &storage.Page[T]{Data: data, TotalCount: int64(len(ids)), Page: params.Page, Limit: params.Limit}, nil
}

func (m *memStore[T]) GetByID(ctx context.Context, id int64) (*T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("row", id)
	}
	return row, nil
}

func (m *memStore[T]) Create(ctx context.Context, values map[string]any) (*T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	row := m.build(m.nextID, values)
	m.rows[m.nextID] = row
	m.created = append(m.created, values)
	return row, nil
}

func (m *memStore[T]) Update(ctx context.Context, id int64, values map[string]any) (*T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("row", id)
	}
	return row, nil
}

func (m *memStore[T]) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return apperrors.NewNotFoundError("row", id)
	}
	delete(m.rows, id)
	return nil
}

// recordingPool runs tasks inline and remembers their names
type recordingPool struct {
	mu    sync.Mutex
	names []string
	errs  []error
}

func (p *recordingPool) Submit(task worker.Task) error {
	err := task.Run(context.Background())
	p.mu.Lock()
	defer p.mu.Unlock()
	p.names = append(p.names, task.Name)
	p.errs = append(p.errs, err)
	return nil
}

// memSink collects ledger events
type memSink struct {
	mu     sync.Mutex
	events []models.LedgerEvent
}

func (s *memSink) Append(ctx context.Context, events ...models.LedgerEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return nil
}

func (s *memSink) UserHistory(ctx context.Context, userID uint64, limit int) ([]models.LedgerEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.LedgerEvent
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		if s.events[i].UserID == userID {
			out = append(out, s.events[i])
		}
	}
	return out, nil
}

// countingNotifier counts workflow notifications
type countingNotifier struct {
	mu           sync.Mutex
	applications int
	recharges    int
}

func (n *countingNotifier) ApplicationSubmitted(*models.Application) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.applications++
}

func (n *countingNotifier) RechargeRequested(*models.RechargeRequest) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.recharges++
}

func int64Ptr(v int64) *int64 { return &v }

func mustDecimal(s string) decimal.Decimal { return decimal.RequireFromString(s) }

package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/portal-admin/internal/errors"
	"github.com/portal-admin/internal/models"
	"github.com/portal-admin/internal/storage"
	"github.com/portal-admin/internal/types"
)

// memSettings is an in-memory SettingsStore that counts reads
type memSettings struct {
	mu      sync.Mutex
	modules map[string][]models.SettingField
	reads   int
}

func newMemSettings() *memSettings {
	return &memSettings{modules: map[string][]models.SettingField{}}
}

func (m *memSettings) GetByModule(ctx context.Context, module string) (*models.Setting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	fields, ok := m.modules[module]
	if !ok {
		return nil, apperrors.NewNotFoundError("setting", module)
	}
	return &models.Setting{Module: module, SettingFields: fields}, nil
}

func (m *memSettings) Upsert(ctx context.Context, module string, fields []models.SettingField) (*models.Setting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modules[module] = fields
	return &models.Setting{Module: module, SettingFields: fields}, nil
}

func setupSettingsCache(t *testing.T) (*storage.SettingsCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return storage.NewSettingsCache(storage.NewRedisCacheFromClient(client), time.Minute), mr
}

func TestParseFeeSchedule(t *testing.T) {
	schedule, err := ParseFeeSchedule([]models.SettingField{
		{Name: "Birth Registration", Type: "number", Value: "50"},
		{Name: "passport", Type: "number", Value: " 120.75 "},
		{Name: "death_registration", Type: "number", Value: "12.500"},
	})
	require.NoError(t, err)
	assert.True(t, schedule[types.ApplicationBirthRegistration].Equal(decimal.NewFromInt(50)))
	assert.True(t, schedule[types.ApplicationPassport].Equal(decimal.RequireFromString("120.75")))
	assert.True(t, schedule[types.ApplicationDeathRegistration].Equal(decimal.RequireFromString("12.5")))

	tests := []struct {
		name   string
		fields []models.SettingField
		bad    string
	}{
		{name: "unknown type", fields: []models.SettingField{{Name: "visa", Value: "1"}}, bad: "visa"},
		{name: "not a number", fields: []models.SettingField{{Name: "passport", Value: "cheap"}}, bad: "passport"},
		{name: "negative", fields: []models.SettingField{{Name: "passport", Value: "-1"}}, bad: "passport"},
		{name: "finer than cents", fields: []models.SettingField{{Name: "passport", Value: "12.505"}}, bad: "passport"},
		{name: "duplicate", fields: []models.SettingField{{Name: "passport", Value: "1"}, {Name: "Passport", Value: "2"}}, bad: "Passport"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFeeSchedule(tt.fields)
			require.Error(t, err)
			fields, _ := apperrors.Categorize(err).Details["fields"].(map[string]string)
			assert.Contains(t, fields, tt.bad)
		})
	}
}

func TestParseNotifyList(t *testing.T) {
	emails, err := ParseNotifyList([]models.SettingField{
		{Name: "primary", Value: "Ops@Portal.gov.bd"},
		{Name: "others", Value: "a@portal.gov.bd, ops@portal.gov.bd,,"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a@portal.gov.bd", "ops@portal.gov.bd"}, emails)

	_, err = ParseNotifyList([]models.SettingField{{Name: "primary", Value: "not-an-email"}})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestSettingsService_CachesAndInvalidates(t *testing.T) {
	store := newMemSettings()
	store.modules[ModuleFees] = []models.SettingField{{Name: "passport", Value: "30"}}
	cache, mr := setupSettingsCache(t)
	svc := NewSettingsService(store, cache, nil)
	ctx := context.Background()

	schedule, err := svc.FeeSchedule(ctx)
	require.NoError(t, err)
	assert.True(t, schedule[types.ApplicationPassport].Equal(decimal.NewFromInt(30)))
	assert.True(t, mr.Exists("settings:fees"))

	_, err = svc.FeeSchedule(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, store.reads, "second read should hit the cache")

	_, err = svc.UpsertModule(ctx, " FEES ", []models.SettingField{{Name: "passport", Value: "45"}})
	require.NoError(t, err)
	assert.False(t, mr.Exists("settings:fees"))

	schedule, err = svc.FeeSchedule(ctx)
	require.NoError(t, err)
	assert.True(t, schedule[types.ApplicationPassport].Equal(decimal.NewFromInt(45)))
}

func TestSettingsService_RejectsInvalidTypedModules(t *testing.T) {
	store := newMemSettings()
	svc := NewSettingsService(store, nil, nil)

	_, err := svc.UpsertModule(context.Background(), ModuleFees, []models.SettingField{{Name: "passport", Value: "-3"}})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	assert.NotContains(t, store.modules, ModuleFees)

	_, err = svc.UpsertModule(context.Background(), ModuleNotifyEmails, []models.SettingField{{Name: "to", Value: "nobody"}})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	// Untyped modules are stored as given
	_, err = svc.UpsertModule(context.Background(), "site", []models.SettingField{{Name: "title", Value: "Portal"}})
	require.NoError(t, err)
}

func TestSettingsService_MissingModulesAreEmpty(t *testing.T) {
	svc := NewSettingsService(newMemSettings(), nil, nil)

	schedule, err := svc.FeeSchedule(context.Background())
	require.NoError(t, err)
	assert.Empty(t, schedule)

	emails, err := svc.NotifyList(context.Background())
	require.NoError(t, err)
	assert.Empty(t, emails)

	require.NoError(t, svc.Preload(context.Background()))
}

func TestSettingsService_PreloadDropsStaleCache(t *testing.T) {
	store := newMemSettings()
	store.modules[ModuleFees] = []models.SettingField{{Name: "passport", Value: "30"}}
	cache, mr := setupSettingsCache(t)
	require.NoError(t, cache.Store(context.Background(), ModuleFees, []models.SettingField{{Name: "passport", Value: "free"}}))

	svc := NewSettingsService(store, cache, nil)
	require.NoError(t, svc.Preload(context.Background()))
	assert.True(t, mr.Exists("settings:fees"), "preload caches the stored module")
}

func TestSettingsService_PreloadFailsOnBadFees(t *testing.T) {
	store := newMemSettings()
	store.modules[ModuleFees] = []models.SettingField{{Name: "passport", Value: "free"}}
	svc := NewSettingsService(store, nil, nil)

	err := svc.Preload(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fees setting")
}

func TestSettingsService_CacheOutageFallsBackToStore(t *testing.T) {
	store := newMemSettings()
	store.modules[ModuleNotifyEmails] = []models.SettingField{{Name: "to", Value: "ops@portal.gov.bd"}}
	cache, mr := setupSettingsCache(t)
	svc := NewSettingsService(store, cache, nil)
	mr.Close()

	emails, err := svc.NotifyList(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ops@portal.gov.bd"}, emails)
}

func TestFeeResolver(t *testing.T) {
	ledger := newMemLedger()
	sub := subAgentID
	ledger.addFee(agentID, &sub, types.ApplicationPassport, "20")
	ledger.addFee(agentID, nil, types.ApplicationPassport, "35")
	ledger.addFee(agentID, &sub, types.ApplicationBirthCorrection, "5")
	ledger.setDefaultFees(FeeSchedule{
		types.ApplicationPassport:        decimal.NewFromInt(60),
		types.ApplicationBirthCorrection: decimal.NewFromInt(15),
	})
	resolver := NewFeeResolver(ledger)
	ctx := context.Background()

	tests := []struct {
		name    string
		userID  int64
		role    types.Role
		appType types.ApplicationType
		want    string
		code    string
	}{
		{name: "agent uses own override", userID: agentID, role: types.RoleAgent, appType: types.ApplicationPassport, want: "35"},
		{name: "sub agent override", userID: subAgentID, role: types.RoleSubAgent, appType: types.ApplicationPassport, want: "20"},
		{name: "sub agent rows do not apply to the agent", userID: agentID, role: types.RoleAgent, appType: types.ApplicationBirthCorrection, want: "15"},
		{name: "entrepreneur uses default", userID: entrepreneurID, role: types.RoleEntrepreneur, appType: types.ApplicationPassport, want: "60"},
		{name: "not configured", userID: entrepreneurID, role: types.RoleEntrepreneur, appType: types.ApplicationDeathRegistration, code: apperrors.CodeFeeNotConfigured},
		{name: "unknown type", userID: agentID, role: types.RoleAgent, appType: "visa", code: apperrors.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fee, err := resolver.ResolveFee(ctx, tt.userID, tt.role, tt.appType)
			if tt.code != "" {
				assert.True(t, apperrors.HasCode(err, tt.code), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.True(t, fee.Equal(decimal.RequireFromString(tt.want)), "fee %s", fee)
		})
	}
}

func TestFeeResolver_RejectsNegativeOverride(t *testing.T) {
	ledger := newMemLedger()
	ledger.addFee(agentID, nil, types.ApplicationPassport, "-1")
	ledger.setDefaultFees(FeeSchedule{types.ApplicationPassport: decimal.NewFromInt(10)})
	resolver := NewFeeResolver(ledger)

	_, err := resolver.ResolveFee(context.Background(), agentID, types.RoleAgent, types.ApplicationPassport)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeFeeNotConfigured))
}

func TestFeeResolver_RejectsSubCentOverride(t *testing.T) {
	ledger := newMemLedger()
	ledger.addFee(agentID, nil, types.ApplicationPassport, "12.505")
	resolver := NewFeeResolver(ledger)

	_, err := resolver.ResolveFee(context.Background(), agentID, types.RoleAgent, types.ApplicationPassport)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeFeeNotConfigured))
}

func TestFeeResolver_InvalidDefaultsAreNotConfigured(t *testing.T) {
	ledger := newMemLedger()
	ledger.setDefaultFields(models.SettingField{Name: "passport", Value: "12.505"})
	resolver := NewFeeResolver(ledger)

	_, err := resolver.ResolveFee(context.Background(), entrepreneurID, types.RoleEntrepreneur, types.ApplicationPassport)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeFeeNotConfigured), "got %v", err)
}

// The default schedule is read with the transaction's queries, so a default
// changed by another writer mid-transaction is not seen and no second
// connection is needed
func TestFeeResolver_TxReadsDefaultsFromTransaction(t *testing.T) {
	ledger := newMemLedger()
	ledger.setDefaultFees(FeeSchedule{types.ApplicationPassport: decimal.NewFromInt(25)})
	resolver := NewFeeResolver(ledger)

	var fee decimal.Decimal
	err := ledger.InTx(context.Background(), func(q storage.LedgerQueries) error {
		// live state changes; the transaction keeps its snapshot
		ledger.state.defaults = nil
		var err error
		fee, err = resolver.ResolveFeeTx(context.Background(), q, entrepreneurID, types.RoleEntrepreneur, types.ApplicationPassport)
		return err
	})
	require.NoError(t, err)
	assert.True(t, fee.Equal(decimal.NewFromInt(25)), "fee %s", fee)
}

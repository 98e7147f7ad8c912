package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	apperrors "github.com/portal-admin/internal/errors"
	"github.com/portal-admin/internal/logging"
	"github.com/portal-admin/internal/models"
	"github.com/portal-admin/internal/storage"
	"github.com/portal-admin/internal/types"
)

// Settings modules with a typed view
const (
	ModuleFees         = storage.FeesModule
	ModuleNotifyEmails = "notify_emails"
)

// FeeSchedule maps each application type to its default fee
type FeeSchedule map[types.ApplicationType]decimal.Decimal

// SettingsStore persists settings modules; satisfied by *storage.SettingRepository
type SettingsStore interface {
	GetByModule(ctx context.Context, module string) (*models.Setting, error)
	Upsert(ctx context.Context, module string, fields []models.SettingField) (*models.Setting, error)
}

// SettingsCache caches module fields; satisfied by *storage.SettingsCache
type SettingsCache interface {
	Fields(ctx context.Context, module string) ([]models.SettingField, bool, error)
	Store(ctx context.Context, module string, fields []models.SettingField) error
	Forget(ctx context.Context, modules ...string) error
}

// SettingsService reads and writes settings modules and exposes the typed
// fee schedule and notification list
type SettingsService struct {
	store  SettingsStore
	cache  SettingsCache
	logger *logging.Logger
}

// NewSettingsService creates a settings service. cache may be nil.
func NewSettingsService(store SettingsStore, cache SettingsCache, logger *logging.Logger) *SettingsService {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &SettingsService{
		store:  store,
		cache:  cache,
		logger: logger.WithField("component", "settings"),
	}
}

// GetModule returns the raw fields of a module
func (s *SettingsService) GetModule(ctx context.Context, module string) (*models.Setting, error) {
	module = normalizeModule(module)
	if module == "" {
		return nil, apperrors.NewInvalidParameterError("module", "must not be empty")
	}
	return s.store.GetByModule(ctx, module)
}

// UpsertModule replaces the fields of a module. Typed modules are parsed
// before anything is written.
func (s *SettingsService) UpsertModule(ctx context.Context, module string, fields []models.SettingField) (*models.Setting, error) {
	module = normalizeModule(module)
	if module == "" {
		return nil, apperrors.NewInvalidParameterError("module", "must not be empty")
	}

	switch module {
	case ModuleFees:
		if _, err := ParseFeeSchedule(fields); err != nil {
			return nil, err
		}
	case ModuleNotifyEmails:
		if _, err := ParseNotifyList(fields); err != nil {
			return nil, err
		}
	}

	setting, err := s.store.Upsert(ctx, module, fields)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Forget(ctx, module); err != nil {
			s.logger.WithError(err).WithField("module", module).Warn("failed to invalidate settings cache")
		}
	}
	return setting, nil
}

// FeeSchedule returns the default fees. A missing module is an empty schedule.
func (s *SettingsService) FeeSchedule(ctx context.Context) (FeeSchedule, error) {
	fields, err := s.fields(ctx, ModuleFees)
	if err != nil {
		return nil, err
	}
	return ParseFeeSchedule(fields)
}

// NotifyList returns the addresses that receive workflow notifications
func (s *SettingsService) NotifyList(ctx context.Context) ([]string, error) {
	fields, err := s.fields(ctx, ModuleNotifyEmails)
	if err != nil {
		return nil, err
	}
	return ParseNotifyList(fields)
}

// Preload parses the typed modules once so a bad configuration stops start-up.
// Cached modules are dropped first so the rows in the store are what gets
// checked.
func (s *SettingsService) Preload(ctx context.Context) error {
	if s.cache != nil {
		if err := s.cache.Forget(ctx); err != nil {
			s.logger.WithError(err).Warn("failed to clear settings cache")
		}
	}

	fees, err := s.FeeSchedule(ctx)
	if err != nil {
		return fmt.Errorf("fees setting: %w", err)
	}
	emails, err := s.NotifyList(ctx)
	if err != nil {
		return fmt.Errorf("notify_emails setting: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"fee_types":  len(fees),
		"recipients": len(emails),
	}).Info("settings loaded")
	return nil
}

// fields reads a module through the cache. Cache failures fall back to the store.
func (s *SettingsService) fields(ctx context.Context, module string) ([]models.SettingField, error) {
	if s.cache != nil {
		cached, found, err := s.cache.Fields(ctx, module)
		if err != nil {
			s.logger.WithError(err).WithField("module", module).Warn("settings cache read failed")
		} else if found {
			return cached, nil
		}
	}

	setting, err := s.store.GetByModule(ctx, module)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Store(ctx, module, setting.SettingFields); err != nil {
			s.logger.WithError(err).WithField("module", module).Warn("settings cache write failed")
		}
	}
	return setting.SettingFields, nil
}

// ParseFeeSchedule turns the fields of the fees module into a schedule. Field
// names are matched to application types case-insensitively.
func ParseFeeSchedule(fields []models.SettingField) (FeeSchedule, error) {
	schedule := make(FeeSchedule, len(fields))
	invalid := map[string]string{}

	for _, f := range fields {
		appType, ok := types.ParseApplicationType(f.Name)
		if !ok {
			invalid[f.Name] = "unknown application type"
			continue
		}
		if _, dup := schedule[appType]; dup {
			invalid[f.Name] = "duplicate fee for " + string(appType)
			continue
		}
		fee, err := decimal.NewFromString(strings.TrimSpace(f.Value))
		if err != nil {
			invalid[f.Name] = "fee must be a decimal number"
			continue
		}
		if fee.IsNegative() {
			invalid[f.Name] = "fee must not be negative"
			continue
		}
		if !isCents(fee) {
			invalid[f.Name] = "fee must have at most 2 decimal places"
			continue
		}
		schedule[appType] = fee
	}

	if len(invalid) > 0 {
		return nil, apperrors.NewValidationError("invalid fee schedule", invalid)
	}
	return schedule, nil
}

// ParseNotifyList collects the addresses of the notify_emails module. A field
// value may hold several addresses separated by commas.
func ParseNotifyList(fields []models.SettingField) ([]string, error) {
	seen := map[string]bool{}
	var emails []string
	invalid := map[string]string{}

	for _, f := range fields {
		for _, part := range strings.Split(f.Value, ",") {
			addr := strings.ToLower(strings.TrimSpace(part))
			if addr == "" {
				continue
			}
			if !isValidEmail(addr) {
				invalid[f.Name] = "invalid email address " + addr
				continue
			}
			if !seen[addr] {
				seen[addr] = true
				emails = append(emails, addr)
			}
		}
	}

	if len(invalid) > 0 {
		return nil, apperrors.NewValidationError("invalid notification list", invalid)
	}
	sort.Strings(emails)
	return emails, nil
}

func normalizeModule(module string) string {
	return strings.ToLower(strings.TrimSpace(module))
}

// Package seed loads bootstrap data (settings modules and the first super
// admin) from a YAML file and writes it idempotently.
package seed

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/portal-admin/internal/auth"
	apperrors "github.com/portal-admin/internal/errors"
	"github.com/portal-admin/internal/logging"
	"github.com/portal-admin/internal/models"
	"github.com/portal-admin/internal/types"
)

// File is the seed document
type File struct {
	Settings   []Module `yaml:"settings"`
	SuperAdmin *Account `yaml:"superAdmin"`
}

// Module is one settings module
type Module struct {
	Module string                `yaml:"module"`
	Fields []models.SettingField `yaml:"fields"`
}

// Account is the bootstrap super admin
type Account struct {
	Name  string `yaml:"name"`
	Phone string `yaml:"phone"`
	Pin   string `yaml:"pin"`
	Email string `yaml:"email"`
}

// SettingsWriter validates and stores a module; satisfied by *service.SettingsService
type SettingsWriter interface {
	UpsertModule(ctx context.Context, module string, fields []models.SettingField) (*models.Setting, error)
}

// AccountStore creates accounts; satisfied by *storage.UserRepository
type AccountStore interface {
	GetCredentialsByPhone(ctx context.Context, phone string) (*models.Credentials, error)
	Create(ctx context.Context, values map[string]any) (*models.User, error)
}

// Load reads and checks a seed file
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path) // #nosec G304 - operator supplied path
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a seed document
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	for i, m := range f.Settings {
		if strings.TrimSpace(m.Module) == "" {
			return nil, fmt.Errorf("settings[%d]: module is required", i)
		}
	}
	if a := f.SuperAdmin; a != nil {
		if a.Phone == "" || a.Pin == "" || a.Name == "" {
			return nil, fmt.Errorf("superAdmin: name, phone and pin are required")
		}
		if len(a.Pin) < 4 || len(a.Pin) > 6 {
			return nil, fmt.Errorf("superAdmin: pin must have 4 to 6 digits")
		}
	}
	return &f, nil
}

// Apply upserts every module and creates the super admin unless the phone is
// already registered. Re-running a seed is safe.
func Apply(ctx context.Context, f *File, settings SettingsWriter, accounts AccountStore) error {
	logger := logging.FromContext(ctx).WithField("component", "seed")

	for _, m := range f.Settings {
		if _, err := settings.UpsertModule(ctx, m.Module, m.Fields); err != nil {
			return fmt.Errorf("settings module %q: %w", m.Module, err)
		}
		logger.WithFields(map[string]interface{}{
			"module": m.Module,
			"fields": len(m.Fields),
		}).Info("settings module seeded")
	}

	if f.SuperAdmin == nil {
		return nil
	}
	return applySuperAdmin(ctx, f.SuperAdmin, accounts, logger)
}

func applySuperAdmin(ctx context.Context, a *Account, accounts AccountStore, logger *logging.Logger) error {
	phone := strings.TrimSpace(a.Phone)

	existing, err := accounts.GetCredentialsByPhone(ctx, phone)
	switch {
	case err == nil:
		logger.WithField("user_id", existing.ID).Info("super admin already present")
		return nil
	case !apperrors.HasCode(err, apperrors.CodeNotFound):
		return fmt.Errorf("look up super admin: %w", err)
	}

	hash, err := auth.HashPin(a.Pin)
	if err != nil {
		return fmt.Errorf("hash pin: %w", err)
	}
	values := map[string]any{
		"name":     strings.TrimSpace(a.Name),
		"phone":    phone,
		"pin_hash": hash,
		"role":     string(types.RoleSuperAdmin),
		"status":   string(types.UserStatusActive),
	}
	if a.Email != "" {
		values["email"] = strings.ToLower(strings.TrimSpace(a.Email))
	}

	user, err := accounts.Create(ctx, values)
	if err != nil {
		return fmt.Errorf("create super admin: %w", err)
	}
	logger.WithField("user_id", user.ID).Info("super admin created")
	return nil
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	apperrors "github.com/portal-admin/internal/errors"
	"github.com/portal-admin/internal/models"
)

// SettingRepository stores settings modules keyed by module name
type SettingRepository struct {
	db Querier
}

// NewSettingRepository creates a new settings repository
func NewSettingRepository(db Querier) *SettingRepository {
	return &SettingRepository{db: db}
}

// GetByModule returns the named module
func (r *SettingRepository) GetByModule(ctx context.Context, module string) (*models.Setting, error) {
	query := fmt.Sprintf("SELECT %s FROM settings WHERE module = $1",
		strings.Join(SettingSchema.Columns, ", "))

	rows, err := r.db.Query(ctx, query, module)
	if err != nil {
		return nil, translateError("get setting", err)
	}
	setting, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[models.Setting])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("setting", module)
		}
		return nil, translateError("get setting", err)
	}
	return setting, nil
}

// Upsert creates or replaces the fields of a module
func (r *SettingRepository) Upsert(ctx context.Context, module string, fields []models.SettingField) (*models.Setting, error) {
	if fields == nil {
		fields = []models.SettingField{}
	}

	query := fmt.Sprintf(`
		INSERT INTO settings (module, setting_fields)
		VALUES ($1, $2)
		ON CONFLICT (module) DO UPDATE
		SET setting_fields = EXCLUDED.setting_fields, updated_at = NOW()
		RETURNING %s
	`, strings.Join(SettingSchema.Columns, ", "))

	rows, err := r.db.Query(ctx, query, module, fields)
	if err != nil {
		return nil, translateError("upsert setting", err)
	}
	setting, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[models.Setting])
	if err != nil {
		return nil, translateError("upsert setting", err)
	}
	return setting, nil
}

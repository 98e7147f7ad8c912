package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	apperrors "github.com/portal-admin/internal/errors"
	"github.com/portal-admin/internal/models"
)

// UserRepository handles user persistence. Generic list and update go through
// the embedded repository; credentials have their own queries so the pin hash
// never appears in a model that is serialized.
type UserRepository struct {
	*Repository[models.User]
	db *PostgresDB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *PostgresDB) *UserRepository {
	return &UserRepository{
		Repository: NewRepository[models.User](db.Pool(), UserSchema),
		db:         db,
	}
}

// GetCredentialsByPhone returns login material for the phone number
func (r *UserRepository) GetCredentialsByPhone(ctx context.Context, phone string) (*models.Credentials, error) {
	rows, err := r.db.Pool().Query(ctx, `
		SELECT id, role, status, pin_hash
		FROM users
		WHERE phone = $1
	`, phone)
	if err != nil {
		return nil, translateError("get credentials", err)
	}

	creds, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[models.Credentials])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("user", phone)
		}
		return nil, translateError("get credentials", err)
	}
	return creds, nil
}

// UpdatePinHash replaces the stored pin hash
func (r *UserRepository) UpdatePinHash(ctx context.Context, id int64, pinHash string) error {
	tag, err := r.db.Pool().Exec(ctx, `
		UPDATE users SET pin_hash = $2, updated_at = NOW() WHERE id = $1
	`, id, pinHash)
	if err != nil {
		return translateError("update pin", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("user", id)
	}
	return nil
}

package service

import (
	"context"

	"github.com/portal-admin/internal/auth"
	apperrors "github.com/portal-admin/internal/errors"
	"github.com/portal-admin/internal/storage"
	"github.com/portal-admin/internal/types"
)

// Reader lists and loads rows of one table
type Reader[T any] interface {
	List(ctx context.Context, params storage.ListParams) (*storage.Page[T], error)
	GetByID(ctx context.Context, id int64) (*T, error)
}

// Store is the full generic repository; satisfied by *storage.Repository[T]
type Store[T any] interface {
	Reader[T]
	Create(ctx context.Context, values map[string]any) (*T, error)
	Update(ctx context.Context, id int64, values map[string]any) (*T, error)
	Delete(ctx context.Context, id int64) error
}

// Input is a validated request body that knows which columns it writes
type Input interface {
	Values() map[string]any
}

// CreateInput is an Input with columns every create must set
type CreateInput interface {
	Input
	Required() []string
}

// Policy lists the roles allowed per operation
type Policy struct {
	// Read empty admits any authenticated caller
	Read  []types.Role
	Write []types.Role
	// Delete empty disables deletion
	Delete []types.Role
}

// CrudService exposes a generic repository behind a role policy. The policy
// is checked before the repository is touched.
type CrudService[T any] struct {
	store  Store[T]
	policy Policy
}

// NewCrudService creates a CRUD service over store
func NewCrudService[T any](store Store[T], policy Policy) *CrudService[T] {
	return &CrudService[T]{store: store, policy: policy}
}

// List returns one page of rows
func (s *CrudService[T]) List(ctx context.Context, params storage.ListParams) (*storage.Page[T], error) {
	if _, err := auth.Guard(ctx, s.policy.Read...); err != nil {
		return nil, err
	}
	return s.store.List(ctx, params)
}

// Get returns one row
func (s *CrudService[T]) Get(ctx context.Context, id int64) (*T, error) {
	if _, err := auth.Guard(ctx, s.policy.Read...); err != nil {
		return nil, err
	}
	return s.store.GetByID(ctx, id)
}

// Create validates input and inserts it
func (s *CrudService[T]) Create(ctx context.Context, input Input) (*T, error) {
	if err := s.guardWrite(ctx); err != nil {
		return nil, err
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}
	values := input.Values()
	if ci, ok := input.(CreateInput); ok {
		if missing := missingRequired(ci.Required(), values); len(missing) > 0 {
			return nil, apperrors.NewValidationError("missing required fields", missing)
		}
	}
	return s.store.Create(ctx, values)
}

// Update validates a partial input and writes only the fields it carries
func (s *CrudService[T]) Update(ctx context.Context, id int64, input Input) (*T, error) {
	if err := s.guardWrite(ctx); err != nil {
		return nil, err
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}
	return s.store.Update(ctx, id, input.Values())
}

// Delete removes a row
func (s *CrudService[T]) Delete(ctx context.Context, id int64) error {
	if len(s.policy.Delete) == 0 {
		return apperrors.NewForbiddenError("deletion is not supported for this resource")
	}
	if _, err := auth.Guard(ctx, s.policy.Delete...); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}

func (s *CrudService[T]) guardWrite(ctx context.Context) error {
	if len(s.policy.Write) == 0 {
		return apperrors.NewForbiddenError("resource is read-only")
	}
	_, err := auth.Guard(ctx, s.policy.Write...)
	return err
}

// OwnedReader scopes reads to the caller's own rows unless the caller is an
// administrator. Rows owned by someone else read as not found.
type OwnedReader[T any] struct {
	reader   Reader[T]
	resource string
	ownerOf  func(*T) int64
}

// NewOwnedReader creates an owner-scoped reader
func NewOwnedReader[T any](reader Reader[T], resource string, ownerOf func(*T) int64) *OwnedReader[T] {
	return &OwnedReader[T]{reader: reader, resource: resource, ownerOf: ownerOf}
}

// List returns one page, restricted to the caller's rows for non-admins
func (r *OwnedReader[T]) List(ctx context.Context, params storage.ListParams) (*storage.Page[T], error) {
	id, err := auth.Guard(ctx)
	if err != nil {
		return nil, err
	}
	if !id.IsAdmin() {
		owner := id.UserID
		params.OwnerID = &owner
	}
	return r.reader.List(ctx, params)
}

// Get returns one row the caller may see
func (r *OwnedReader[T]) Get(ctx context.Context, rowID int64) (*T, error) {
	id, err := auth.Guard(ctx)
	if err != nil {
		return nil, err
	}
	row, err := r.reader.GetByID(ctx, rowID)
	if err != nil {
		return nil, err
	}
	if !id.Owns(r.ownerOf(row)) {
		return nil, apperrors.NewNotFoundError(r.resource, rowID)
	}
	return row, nil
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	apperrors "github.com/portal-admin/internal/errors"
)

// List defaults
const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
	DefaultSortOrder = "desc"
)

// Schema describes how a table is exposed through the generic repository.
// Every column name that reaches SQL comes from one of these allow-lists.
type Schema struct {
	Resource      string
	Table         string
	Columns       []string
	SearchColumns []string
	FilterColumns []string
	SortColumns   []string
	Writable      []string
	DefaultSort   string
	OwnerColumn   string
	HasUpdatedAt  bool
}

// ListParams are the list options accepted from clients
type ListParams struct {
	Page      int
	Limit     int
	Search    string
	Filters   map[string]string
	SortBy    string
	SortOrder string
	// OwnerID restricts rows to one owner when the schema has an owner column
	OwnerID *int64
}

// Normalize applies paging defaults and bounds
func (p ListParams) Normalize() ListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	p.Search = strings.TrimSpace(p.Search)
	return p
}

// Offset returns the row offset of the page
func (p ListParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Page is one page of a list result
type Page[T any] struct {
	Data       []*T  `json:"data"`
	TotalCount int64 `json:"totalCount"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
}

// ListQuery is the SQL built for a list request
type ListQuery struct {
	Select    string
	Count     string
	Args      []any
	CountArgs []any
	SortBy    string
	SortOrder string
}

// BuildListQuery builds the page and count statements for params. Unknown
// filter keys are ignored and unknown sort columns fall back to the default.
func BuildListQuery(schema Schema, params ListParams) ListQuery {
	params = params.Normalize()

	var (
		where []string
		args  []any
	)
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if schema.OwnerColumn != "" && params.OwnerID != nil {
		where = append(where, fmt.Sprintf("%s = %s", schema.OwnerColumn, next(*params.OwnerID)))
	}

	if params.Search != "" && len(schema.SearchColumns) > 0 {
		placeholder := next("%" + escapeLike(params.Search) + "%")
		parts := make([]string, len(schema.SearchColumns))
		for i, col := range schema.SearchColumns {
			parts[i] = fmt.Sprintf("%s::text ILIKE %s", col, placeholder)
		}
		where = append(where, "("+strings.Join(parts, " OR ")+")")
	}

	// Sorted so the statement text is stable for a given filter set
	keys := make([]string, 0, len(params.Filters))
	for key := range params.Filters {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if !contains(schema.FilterColumns, key) {
			continue
		}
		where = append(where, fmt.Sprintf("%s::text = %s", key, next(params.Filters[key])))
	}

	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}

	sortBy := schema.DefaultSort
	if sortBy == "" {
		sortBy = "created_at"
	}
	if contains(schema.SortColumns, params.SortBy) {
		sortBy = params.SortBy
	}
	sortOrder := strings.ToLower(params.SortOrder)
	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = DefaultSortOrder
	}

	countArgs := append([]any(nil), args...)
	columns := strings.Join(schema.Columns, ", ")

	selectSQL := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s %s, id %s LIMIT %s OFFSET %s",
		columns, schema.Table, whereSQL, sortBy, sortOrder, sortOrder,
		next(params.Limit), next(params.Offset()))

	return ListQuery{
		Select:    selectSQL,
		Count:     fmt.Sprintf("SELECT COUNT(*) FROM %s%s", schema.Table, whereSQL),
		Args:      args,
		CountArgs: countArgs,
		SortBy:    sortBy,
		SortOrder: sortOrder,
	}
}

// Repository is a generic table repository driven by a Schema
type Repository[T any] struct {
	db     Querier
	schema Schema
}

// NewRepository creates a repository over db for schema
func NewRepository[T any](db Querier, schema Schema) *Repository[T] {
	return &Repository[T]{db: db, schema: schema}
}

// WithQuerier returns a copy bound to q, typically a transaction
func (r *Repository[T]) WithQuerier(q Querier) *Repository[T] {
	return &Repository[T]{db: q, schema: r.schema}
}

// Schema returns the schema the repository was built with
func (r *Repository[T]) Schema() Schema {
	return r.schema
}

// List returns one page of rows
func (r *Repository[T]) List(ctx context.Context, params ListParams) (*Page[T], error) {
	params = params.Normalize()
	q := BuildListQuery(r.schema, params)

	var total int64
	if err := r.db.QueryRow(ctx, q.Count, q.CountArgs...).Scan(&total); err != nil {
		return nil, translateError("count "+r.schema.Resource, err)
	}

	rows, err := r.db.Query(ctx, q.Select, q.Args...)
	if err != nil {
		return nil, translateError("list "+r.schema.Resource, err)
	}
	items, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[T])
	if err != nil {
		return nil, translateError("scan "+r.schema.Resource, err)
	}
	if items == nil {
		items = []*T{}
	}

	return &Page[T]{
		Data:       items,
		TotalCount: total,
		Page:       params.Page,
		Limit:      params.Limit,
	}, nil
}

// GetByID returns the row with id
func (r *Repository[T]) GetByID(ctx context.Context, id int64) (*T, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1",
		strings.Join(r.schema.Columns, ", "), r.schema.Table)
	return r.queryOne(ctx, "get "+r.schema.Resource, id, query, id)
}

// Create inserts a row from values keyed by column name
func (r *Repository[T]) Create(ctx context.Context, values map[string]any) (*T, error) {
	cols, args, err := r.writableValues(values)
	if err != nil {
		return nil, err
	}

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		r.schema.Table,
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(r.schema.Columns, ", "))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, translateError("create "+r.schema.Resource, err)
	}
	item, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[T])
	if err != nil {
		return nil, translateError("create "+r.schema.Resource, err)
	}
	return item, nil
}

// Update applies a partial update. Only the provided columns change.
func (r *Repository[T]) Update(ctx context.Context, id int64, values map[string]any) (*T, error) {
	cols, args, err := r.writableValues(values)
	if err != nil {
		return nil, err
	}

	sets := make([]string, len(cols))
	for i, col := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", col, i+1)
	}
	if r.schema.HasUpdatedAt {
		sets = append(sets, "updated_at = NOW()")
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d RETURNING %s",
		r.schema.Table,
		strings.Join(sets, ", "),
		len(args),
		strings.Join(r.schema.Columns, ", "))

	return r.queryOne(ctx, "update "+r.schema.Resource, id, query, args...)
}

// Delete removes the row with id
func (r *Repository[T]) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", r.schema.Table), id)
	if err != nil {
		return translateError("delete "+r.schema.Resource, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError(r.schema.Resource, id)
	}
	return nil
}

func (r *Repository[T]) queryOne(ctx context.Context, operation string, id int64, query string, args ...any) (*T, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, translateError(operation, err)
	}
	item, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[T])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(r.schema.Resource, id)
		}
		return nil, translateError(operation, err)
	}
	return item, nil
}

// writableValues checks values against the writable allow-list and returns
// columns in a stable order with their arguments
func (r *Repository[T]) writableValues(values map[string]any) ([]string, []any, error) {
	if len(values) == 0 {
		return nil, nil, apperrors.NewValidationError("no fields to write", nil)
	}

	cols := make([]string, 0, len(values))
	invalid := map[string]string{}
	for col := range values {
		if !contains(r.schema.Writable, col) {
			invalid[col] = "field is not writable"
			continue
		}
		cols = append(cols, col)
	}
	if len(invalid) > 0 {
		return nil, nil, apperrors.NewValidationError("unknown or read-only fields", invalid)
	}
	sort.Strings(cols)

	args := make([]any, len(cols))
	for i, col := range cols {
		args[i] = values[col]
	}
	return cols, args, nil
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
}

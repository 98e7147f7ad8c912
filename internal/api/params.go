package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/portal-admin/internal/auth"
	apperrors "github.com/portal-admin/internal/errors"
	"github.com/portal-admin/internal/storage"
)

// reservedListKeys are query keys that are not column filters
var reservedListKeys = map[string]bool{
	"page":      true,
	"limit":     true,
	"search":    true,
	"sortBy":    true,
	"sortOrder": true,
}

// parseListParams reads paging, search and sort options from the query.
// Remaining single-valued keys become filters; the repository ignores keys
// outside its allow-list.
func parseListParams(r *http.Request) (storage.ListParams, error) {
	query := r.URL.Query()
	params := storage.ListParams{
		Search:    query.Get("search"),
		SortBy:    query.Get("sortBy"),
		SortOrder: query.Get("sortOrder"),
		Filters:   map[string]string{},
	}

	var err error
	if params.Page, err = queryInt(query.Get("page"), "page"); err != nil {
		return params, err
	}
	if params.Limit, err = queryInt(query.Get("limit"), "limit"); err != nil {
		return params, err
	}

	for key, values := range query {
		if reservedListKeys[key] || len(values) == 0 {
			continue
		}
		if value := strings.TrimSpace(values[0]); value != "" {
			params.Filters[camelToSnake(key)] = value
		}
	}
	return params, nil
}

func queryInt(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperrors.NewInvalidParameterError(name, "must be a non-negative integer")
	}
	return n, nil
}

// camelToSnake maps a JSON-style key (userId) to its column (user_id)
func camelToSnake(key string) string {
	var b strings.Builder
	for i, c := range key {
		if c >= 'A' && c <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(c + ('a' - 'A'))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

// pathID reads the numeric {id} route variable
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewInvalidParameterError("id", "must be a positive integer")
	}
	return id, nil
}

// caller returns the authenticated identity. Routes that call it are wrapped
// in requireRoles, so a missing identity is an authentication failure.
func caller(r *http.Request) (*auth.Identity, error) {
	return auth.Guard(r.Context())
}

// workflowContext bounds a balance workflow by the configured timeout
func (s *Server) workflowContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.config.WorkflowTimeout)
}

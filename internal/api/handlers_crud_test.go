package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portal-admin/internal/auth"
	apperrors "github.com/portal-admin/internal/errors"
	"github.com/portal-admin/internal/models"
	"github.com/portal-admin/internal/service"
	"github.com/portal-admin/internal/storage"
	"github.com/portal-admin/internal/types"
)

// memPosts is an in-memory blog post store
type memPosts struct {
	mu     sync.Mutex
	rows   map[int64]*models.BlogPost
	nextID int64
}

func (m *memPosts) List(ctx context.Context, params storage.ListParams) (*storage.Page[models.BlogPost], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	params = params.Normalize()
	data := []*models.BlogPost{}
	for _, row := range m.rows {
		data = append(data, row)
	}
	return &storage.Page[models.BlogPost]{Data: data, TotalCount: int64(len(data)), Page: params.Page, Limit: params.Limit}, nil
}

func (m *memPosts) GetByID(ctx context.Context, id int64) (*models.BlogPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("blog post", id)
	}
	return row, nil
}

func (m *memPosts) Create(ctx context.Context, values map[string]any) (*models.BlogPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	post := &models.BlogPost{ID: m.nextID}
	post.Title, _ = values["title"].(string)
	post.Slug, _ = values["slug"].(string)
	post.Status, _ = values["status"].(string)
	m.rows[post.ID] = post
	return post, nil
}

func (m *memPosts) Update(ctx context.Context, id int64, values map[string]any) (*models.BlogPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	post, ok := m.rows[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("blog post", id)
	}
	if title, ok := values["title"].(string); ok {
		post.Title = title
	}
	return post, nil
}

func (m *memPosts) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return apperrors.NewNotFoundError("blog post", id)
	}
	delete(m.rows, id)
	return nil
}

func newBlogServer(t *testing.T) *testServer {
	posts := &memPosts{rows: map[int64]*models.BlogPost{}}
	svc := service.NewCrudService[models.BlogPost](posts, service.Policy{
		Write:  auth.Admins,
		Delete: []types.Role{types.RoleSuperAdmin},
	})
	return createTestServer(t, func(_ *ServerConfig, s *Services) {
		s.Resources = append(s.Resources, NewResource[models.BlogPost]("/blog-posts", svc, func() service.Input {
			return &service.BlogPostInput{}
		}))
	})
}

func TestCrudResource_Lifecycle(t *testing.T) {
	ts := newBlogServer(t)
	admin := ts.token(t, types.RoleAdmin, 9)
	root := ts.token(t, types.RoleSuperAdmin, 1)

	w := ts.do(t, http.MethodPost, "/api/blog-posts", admin, map[string]string{
		"title": "Launch", "slug": "Launch Day", "content": "We are live", "status": "published",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var post models.BlogPost
	require.NoError(t, json.NewDecoder(w.Body).Decode(&post))
	assert.Equal(t, "launch-day", post.Slug)

	w = ts.do(t, http.MethodPatch, "/api/blog-posts/1", admin, map[string]string{"title": "Launched"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"title":"Launched"`)

	w = ts.do(t, http.MethodGet, "/api/blog-posts?page=1", ts.token(t, types.RoleEntrepreneur, 3), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"totalCount":1`)

	w = ts.do(t, http.MethodDelete, "/api/blog-posts/1", admin, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(t, http.MethodDelete, "/api/blog-posts/1", root, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(t, http.MethodGet, "/api/blog-posts/1", root, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCrudResource_Rejections(t *testing.T) {
	ts := newBlogServer(t)

	w := ts.do(t, http.MethodGet, "/api/blog-posts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodPost, "/api/blog-posts", ts.token(t, types.RoleAgent, 3), map[string]string{"title": "x"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(t, http.MethodPost, "/api/blog-posts", ts.token(t, types.RoleAdmin, 9), map[string]string{"title": "x"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	fields, _ := decodeError(t, w).Details["fields"].(map[string]interface{})
	assert.Contains(t, fields, "slug")
	assert.Contains(t, fields, "content")

	w = ts.do(t, http.MethodPost, "/api/blog-posts", ts.token(t, types.RoleAdmin, 9), map[string]string{
		"title": "x", "slug": "x", "content": "x", "status": "archived",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, "/api/blog-posts/abc", ts.token(t, types.RoleAdmin, 9), nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "non-numeric ids do not match the route")
}

package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/portal-admin/internal/service"
	"github.com/portal-admin/internal/storage"
)

// CrudServiceInterface is a policy-checked collection, implemented by
// *service.CrudService[T]
type CrudServiceInterface[T any] interface {
	List(ctx context.Context, params storage.ListParams) (*storage.Page[T], error)
	Get(ctx context.Context, id int64) (*T, error)
	Create(ctx context.Context, input service.Input) (*T, error)
	Update(ctx context.Context, id int64, input service.Input) (*T, error)
	Delete(ctx context.Context, id int64) error
}

// Resource mounts one generic collection under the API router
type Resource struct {
	Path     string
	register func(api *mux.Router)
}

// NewResource exposes svc under path. newInput returns an empty request
// body to decode into.
func NewResource[T any](path string, svc CrudServiceInterface[T], newInput func() service.Input) Resource {
	path = "/" + strings.Trim(path, "/")
	h := &crudHandlers[T]{svc: svc, newInput: newInput}

	return Resource{
		Path: path,
		register: func(api *mux.Router) {
			api.HandleFunc(path, h.list).Methods(http.MethodGet)
			api.HandleFunc(path, h.create).Methods(http.MethodPost)
			api.HandleFunc(path+"/{id:[0-9]+}", h.get).Methods(http.MethodGet)
			api.HandleFunc(path+"/{id:[0-9]+}", h.update).Methods(http.MethodPatch, http.MethodPut)
			api.HandleFunc(path+"/{id:[0-9]+}", h.remove).Methods(http.MethodDelete)
		},
	}
}

type crudHandlers[T any] struct {
	svc      CrudServiceInterface[T]
	newInput func() service.Input
}

func (h *crudHandlers[T]) list(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	page, err := h.svc.List(r.Context(), params)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, page)
}

func (h *crudHandlers[T]) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	row, err := h.svc.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, row)
}

func (h *crudHandlers[T]) create(w http.ResponseWriter, r *http.Request) {
	input := h.newInput()
	if err := parseJSONBody(w, r, input); err != nil {
		respondError(w, r, err)
		return
	}

	row, err := h.svc.Create(r.Context(), input)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, row)
}

func (h *crudHandlers[T]) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	input := h.newInput()
	if err := parseJSONBody(w, r, input); err != nil {
		respondError(w, r, err)
		return
	}

	row, err := h.svc.Update(r.Context(), id, input)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, row)
}

func (h *crudHandlers[T]) remove(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

package api

import (
	"net/http"

	apperrors "github.com/portal-admin/internal/errors"
	"github.com/portal-admin/internal/service"
	"github.com/portal-admin/internal/types"
)

// handleCreateApplication handles POST /api/applications. The caller's
// balance is charged the resolved fee.
func (s *Server) handleCreateApplication(w http.ResponseWriter, r *http.Request) {
	identity, err := caller(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req service.CreateApplicationInput
	if err := parseJSONBody(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	ctx, cancel := s.workflowContext(r)
	defer cancel()

	app, err := s.services.Applications.Create(ctx, identity.UserID, req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, app)
}

// handleListApplications handles GET /api/applications
func (s *Server) handleListApplications(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	page, err := s.services.Applications.List(r.Context(), params)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, page)
}

// handleGetApplication handles GET /api/applications/{id}
func (s *Server) handleGetApplication(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	app, err := s.services.Applications.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, app)
}

// handleReviewApplication handles PATCH /api/applications/{id}/status
func (s *Server) handleReviewApplication(w http.ResponseWriter, r *http.Request) {
	identity, err := caller(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req service.ReviewInput
	if err := parseJSONBody(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	ctx, cancel := s.workflowContext(r)
	defer cancel()

	app, err := s.services.Applications.Review(ctx, id, identity.UserID, req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, app)
}

// handleResolveFee handles GET /api/fees/resolve?type= for the caller
func (s *Server) handleResolveFee(w http.ResponseWriter, r *http.Request) {
	identity, err := caller(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	raw := r.URL.Query().Get("type")
	if raw == "" {
		respondError(w, r, apperrors.NewInvalidParameterError("type", "is required"))
		return
	}
	appType, ok := types.ParseApplicationType(raw)
	if !ok {
		appType = types.ApplicationType(raw)
	}

	fee, err := s.services.Fees.ResolveFee(r.Context(), identity.UserID, identity.Role, appType)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"type": appType,
		"fee":  fee,
	})
}

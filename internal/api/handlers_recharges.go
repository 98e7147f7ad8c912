package api

import (
	"net/http"

	"github.com/portal-admin/internal/service"
	"github.com/portal-admin/internal/types"
)

// handleCreateRecharge handles POST /api/recharges
func (s *Server) handleCreateRecharge(w http.ResponseWriter, r *http.Request) {
	identity, err := caller(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req service.CreateRechargeInput
	if err := parseJSONBody(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	recharge, err := s.services.Recharges.Create(r.Context(), identity.UserID, req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, recharge)
}

// handleListRecharges handles GET /api/recharges
func (s *Server) handleListRecharges(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	page, err := s.services.Recharges.List(r.Context(), params)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, page)
}

// handleGetRecharge handles GET /api/recharges/{id}
func (s *Server) handleGetRecharge(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	recharge, err := s.services.Recharges.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, recharge)
}

// handleUpdateRechargeStatus handles PATCH /api/recharges/{id}/status.
// Approval credits the requester.
func (s *Server) handleUpdateRechargeStatus(w http.ResponseWriter, r *http.Request) {
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
	var req struct {
		Status types.ReviewStatus `json:"status"`
	}
	if err := parseJSONBody(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	ctx, cancel := s.workflowContext(r)
	defer cancel()

	decision, err := s.services.Recharges.UpdateStatus(ctx, id, identity.UserID, req.Status)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, decision)
}

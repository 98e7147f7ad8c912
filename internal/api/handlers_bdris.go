package api

import (
	"net/http"

	"github.com/portal-admin/internal/service"
)

// handleRecordSubmission handles POST /api/bdris/submissions
func (s *Server) handleRecordSubmission(w http.ResponseWriter, r *http.Request) {
	identity, err := caller(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req service.BdrisSubmissionInput
	if err := parseJSONBody(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	record, err := s.services.Bdris.RecordSubmission(r.Context(), identity.UserID, req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, record)
}

// handleRecordFailure handles POST /api/bdris/errors
func (s *Server) handleRecordFailure(w http.ResponseWriter, r *http.Request) {
	identity, err := caller(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req service.BdrisFailureInput
	if err := parseJSONBody(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	record, err := s.services.Bdris.RecordFailure(r.Context(), identity.UserID, req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, record)
}

// handleListSubmissions handles GET /api/bdris/submissions
func (s *Server) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	page, err := s.services.Bdris.ListSubmissions(r.Context(), params)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, page)
}

// handleGetSubmission handles GET /api/bdris/submissions/{id}
func (s *Server) handleGetSubmission(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	record, err := s.services.Bdris.GetSubmission(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, record)
}

// handleListFailures handles GET /api/bdris/errors
func (s *Server) handleListFailures(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	page, err := s.services.Bdris.ListFailures(r.Context(), params)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, page)
}

// handleGetFailure handles GET /api/bdris/errors/{id}
func (s *Server) handleGetFailure(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	record, err := s.services.Bdris.GetFailure(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, record)
}

// handleDashboardStats handles GET /api/dashboard/stats
func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.services.Dashboard.Stats(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

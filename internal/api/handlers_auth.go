package api

import (
	"net/http"

	apperrors "github.com/portal-admin/internal/errors"
	"github.com/portal-admin/internal/service"
)

// handleRegister handles POST /api/auth/register
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if err := parseJSONBody(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	user, err := s.services.Users.Register(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, user)
}

// handleLogin handles POST /api/auth/login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req service.LoginInput
	if err := parseJSONBody(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	result, err := s.services.Users.Login(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// handleMe handles GET /api/auth/me
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.services.Users.Me(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// handleMyLedger handles GET /api/auth/me/ledger
func (s *Server) handleMyLedger(w http.ResponseWriter, r *http.Request) {
	identity, err := caller(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.respondLedger(w, r, identity.UserID)
}

// handleUserLedger handles GET /api/users/{id}/ledger
func (s *Server) handleUserLedger(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.respondLedger(w, r, id)
}

func (s *Server) respondLedger(w http.ResponseWriter, r *http.Request, userID int64) {
	if s.services.Ledger == nil {
		respondError(w, r, apperrors.NewServiceUnavailableError("ledger history"))
		return
	}
	limit, err := queryInt(r.URL.Query().Get("limit"), "limit")
	if err != nil {
		respondError(w, r, err)
		return
	}

	events, err := s.services.Ledger.History(r.Context(), userID, limit)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"data": events})
}

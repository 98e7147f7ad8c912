package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/portal-admin/internal/models"
)

// handleGetSetting handles GET /api/settings/{module}
func (s *Server) handleGetSetting(w http.ResponseWriter, r *http.Request) {
	setting, err := s.services.Settings.GetModule(r.Context(), mux.Vars(r)["module"])
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, setting)
}

// handleUpsertSetting handles PUT /api/settings/{module}. The module's fields
// are replaced as a whole.
func (s *Server) handleUpsertSetting(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SettingFields []models.SettingField `json:"settingFields"`
	}
	if err := parseJSONBody(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	setting, err := s.services.Settings.UpsertModule(r.Context(), mux.Vars(r)["module"], req.SettingFields)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, setting)
}

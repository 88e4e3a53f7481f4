package api

import (
	"encoding/json"
	"net/http"

	"github.com/sms487/archive/internal/api/respond"
	"github.com/sms487/archive/internal/model"
	"github.com/sms487/archive/internal/services"
)

type FilterHandler struct {
	svc *services.FilterService
}

func NewFilterHandler(svc *services.FilterService) *FilterHandler {
	return &FilterHandler{svc: svc}
}

// GetFilters handles GET /get-filters.
func (h *FilterHandler) GetFilters(w http.ResponseWriter, r *http.Request) {
	login := requestLogin(r)
	if login == "" {
		respond.WriteUnauthorized(w, "there is no login")
		return
	}

	views, err := h.svc.List(r.Context(), login)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	respond.WriteJSON(w, http.StatusOK, views)
}

// SaveFilters handles POST /save-filters with form-encoded rule records.
func (h *FilterHandler) SaveFilters(w http.ResponseWriter, r *http.Request) {
	login := requestLogin(r)
	if login == "" {
		respond.WriteUnauthorized(w, "there is no login")
		return
	}

	if err := r.ParseForm(); err != nil {
		respond.WriteBadRequest(w, "cannot parse form")
		return
	}

	form := make(map[string]string, len(r.PostForm))
	for name := range r.PostForm {
		form[name] = r.PostForm.Get(name)
	}

	if err := h.svc.Save(r.Context(), login, form); err != nil {
		writeServiceError(w, err)
		return
	}

	respond.WriteJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

// ExportFilters handles GET /export-filters.
func (h *FilterHandler) ExportFilters(w http.ResponseWriter, r *http.Request) {
	login := requestLogin(r)
	if login == "" {
		respond.WriteUnauthorized(w, "there is no login")
		return
	}

	views, err := h.svc.Export(r.Context(), login)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="filters.json"`)
	respond.WriteJSON(w, http.StatusOK, views)
}

// ImportFilters handles POST /import-filters with a JSON rule list body.
func (h *FilterHandler) ImportFilters(w http.ResponseWriter, r *http.Request) {
	login := requestLogin(r)
	if login == "" {
		respond.WriteUnauthorized(w, "there is no login")
		return
	}

	var views []model.FilterRuleView
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&views); err != nil {
		respond.WriteBadRequest(w, "invalid JSON: filter data should be a list")
		return
	}

	if err := h.svc.Import(r.Context(), login, views); err != nil {
		writeServiceError(w, err)
		return
	}

	respond.WriteJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

package server

import (
	"net/http"

	"github.com/policypulse/policypulse/internal/model"
)

// HandleGetOrCreateUser handles POST /v1/users: finds or registers a user by
// email.
func (h *Handlers) HandleGetOrCreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	u, err := h.db.GetOrCreateUser(r.Context(), req.Email)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, u)
}

// HandleSavePreferences handles PUT /v1/users/{id}/preferences.
func (h *Handlers) HandleSavePreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid user id")
		return
	}

	var req model.SavePreferencesRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	prefs := model.UserPreferences{
		UserID:         userID,
		Keywords:       req.Keywords,
		HealthFocus:    req.HealthFocus,
		LocalGovtFocus: req.LocalGovtFocus,
		Regions:        req.Regions,
	}
	if req.DefaultView != nil {
		prefs.DefaultView = *req.DefaultView
	}
	if req.ItemsPerPage != nil {
		prefs.ItemsPerPage = *req.ItemsPerPage
	}
	if req.SortBy != nil {
		prefs.SortBy = *req.SortBy
	}

	saved, err := h.db.SaveUserPreferences(r.Context(), prefs)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, saved)
}

// HandleGetPreferences handles GET /v1/users/{id}/preferences.
func (h *Handlers) HandleGetPreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid user id")
		return
	}
	prefs, err := h.db.GetUserPreferences(r.Context(), userID)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, prefs)
}

// HandleSaveAlertPreferences handles PUT /v1/users/{id}/alert-preferences.
func (h *Handlers) HandleSaveAlertPreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid user id")
		return
	}

	var prefs model.AlertPreferences
	if err := decodeJSON(w, r, &prefs, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	prefs.UserID = userID

	saved, err := h.db.SaveAlertPreferences(r.Context(), prefs)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, saved)
}

// HandleGetAlertPreferences handles GET /v1/users/{id}/alert-preferences.
func (h *Handlers) HandleGetAlertPreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid user id")
		return
	}
	prefs, err := h.db.GetAlertPreferences(r.Context(), userID)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, prefs)
}

// HandleAddSearchHistory handles POST /v1/users/{id}/search-history.
func (h *Handlers) HandleAddSearchHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid user id")
		return
	}

	var req model.AddSearchHistoryRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	rec := model.SearchRecord{UserID: userID, Filters: req.Filters, Results: req.Results}
	if req.Query != "" {
		rec.Query = &req.Query
	}

	saved, err := h.db.AddSearchHistory(r.Context(), rec)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, saved)
}

// HandleGetSearchHistory handles GET /v1/users/{id}/search-history.
func (h *Handlers) HandleGetSearchHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid user id")
		return
	}
	limit, _ := pagination(r)
	history, err := h.db.GetSearchHistory(r.Context(), userID, limit)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, history)
}

// HandleGetAlertHistory handles GET /v1/users/{id}/alert-history.
func (h *Handlers) HandleGetAlertHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid user id")
		return
	}
	limit, _ := pagination(r)
	history, err := h.db.ListAlertHistory(r.Context(), userID, limit)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, history)
}

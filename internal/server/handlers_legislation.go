package server

import (
	"errors"
	"net/http"

	"github.com/policypulse/policypulse/internal/model"
	"github.com/policypulse/policypulse/internal/storage"
)

// HandleListLegislation handles GET /v1/legislation.
func (h *Handlers) HandleListLegislation(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	bills, total, err := h.db.ListLegislation(r.Context(), limit, offset)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	writeList(w, r, bills, total, limit, offset)
}

// HandleGetLegislation handles GET /v1/legislation/{id}: the bill plus its
// latest analysis, latest text, sponsors, amendments, priority and ratings.
func (h *Handlers) HandleGetLegislation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid legislation id")
		return
	}

	bill, err := h.db.GetLegislation(r.Context(), id)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	detail := model.LegislationDetail{Legislation: bill}

	if latest, err := h.db.GetLatestAnalysis(r.Context(), id); err == nil {
		detail.LatestAnalysis = &latest
	} else if !errors.Is(err, storage.ErrNotFound) {
		writeStorageError(w, r, err)
		return
	}
	if text, err := h.db.GetLatestText(r.Context(), id); err == nil {
		detail.LatestText = &text
	} else if !errors.Is(err, storage.ErrNotFound) {
		writeStorageError(w, r, err)
		return
	}
	if sponsors, err := h.db.GetSponsors(r.Context(), id); err == nil {
		detail.Sponsors = sponsors
	}
	if amendments, err := h.db.ListAmendments(r.Context(), id); err == nil {
		detail.Amendments = amendments
	}
	if priority, err := h.db.GetPriority(r.Context(), id); err == nil {
		detail.Priority = &priority
	} else if !errors.Is(err, storage.ErrNotFound) {
		writeStorageError(w, r, err)
		return
	}
	if ratings, err := h.db.ListImpactRatings(r.Context(), id); err == nil {
		detail.ImpactRatings = ratings
	}

	writeJSON(w, r, http.StatusOK, detail)
}

// HandleSearchLegislation handles GET /v1/legislation/search?q=...
func (h *Handlers) HandleSearchLegislation(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "query parameter q is required")
		return
	}
	limit, offset := pagination(r)

	results, total, err := h.db.SearchLegislation(r.Context(), query, limit, offset)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	writeList(w, r, results, total, limit, offset)
}

// HandleListTexts handles GET /v1/legislation/{id}/texts.
func (h *Handlers) HandleListTexts(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid legislation id")
		return
	}
	texts, err := h.db.ListTextVersions(r.Context(), id)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, texts)
}

package server

import (
	"net/http"

	"github.com/policypulse/policypulse/internal/model"
)

// HandleCreateAnalysis handles POST /v1/legislation/{id}/analysis: appends a
// new immutable analysis version.
func (h *Handlers) HandleCreateAnalysis(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid legislation id")
		return
	}

	var payload model.AnalysisPayload
	if err := decodeJSON(w, r, &payload, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	a, err := h.analysisSvc.Record(r.Context(), id, payload)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, model.CreateAnalysisResponse{
		ID:              a.ID,
		AnalysisVersion: a.AnalysisVersion,
	})
}

// HandleListAnalyses handles GET /v1/legislation/{id}/analysis.
func (h *Handlers) HandleListAnalyses(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid legislation id")
		return
	}
	versions, err := h.analysisSvc.History(r.Context(), id)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, versions)
}

// HandleLatestAnalysis handles GET /v1/legislation/{id}/analysis/latest.
func (h *Handlers) HandleLatestAnalysis(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid legislation id")
		return
	}
	a, err := h.analysisSvc.Latest(r.Context(), id)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, a)
}

// HandleCreateImpactRating handles POST /v1/legislation/{id}/ratings.
func (h *Handlers) HandleCreateImpactRating(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid legislation id")
		return
	}

	var rating model.ImpactRating
	if err := decodeJSON(w, r, &rating, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	rating.LegislationID = id

	created, err := h.db.CreateImpactRating(r.Context(), rating)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, created)
}

package server

import (
	"fmt"
	"net/http"

	"github.com/policypulse/policypulse/internal/model"
)

// HandleIngest handles POST /v1/ingest: a batch of normalized bills from the
// ingestion collaborator, processed under one sync run.
func (h *Handlers) HandleIngest(w http.ResponseWriter, r *http.Request) {
	var req model.IngestRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if len(req.Bills) == 0 {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "bills cannot be empty")
		return
	}
	if h.maxIngestBatch > 0 && len(req.Bills) > h.maxIngestBatch {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput,
			fmt.Sprintf("batch of %d exceeds limit of %d bills", len(req.Bills), h.maxIngestBatch))
		return
	}
	for i, rec := range req.Bills {
		if err := rec.Validate(); err != nil {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput,
				fmt.Sprintf("bill %d: %s", i, err))
			return
		}
	}

	run, results, err := h.ingestSvc.Run(r.Context(), req.SyncType, req.Bills)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, model.IngestResponse{Run: run, Results: results})
}

// HandleSyncHistory handles GET /v1/sync/history.
func (h *Handlers) HandleSyncHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := pagination(r)
	runs, err := h.db.GetSyncHistory(r.Context(), limit)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, runs)
}

// HandleSyncErrors handles GET /v1/sync/{id}/errors.
func (h *Handlers) HandleSyncErrors(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid sync run id")
		return
	}
	errs, err := h.db.ListSyncErrors(r.Context(), id)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, errs)
}

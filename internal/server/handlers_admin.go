package server

import (
	"net/http"

	"github.com/policypulse/policypulse/internal/auth"
	"github.com/policypulse/policypulse/internal/model"
)

// HandleDeleteLegislation handles DELETE /v1/legislation/{id}: removes a
// bill and everything attached to it, returning per-table counts.
func (h *Handlers) HandleDeleteLegislation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid legislation id")
		return
	}

	counts, err := h.db.DeleteLegislation(r.Context(), id)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	h.logger.Info("admin: legislation deleted",
		"legislation_id", id,
		"client_id", ClaimsFromContext(r.Context()).ClientID)
	writeJSON(w, r, http.StatusOK, counts)
}

// HandleCreateAPIKey handles POST /v1/admin/api-keys: provisions a
// collaborator credential. The plaintext key appears once in the response
// and is never stored.
func (h *Handlers) HandleCreateAPIKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClientID string `json:"client_id"`
		APIKey   string `json:"api_key"`
		Role     string `json:"role,omitempty"`
	}
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if req.ClientID == "" || req.APIKey == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "client_id and api_key are required")
		return
	}
	if req.Role != "" && req.Role != auth.RoleCollaborator && req.Role != auth.RoleAdmin {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "role must be collaborator or admin")
		return
	}

	hash, err := auth.HashAPIKey(req.APIKey)
	if err != nil {
		h.logger.Error("admin: hash api key failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "internal server error")
		return
	}

	key, err := h.db.CreateAPIKey(r.Context(), req.ClientID, hash, req.Role)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, map[string]any{
		"id":        key.ID,
		"client_id": key.ClientID,
		"role":      key.Role,
	})
}

package server

import (
	"net/http"

	"github.com/policypulse/policypulse/internal/model"
)

// HandleGetPriority handles GET /v1/legislation/{id}/priority.
func (h *Handlers) HandleGetPriority(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid legislation id")
		return
	}
	p, err := h.db.GetPriority(r.Context(), id)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, p)
}

// HandleManualReview handles PUT /v1/legislation/{id}/priority/review: a
// human priority decision that pins the row against automatic rescoring.
func (h *Handlers) HandleManualReview(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid legislation id")
		return
	}

	var review model.ManualReview
	if err := decodeJSON(w, r, &review, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	p, err := h.db.SetManualReview(r.Context(), id, review)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, p)
}

// HandlePendingNotifications handles GET /v1/notifications/pending.
func (h *Handlers) HandlePendingNotifications(w http.ResponseWriter, r *http.Request) {
	limit, _ := pagination(r)
	pending, err := h.db.ListPendingNotifications(r.Context(), limit)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, pending)
}

// markNotifiedRequest optionally logs the delivery against a user's alert
// history alongside latching the flag.
type markNotifiedRequest struct {
	UserID         int64           `json:"user_id,omitempty"`
	AlertType      model.AlertType `json:"alert_type,omitempty"`
	AlertContent   *string         `json:"alert_content,omitempty"`
	DeliveryStatus *string         `json:"delivery_status,omitempty"`
	ErrorMessage   *string         `json:"error_message,omitempty"`
}

// HandleMarkNotified handles POST /v1/legislation/{id}/notified: latches the
// one-shot notification flag after a successful send. When the body names a
// user, the delivery attempt is also appended to that user's alert history.
func (h *Handlers) HandleMarkNotified(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid legislation id")
		return
	}

	var req markNotifiedRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
			handleDecodeError(w, r, err)
			return
		}
	}

	p, err := h.db.MarkNotificationSent(r.Context(), id)
	if err != nil {
		writeStorageError(w, r, err)
		return
	}

	if req.UserID != 0 {
		if req.AlertType == "" {
			req.AlertType = model.AlertTypeHighPriority
		}
		if _, err := h.db.RecordAlert(r.Context(), model.AlertRecord{
			UserID:         req.UserID,
			LegislationID:  id,
			AlertType:      req.AlertType,
			AlertContent:   req.AlertContent,
			DeliveryStatus: req.DeliveryStatus,
			ErrorMessage:   req.ErrorMessage,
		}); err != nil {
			h.logger.Warn("failed to record alert history",
				"legislation_id", id, "user_id", req.UserID, "error", err)
		}
	}

	writeJSON(w, r, http.StatusOK, p)
}

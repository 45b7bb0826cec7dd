package handlers

import (
	"encoding/json"
	"net/http"

	"neurema-cms/internal/logger"
	"neurema-cms/internal/sanitize"
	"neurema-cms/internal/services"
)

const missingDataMessage = `The request body must include a "data" array.`

type BulkSyncHandler struct {
	svc *services.BulkSyncService
	log *logger.Logger
}

func NewBulkSyncHandler(svc *services.BulkSyncService, log *logger.Logger) *BulkSyncHandler {
	return &BulkSyncHandler{svc: svc, log: log}
}

// StudySessions handles POST /api/study-sessions/bulk-sync.
func (h *BulkSyncHandler) StudySessions(w http.ResponseWriter, r *http.Request) {
	items, ok := h.decodeBatch(w, r)
	if !ok {
		return
	}

	batch := sanitize.All(items, sanitize.StudySession)
	h.logRejections(r, services.CollectionStudySessions, batch.Rejections)

	results, err := h.svc.SyncStudySessions(r.Context(), batch.Entries)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: results})
}

// UserTopics handles POST /api/user-topics/bulk-sync.
func (h *BulkSyncHandler) UserTopics(w http.ResponseWriter, r *http.Request) {
	items, ok := h.decodeBatch(w, r)
	if !ok {
		return
	}

	batch := sanitize.All(items, sanitize.UserTopic)
	h.logRejections(r, services.CollectionUserTopics, batch.Rejections)

	results, err := h.svc.SyncUserTopics(r.Context(), batch.Entries)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: results})
}

// decodeBatch reads {"data": [...]} keeping numbers as json.Number. It writes
// the 400 response itself when the body has no data array.
func (h *BulkSyncHandler) decodeBatch(w http.ResponseWriter, r *http.Request) ([]any, bool) {
	var body map[string]any
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", missingDataMessage, r))
		return nil, false
	}

	items, ok := body["data"].([]any)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", missingDataMessage, r))
		return nil, false
	}
	return items, true
}

func (h *BulkSyncHandler) logRejections(r *http.Request, collection string, rejections []sanitize.Rejection) {
	for _, rej := range rejections {
		h.log.Debug("dropped bulk-sync entry",
			"collection", collection,
			"index", rej.Index,
			"reason", string(rej.Reason),
			"request_id", r.Header.Get("X-Request-ID"),
		)
	}
}

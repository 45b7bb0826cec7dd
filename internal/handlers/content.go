package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"neurema-cms/internal/logger"
	"neurema-cms/internal/models"
	"neurema-cms/internal/services"
)

// ContentHandler serves the CRUD routes of one collection. Bodies and
// responses use the {"data": ...} envelope.
type ContentHandler[T any, In services.Input] struct {
	svc *services.ContentService[T, In]
	// filters maps list query parameters to the column they narrow.
	filters map[string]string
	log     *logger.Logger
}

func NewContentHandler[T any, In services.Input](svc *services.ContentService[T, In], filters map[string]string, log *logger.Logger) *ContentHandler[T, In] {
	return &ContentHandler[T, In]{svc: svc, filters: filters, log: log}
}

// Routes mounts list/get/create/update/delete on r.
func (h *ContentHandler[T, In]) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

func (h *ContentHandler[T, In]) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filters := map[string]any{}
	for param, column := range h.filters {
		raw := q.Get(param)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid "+param+" filter", r))
			return
		}
		filters[column] = id
	}

	page := queryInt(q.Get("page"), q.Get("pagination[page]"))
	pageSize := queryInt(q.Get("pageSize"), q.Get("pagination[pageSize]"))

	items, pagination, err := h.svc.List(r.Context(), filters, page, pageSize)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: items, Meta: &models.ListMeta{Pagination: pagination}})
}

func (h *ContentHandler[T, In]) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	item, err := h.svc.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: item})
}

func (h *ContentHandler[T, In]) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeData[In](w, r)
	if !ok {
		return
	}

	item, err := h.svc.Create(r.Context(), in)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, dataResponse{Data: item})
}

func (h *ContentHandler[T, In]) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	in, ok := decodeData[In](w, r)
	if !ok {
		return
	}

	item, err := h.svc.Update(r.Context(), id, in)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: item})
}

func (h *ContentHandler[T, In]) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	item, err := h.svc.Delete(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: item})
}

func decodeData[In any](w http.ResponseWriter, r *http.Request) (In, bool) {
	var body struct {
		Data *In `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var zero In
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return zero, false
	}
	if body.Data == nil {
		var zero In
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", `Missing "data" payload in the request body`, r))
		return zero, false
	}
	return *body.Data, true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Not Found", r))
		return 0, false
	}
	return id, true
}

// queryInt returns the first value that parses as an integer, or 0.
func queryInt(values ...string) int {
	for _, v := range values {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}

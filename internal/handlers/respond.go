package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"neurema-cms/internal/logger"
	"neurema-cms/internal/models"
	"neurema-cms/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}

func errorRespWithFields(code, message string, fields map[string]string, r *http.Request) models.ErrorResponse {
	resp := errorResp(code, message, r)
	resp.Error.Fields = fields
	return resp
}

func handleServiceError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	var (
		validation *services.ValidationError
		badRequest *services.BadRequestError
		conflict   *services.ConflictError
		notFound   *services.NotFoundError
		unauth     *services.UnauthorizedError
		limited    *services.RateLimitError
	)

	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", validation.Fields, r))
	case errors.As(err, &badRequest):
		writeJSON(w, http.StatusBadRequest, errorResp("BAD_REQUEST", badRequest.Message, r))
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", conflict.Message, r))
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", notFound.Message, r))
	case errors.As(err, &unauth):
		writeJSON(w, http.StatusUnauthorized, errorResp("UNAUTHORIZED", unauth.Message, r))
	case errors.As(err, &limited):
		writeJSON(w, http.StatusTooManyRequests, errorResp("RATE_LIMITED", limited.Message, r))
	default:
		log.Error("request failed", "method", r.Method, "path", r.URL.Path, "request_id", r.Header.Get("X-Request-ID"), "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
	}
}

type dataResponse struct {
	Data any              `json:"data"`
	Meta *models.ListMeta `json:"meta,omitempty"`
}

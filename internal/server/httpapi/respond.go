package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"practice_service/internal/docstore"
	"practice_service/internal/service"
)

func mapErr(err error) int {
	switch {
	case errors.Is(err, service.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, service.ErrInvalidArgument), errors.Is(err, service.ErrUnknownModule):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound), errors.Is(err, docstore.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, docstore.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

func writeServiceError(w http.ResponseWriter, err error) {
	statusCode := mapErr(err)
	message := http.StatusText(statusCode)
	if statusCode == http.StatusBadRequest {
		message = err.Error()
	}
	writeError(w, statusCode, message)
}

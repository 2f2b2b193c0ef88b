package httpapi

import (
	"encoding/json"
	"net/http"

	"modalnav/pkg/types"
)

// HTTPError allows handlers to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// writeHandlerError maps a handler error to a JSON error response.
func writeHandlerError(w http.ResponseWriter, err error) {
	if he, ok := err.(HTTPError); ok {
		writeJSONError(w, he.StatusCode(), he.Error())
		return
	}
	writeJSONError(w, http.StatusInternalServerError, err.Error())
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// NotFound is a ready-made 404 for modal handlers.
type NotFound string

func (e NotFound) Error() string   { return string(e) }
func (e NotFound) StatusCode() int { return http.StatusNotFound }

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"intents/internal/intents"
	"intents/internal/store"
	"intents/internal/toolkind"
)

// statusFor maps lifecycle errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, intents.ErrBadRequest),
		errors.Is(err, store.ErrInvalidName),
		errors.Is(err, store.ErrInvalidParam),
		errors.Is(err, toolkind.ErrUnknownKind):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError reports err verbatim with the status it maps to.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": "⚠️ " + err.Error()})
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

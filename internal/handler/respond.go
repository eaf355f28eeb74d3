package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/set-night/mindchat/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// respondError maps a service error to a status and a readable message.
// notFound is the status used for an unknown thread, which differs between
// lookups (404) and writes that reference a thread (400). failure is shown
// for anything unexpected.
func respondError(w http.ResponseWriter, r *http.Request, err error, notFound int, failure string) {
	switch {
	case domain.IsValidation(err):
		writeError(w, http.StatusBadRequest, sentence(err.Error()))
	case errors.Is(err, domain.ErrThreadNotFound):
		writeError(w, notFound, "Thread not found")
	case errors.Is(err, domain.ErrTurnInProgress):
		writeError(w, http.StatusConflict, sentence(err.Error()))
	default:
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, failure)
	}
}

func sentence(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.TrimSpace(s[size:])
}

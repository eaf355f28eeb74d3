package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/service"
)

type chatRequest struct {
	ThreadID string `json:"threadId"`
	Message  string `json:"message"`
	ImageURL string `json:"imageUrl"`
}

// handleChat runs one turn. Validation and store failures before the first
// byte are JSON errors; after that the only failure signal is the in-band
// sentinel.
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, config.MaxChatRequestBytes)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body is too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	turn, err := h.turns.Prepare(r.Context(), service.TurnInput{
		ThreadID: req.ThreadID,
		Message:  req.Message,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest, "Failed to save message")
		return
	}

	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		slog.Debug("failed to clear write deadline", "error", err)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	_ = rc.Flush()

	// The model call outlives a disconnected client so the reply still gets saved.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.requestTimeout)
	defer cancel()

	res := h.turns.Stream(ctx, turn, &flushWriter{w: w, rc: rc})
	if res.WriteErr != nil {
		slog.Info("client disconnected during stream",
			"thread_id", turn.ThreadID,
			"saved", res.Message != nil,
		)
	}
}

// flushWriter pushes every fragment to the client as soon as it is written.
type flushWriter struct {
	w  io.Writer
	rc *http.ResponseController
}

func (f *flushWriter) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	if err != nil {
		return n, err
	}
	if err := f.rc.Flush(); err != nil {
		return n, err
	}
	return n, nil
}

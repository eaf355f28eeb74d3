package handler

import (
	"net/http"

	"github.com/set-night/mindchat/internal/middleware"
	"github.com/set-night/mindchat/web"
)

// Routes builds the server's route table wrapped in the common middleware.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	// Pages
	mux.HandleFunc("GET /{$}", h.handleHome)
	mux.Handle("GET /threads/{threadId}",
		middleware.ThreadLoader(h.threads, h.pageError)(http.HandlerFunc(h.handleThreadPage)))

	// API
	mux.HandleFunc("POST /api/threads", h.handleCreateThread)
	mux.Handle("GET /api/threads/{threadId}/messages",
		middleware.ThreadLoader(h.threads, h.apiLoadError)(http.HandlerFunc(h.handleListMessages)))
	mux.HandleFunc("POST /api/chat", h.handleChat)
	mux.HandleFunc("POST /api/upload", h.handleUpload)

	// Assets
	mux.Handle("GET /static/", http.FileServer(http.FS(web.FS)))
	if h.filesDir != "" {
		mux.Handle("GET /files/", http.StripPrefix("/files/", http.FileServer(http.Dir(h.filesDir))))
	}

	mux.HandleFunc("GET /health", h.handleHealth)

	return middleware.Chain(mux, middleware.Logging(), middleware.Recover())
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

package handler

import (
	"bytes"
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/middleware"
	"github.com/set-night/mindchat/internal/render"
)

type createThreadResponse struct {
	ThreadID uuid.UUID `json:"threadId"`
}

type messagesResponse struct {
	Thread   *domain.Thread   `json:"thread"`
	Messages []domain.Message `json:"messages"`
}

// handleHome starts a fresh thread and sends the browser to it.
func (h *Handler) handleHome(w http.ResponseWriter, r *http.Request) {
	t, err := h.threads.Create(r.Context())
	if err != nil {
		slog.Error("failed to create thread", "error", err)
		http.Error(w, "Failed to create thread", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/threads/"+t.ID.String(), http.StatusSeeOther)
}

func (h *Handler) handleCreateThread(w http.ResponseWriter, r *http.Request) {
	t, err := h.threads.Create(r.Context())
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError, "Failed to create thread")
		return
	}
	writeJSON(w, http.StatusCreated, createThreadResponse{ThreadID: t.ID})
}

func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	thread := middleware.GetThread(r.Context())
	msgs, err := h.threads.History(r.Context(), thread.ID)
	if err != nil {
		respondError(w, r, err, http.StatusNotFound, "Failed to load messages")
		return
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	writeJSON(w, http.StatusOK, messagesResponse{Thread: thread, Messages: msgs})
}

func (h *Handler) apiLoadError(w http.ResponseWriter, r *http.Request, err error) {
	respondError(w, r, err, http.StatusNotFound, "Failed to load thread")
}

type messageView struct {
	ID       uuid.UUID
	Role     domain.Role
	ImageURL string
	HTML     template.HTML
}

type threadPage struct {
	ThreadID uuid.UUID
	Messages []messageView
}

func (h *Handler) handleThreadPage(w http.ResponseWriter, r *http.Request) {
	thread := middleware.GetThread(r.Context())
	msgs, err := h.threads.History(r.Context(), thread.ID)
	if err != nil {
		h.pageError(w, r, err)
		return
	}

	page := threadPage{ThreadID: thread.ID, Messages: make([]messageView, 0, len(msgs))}
	for _, m := range msgs {
		v := messageView{ID: m.ID, Role: m.Role}
		if m.HasImage() {
			v.ImageURL = *m.ImageURL
		}
		if m.Content != "" {
			if m.Role == domain.RoleAssistant {
				v.HTML = render.Markdown(m.Content)
			} else {
				v.HTML = render.Plain(m.Content)
			}
		}
		page.Messages = append(page.Messages, v)
	}

	h.renderPage(w, http.StatusOK, "thread.html", page)
}

func (h *Handler) pageError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrThreadNotFound) {
		h.renderPage(w, http.StatusNotFound, "not_found.html", nil)
		return
	}
	slog.Error("failed to load thread page", "path", r.URL.Path, "error", err)
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

// renderPage executes into a buffer first so a template error still yields a
// clean 500.
func (h *Handler) renderPage(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := h.templates.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("failed to render template", "template", name, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

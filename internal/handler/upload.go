package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/service"
)

type uploadResponse struct {
	ImageURL string `json:"imageUrl"`
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, config.MaxUploadRequestBytes)

	if err := r.ParseMultipartForm(config.MaxImageBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusBadRequest, sentence(domain.ErrImageTooLarge.Error()))
			return
		}
		slog.Debug("failed to parse upload", "error", err)
		writeError(w, http.StatusBadRequest, "Failed to parse upload request")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, sentence(domain.ErrMissingFile.Error()))
		return
	}
	defer file.Close()

	url, err := h.uploads.Upload(r.Context(), service.UploadInput{
		ThreadID:    r.FormValue("threadId"),
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest, "Failed to upload image")
		return
	}
	writeJSON(w, http.StatusOK, uploadResponse{ImageURL: url})
}

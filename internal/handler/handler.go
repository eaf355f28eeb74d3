package handler

import (
	"fmt"
	"html/template"
	"time"

	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/service"
	"github.com/set-night/mindchat/web"
)

// Handler holds all dependencies needed by the HTTP handlers.
type Handler struct {
	threads        *service.ThreadService
	turns          *service.TurnService
	uploads        *service.UploadService
	templates      *template.Template
	filesDir       string
	requestTimeout time.Duration
}

// Deps contains all dependencies required to construct a Handler.
type Deps struct {
	Threads *service.ThreadService
	Turns   *service.TurnService
	Uploads *service.UploadService
	// FilesDir is served under /files/ when uploads are kept on local disk.
	FilesDir       string
	RequestTimeout time.Duration
}

// New creates a new Handler from the provided dependencies.
func New(deps Deps) (*Handler, error) {
	tmpl, err := template.ParseFS(web.FS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = config.RequestTimeout
	}
	return &Handler{
		threads:        deps.Threads,
		turns:          deps.Turns,
		uploads:        deps.Uploads,
		templates:      tmpl,
		filesDir:       deps.FilesDir,
		requestTimeout: timeout,
	}, nil
}

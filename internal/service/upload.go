package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/storage"
)

type UploadService struct {
	store   Store
	objects storage.ObjectStore
	maxSize int64
}

func NewUploadService(store Store, objects storage.ObjectStore) *UploadService {
	return &UploadService{store: store, objects: objects, maxSize: config.MaxImageBytes}
}

type UploadInput struct {
	ThreadID    string
	Filename    string
	ContentType string
	// Size is the declared size, or -1 when unknown.
	Size int64
	Body io.Reader
}

// Upload stores an image for a thread and returns its public URL. Type and
// size are checked before the thread is looked up, so invalid files never
// touch the store.
func (s *UploadService) Upload(ctx context.Context, in UploadInput) (string, error) {
	threadID, err := ParseThreadID(in.ThreadID)
	if err != nil {
		return "", err
	}
	if in.Body == nil {
		return "", domain.ErrMissingFile
	}

	contentType := normalizeContentType(in.ContentType)
	ext, ok := config.AllowedImageTypes[contentType]
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedImageType, displayType(in.ContentType))
	}
	if in.Size > s.maxSize {
		return "", domain.ErrImageTooLarge
	}

	// Read one byte past the limit so an understated Size is still caught.
	data, err := io.ReadAll(io.LimitReader(in.Body, s.maxSize+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxSize {
		return "", domain.ErrImageTooLarge
	}
	if len(data) == 0 {
		return "", domain.ErrEmptyFile
	}
	if sniffed := http.DetectContentType(data); sniffed != contentType {
		return "", fmt.Errorf("%w: file content is %s", domain.ErrUnsupportedImageType, sniffed)
	}

	if _, err := s.store.GetThread(ctx, threadID); err != nil {
		if errors.Is(err, domain.ErrThreadNotFound) {
			return "", err
		}
		return "", fmt.Errorf("get thread: %w", err)
	}

	key := fmt.Sprintf("%s/%s.%s", threadID, uuid.New(), ext)
	if err := s.objects.Put(ctx, key, contentType, bytes.NewReader(data), int64(len(data))); err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}

	url := s.objects.PublicURL(key)
	slog.Info("image uploaded",
		"thread_id", threadID,
		"key", key,
		"filename", in.Filename,
		"bytes", len(data),
	)
	return url, nil
}

func normalizeContentType(ct string) string {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(ct))
	}
	return mt
}

func displayType(ct string) string {
	if ct == "" {
		return "unknown"
	}
	return ct
}

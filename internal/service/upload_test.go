package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngHeader  = []byte("\x89PNG\x0D\x0A\x1A\x0A")
	jpegHeader = []byte("\xFF\xD8\xFF\xE0")
)

func imageOf(header []byte, size int) []byte {
	b := make([]byte, size)
	copy(b, header)
	return b
}

func TestUploadAcceptsPNG(t *testing.T) {
	store := newMemStore()
	id := newThread(t, store)
	objects := newMemObjects()
	svc := NewUploadService(store, objects)

	data := imageOf(pngHeader, 1024*1024)
	url, err := svc.Upload(context.Background(), UploadInput{
		ThreadID:    id.String(),
		Filename:    "diagram.png",
		ContentType: "image/png",
		Size:        int64(len(data)),
		Body:        bytes.NewReader(data),
	})
	require.NoError(t, err)

	prefix := "https://cdn.test/chat-images/" + id.String() + "/"
	require.True(t, strings.HasPrefix(url, prefix), url)
	assert.True(t, strings.HasSuffix(url, ".png"))
	_, err = uuid.Parse(strings.TrimSuffix(strings.TrimPrefix(url, prefix), ".png"))
	assert.NoError(t, err)

	require.Len(t, objects.objects, 1)
	for key, body := range objects.objects {
		assert.Len(t, body, len(data))
		assert.Equal(t, "image/png", objects.types[key])
	}
}

func TestUploadRejections(t *testing.T) {
	store := newMemStore()
	id := newThread(t, store)

	tests := []struct {
		name string
		in   UploadInput
		want error
	}{
		{
			name: "oversize jpeg",
			in: UploadInput{
				ThreadID: id.String(), ContentType: "image/jpeg", Size: 6 * 1024 * 1024,
				Body: bytes.NewReader(imageOf(jpegHeader, 6*1024*1024)),
			},
			want: domain.ErrImageTooLarge,
		},
		{
			name: "understated size",
			in: UploadInput{
				ThreadID: id.String(), ContentType: "image/jpeg", Size: 10,
				Body: bytes.NewReader(imageOf(jpegHeader, config.MaxImageBytes+1)),
			},
			want: domain.ErrImageTooLarge,
		},
		{
			name: "bmp",
			in: UploadInput{
				ThreadID: id.String(), ContentType: "image/bmp", Size: 100,
				Body: bytes.NewReader(imageOf([]byte("BM"), 100)),
			},
			want: domain.ErrUnsupportedImageType,
		},
		{
			name: "content does not match type",
			in: UploadInput{
				ThreadID: id.String(), ContentType: "image/png", Size: 100,
				Body: strings.NewReader(strings.Repeat("hello ", 20)),
			},
			want: domain.ErrUnsupportedImageType,
		},
		{
			name: "empty file",
			in:   UploadInput{ThreadID: id.String(), ContentType: "image/png", Body: bytes.NewReader(nil)},
			want: domain.ErrEmptyFile,
		},
		{
			name: "missing file",
			in:   UploadInput{ThreadID: id.String(), ContentType: "image/png"},
			want: domain.ErrMissingFile,
		},
		{
			name: "missing thread",
			in:   UploadInput{ContentType: "image/png", Body: bytes.NewReader(imageOf(pngHeader, 10))},
			want: domain.ErrMissingThreadID,
		},
		{
			name: "unknown thread",
			in: UploadInput{
				ThreadID: uuid.NewString(), ContentType: "image/png", Size: 64,
				Body: bytes.NewReader(imageOf(pngHeader, 64)),
			},
			want: domain.ErrThreadNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			objects := newMemObjects()
			svc := NewUploadService(store, objects)

			_, err := svc.Upload(context.Background(), tt.in)
			require.ErrorIs(t, err, tt.want)
			assert.Empty(t, objects.objects)
		})
	}
}

func TestUploadContentTypeParameters(t *testing.T) {
	store := newMemStore()
	id := newThread(t, store)
	svc := NewUploadService(store, newMemObjects())

	_, err := svc.Upload(context.Background(), UploadInput{
		ThreadID:    id.String(),
		ContentType: "IMAGE/PNG; charset=binary",
		Size:        -1,
		Body:        bytes.NewReader(imageOf(pngHeader, 32)),
	})
	require.NoError(t, err)
}

func TestUploadObjectStoreFailure(t *testing.T) {
	store := newMemStore()
	id := newThread(t, store)
	objects := newMemObjects()
	objects.err = errors.New("bucket unavailable")
	svc := NewUploadService(store, objects)

	_, err := svc.Upload(context.Background(), UploadInput{
		ThreadID:    id.String(),
		ContentType: "image/png",
		Body:        bytes.NewReader(imageOf(pngHeader, 32)),
	})
	require.Error(t, err)
	assert.False(t, domain.IsValidation(err))
	assert.NotErrorIs(t, err, domain.ErrThreadNotFound)
}

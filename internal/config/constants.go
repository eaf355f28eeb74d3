package config

import "time"

const (
	// Image uploads
	MaxImageBytes = 5 * 1024 * 1024

	// Multipart overhead allowed on top of MaxImageBytes
	MaxUploadRequestBytes = MaxImageBytes + 1024*1024

	// Chat request body limit
	MaxChatRequestBytes = 1024 * 1024

	// Longest accepted user message, in bytes
	MaxMessageLength = 32 * 1024

	// Text sent alongside an image when the user typed nothing
	ImageFallbackText = "Describe this image."

	// Upper bound for one provider call including the final save
	RequestTimeout = 5 * time.Minute

	// Deadline for saving the assistant reply after the stream ends
	PersistTimeout = 10 * time.Second

	// Active turn guard
	ActiveTurnTTL    = 10 * time.Minute
	StaleTurnCleanup = 60 * time.Second

	// HTTP server
	ReadHeaderTimeout = 10 * time.Second
	IdleTimeout       = 120 * time.Second
	ShutdownTimeout   = 15 * time.Second

	// Telegram message length limit for alerts
	MaxTelegramMessageLen = 4096

	DefaultSystemPrompt = "You are a helpful assistant. Answer clearly and concisely. " +
		"When the user shares an image, describe what is relevant to their question."
)

// AllowedImageTypes maps accepted upload MIME types to the stored file extension.
var AllowedImageTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

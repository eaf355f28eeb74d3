package domain

import "errors"

var (
	ErrThreadNotFound  = errors.New("thread not found")
	ErrMissingThreadID = errors.New("thread id is required")
	ErrInvalidThreadID = errors.New("thread id is not a valid uuid")
	ErrEmptyTurn       = errors.New("message or image is required")
	ErrMessageTooLong  = errors.New("message is too long")
	ErrTurnInProgress  = errors.New("a reply is already being generated for this thread")

	ErrMissingFile          = errors.New("file is required")
	ErrUnsupportedImageType = errors.New("unsupported image type")
	ErrImageTooLarge        = errors.New("image is too large")
	ErrEmptyFile            = errors.New("file is empty")
)

// IsValidation reports whether err is a client-side validation failure.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrMissingThreadID,
		ErrInvalidThreadID,
		ErrEmptyTurn,
		ErrMessageTooLong,
		ErrMissingFile,
		ErrUnsupportedImageType,
		ErrImageTooLarge,
		ErrEmptyFile,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

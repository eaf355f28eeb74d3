package domain

import "strings"

// ErrorSentinel marks an in-band failure inside an otherwise successful
// text stream. Everything after it is a human-readable error message.
const ErrorSentinel = "[ERROR]:"

// FormatStreamError renders the error marker written at the end of a failed stream.
func FormatStreamError(message string) string {
	return "\n\n" + ErrorSentinel + " " + message
}

// ParseStreamError reports whether chunk carries the error marker and returns
// the trimmed message following the last occurrence of it.
func ParseStreamError(chunk string) (string, bool) {
	idx := strings.LastIndex(chunk, ErrorSentinel)
	if idx < 0 {
		return "", false
	}
	return strings.TrimSpace(chunk[idx+len(ErrorSentinel):]), true
}

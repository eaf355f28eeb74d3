// Package storage puts uploaded images into an object store and hands back
// publicly dereferenceable URLs.
package storage

import (
	"context"
	"io"
	"strings"
)

type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	PublicURL(key string) string
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}

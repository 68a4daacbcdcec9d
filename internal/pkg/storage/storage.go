package storage

import (
	"context"
	"io"
)

// Storage is the minimal interface for media storage backends: save an
// object, fetch it back, delete it, resolve its public URL.
type Storage interface {
	// Save stores an object at the given key.
	Save(ctx context.Context, key string, reader io.Reader, contentType string) error

	// Get retrieves an object by key. Caller closes the reader.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes an object by key. Returns nil if the object is absent.
	Delete(ctx context.Context, key string) error

	// GetURL returns the public URL for an object key.
	GetURL(key string) string
}

// FileInfo describes a stored object.
type FileInfo struct {
	Key         string `json:"key"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
	URL         string `json:"url"`
}

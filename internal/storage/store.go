package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotConfigured is returned by callers that need a store when none is set up.
var ErrNotConfigured = errors.New("storage: not configured")

// Object describes a file entry in the bucket.
type Object struct {
	Name        string    `json:"name"`
	Path        string    `json:"path"`
	URL         string    `json:"url"`
	Size        int64     `json:"size,omitempty"`
	ContentType string    `json:"contentType,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}

// Store is the object storage the content engine writes assets to.
type Store interface {
	// Upload writes body at key, overwriting any existing object.
	Upload(ctx context.Context, key string, body io.Reader, contentType string) error
	// Remove deletes the objects at keys.
	Remove(ctx context.Context, keys ...string) error
	// List returns the files directly under prefix; sub-directories are omitted.
	List(ctx context.Context, prefix string) ([]Object, error)
	// PublicURL returns the public URL for key.
	PublicURL(key string) string
	// StorageKey reverses a public URL or relative path into a key.
	StorageKey(ref string) string
}

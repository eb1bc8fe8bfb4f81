// Package storage holds document content in an S3-compatible object store.
// Content is streamed; nothing is staged on local disk.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrObjectNotFound is returned by Get when the key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// PutObjectOptions describe an upload. Size is -1 when unknown, in which case the
// backend switches to multipart streaming.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is the object store used for document content.
type Storage interface {
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Get streams an object. The caller closes the reader.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Delete removes an object. Removing a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// PresignGet returns a URL that downloads the object without credentials until expiry.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

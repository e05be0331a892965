// Package objectstore stores uploaded scan files. It defines the Store
// interface used by the scans service, an in-memory implementation for tests
// and development, a local filesystem implementation that serves its own
// signed URLs, and a Google Cloud Storage implementation.
//
// Stores never overwrite: writing to a path that already holds an object
// fails with ErrObjectExists.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Sentinel errors
// ---------------------------------------------------------------------------

var (
	ErrObjectExists   = errors.New("object already exists")
	ErrObjectNotFound = errors.New("object not found")
	ErrInvalidPath    = errors.New("invalid object path")
	ErrInvalidToken   = errors.New("invalid or expired object token")
)

// DefaultURLExpiry is the lifetime of signed URLs handed to viewers.
const DefaultURLExpiry = time.Hour

// ---------------------------------------------------------------------------
// Domain types
// ---------------------------------------------------------------------------

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Path        string    `json:"path"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Hash        string    `json:"hash"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store is the write and share side of an object backend.
type Store interface {
	// Put writes content at path. It fails with ErrObjectExists when the
	// path is taken.
	Put(ctx context.Context, path, contentType string, content io.Reader) (*ObjectInfo, error)
	// SignedURL returns a time-limited URL granting read access to path.
	SignedURL(ctx context.Context, path string, expiry time.Duration) (string, error)
}

// Reader is implemented by stores that can stream objects back.
type Reader interface {
	Open(ctx context.Context, path string) (io.ReadCloser, *ObjectInfo, error)
}

// ValidatePath rejects empty, absolute, and traversal paths.
func ValidatePath(path string) error {
	if path == "" || strings.HasPrefix(path, "/") || strings.Contains(path, `\`) {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	return nil
}

var (
	_ Store  = (*Memory)(nil)
	_ Store  = (*Local)(nil)
	_ Store  = (*GCS)(nil)
	_ Reader = (*Memory)(nil)
	_ Reader = (*Local)(nil)
	_ Reader = (*GCS)(nil)
)

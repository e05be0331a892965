package objectstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"
)

type storedObject struct {
	info    ObjectInfo
	content []byte
}

// Memory is a thread-safe, in-memory Store for tests and development.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]*storedObject
}

// NewMemory returns a ready-to-use Memory store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string]*storedObject)}
}

// Put reads the content into memory, hashes it, and stores it at path.
func (m *Memory) Put(_ context.Context, path, contentType string, content io.Reader) (*ObjectInfo, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(content)
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}

	h := sha256.Sum256(data)
	info := ObjectInfo{
		Path:        path,
		ContentType: contentType,
		Size:        int64(len(data)),
		Hash:        fmt.Sprintf("%x", h),
		CreatedAt:   time.Now().UTC(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[path]; ok {
		return nil, fmt.Errorf("%w: %s", ErrObjectExists, path)
	}
	m.objects[path] = &storedObject{info: info, content: data}

	out := info
	return &out, nil
}

// SignedURL returns a memory:// URL carrying the expiry. Nothing verifies it;
// it exists so flows can be exercised without a real backend.
func (m *Memory) SignedURL(_ context.Context, path string, expiry time.Duration) (string, error) {
	m.mu.RLock()
	_, ok := m.objects[path]
	m.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrObjectNotFound, path)
	}

	q := url.Values{}
	q.Set("expires", fmt.Sprintf("%d", time.Now().Add(expiry).Unix()))
	return "memory://" + path + "?" + q.Encode(), nil
}

// Open returns a reader over the stored content.
func (m *Memory) Open(_ context.Context, path string) (io.ReadCloser, *ObjectInfo, error) {
	m.mu.RLock()
	obj, ok := m.objects[path]
	m.mu.RUnlock()
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrObjectNotFound, path)
	}

	info := obj.info
	return io.NopCloser(bytes.NewReader(obj.content)), &info, nil
}

// Len returns the number of stored objects.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

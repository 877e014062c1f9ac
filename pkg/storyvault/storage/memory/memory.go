// Package memory provides an in-memory BlobStore used by tests and local
// development.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/storyvault/storyvault/pkg/storyvault"
)

// BucketName is the logical bucket name the backend reports.
const BucketName = "memory"

// Backend is an in-memory implementation of the storyvault.BlobStore
// interface.
type Backend struct {
	mu           sync.RWMutex
	objects      map[string][]byte
	contentTypes map[string]string
	updatedAt    map[string]time.Time
}

// New creates a new in-memory storage backend
func New() *Backend {
	return &Backend{
		objects:      make(map[string][]byte),
		contentTypes: make(map[string]string),
		updatedAt:    make(map[string]time.Time),
	}
}

// Upload writes an object, replacing any existing object under the key
func (b *Backend) Upload(ctx context.Context, params storyvault.UploadParams, reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return &storyvault.StorageError{Op: "upload", Key: params.ObjectKey, Err: err}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[params.ObjectKey] = data
	b.updatedAt[params.ObjectKey] = time.Now().UTC()
	contentType := params.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	b.contentTypes[params.ObjectKey] = contentType
	return nil
}

// Download opens an object for reading
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[objectKey]
	if !exists {
		return nil, fmt.Errorf("download %s: %w", objectKey, storyvault.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete removes an object
func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.objects[objectKey]; !exists {
		return fmt.Errorf("delete %s: %w", objectKey, storyvault.ErrNotFound)
	}
	delete(b.objects, objectKey)
	delete(b.contentTypes, objectKey)
	delete(b.updatedAt, objectKey)
	return nil
}

// List returns all object keys under the given prefix in sorted order
func (b *Backend) List(ctx context.Context, prefix string) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var keys []string
	for key := range b.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// GetObjectMeta retrieves storage-level metadata for an object
func (b *Backend) GetObjectMeta(ctx context.Context, objectKey string) (*storyvault.ObjectMeta, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[objectKey]
	if !exists {
		return nil, fmt.Errorf("head %s: %w", objectKey, storyvault.ErrNotFound)
	}

	return &storyvault.ObjectMeta{
		Key:         objectKey,
		Size:        int64(len(data)),
		ContentType: b.contentTypes[objectKey],
		UpdatedAt:   b.updatedAt[objectKey],
	}, nil
}

// ListBuckets returns the single logical bucket of the backend
func (b *Backend) ListBuckets(ctx context.Context) ([]string, error) {
	return []string{BucketName}, nil
}

// Package fs provides a filesystem BlobStore for local development.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/storyvault/storyvault/pkg/storyvault"
)

// Backend is a filesystem implementation of the storyvault.BlobStore
// interface
type Backend struct {
	baseDir string
}

// Config options for the filesystem backend
type Config struct {
	BaseDir string // Base directory for storing files
}

// New creates a new filesystem storage backend
func New(config Config) (*Backend, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}

	if err := os.MkdirAll(config.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &Backend{baseDir: config.BaseDir}, nil
}

func (b *Backend) path(objectKey string) string {
	return filepath.Join(b.baseDir, filepath.FromSlash(objectKey))
}

// Upload writes an object, replacing any existing object under the key
func (b *Backend) Upload(ctx context.Context, params storyvault.UploadParams, reader io.Reader) error {
	filePath := b.path(params.ObjectKey)

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return &storyvault.StorageError{Op: "upload", Key: params.ObjectKey, Err: err}
	}

	file, err := os.Create(filePath)
	if err != nil {
		return &storyvault.StorageError{Op: "upload", Key: params.ObjectKey, Err: err}
	}
	defer file.Close()

	if _, err := io.Copy(file, reader); err != nil {
		return &storyvault.StorageError{Op: "upload", Key: params.ObjectKey, Err: err}
	}
	return nil
}

// Download opens an object for reading
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	file, err := os.Open(b.path(objectKey))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("download %s: %w", objectKey, storyvault.ErrNotFound)
	} else if err != nil {
		return nil, &storyvault.StorageError{Op: "download", Key: objectKey, Err: err}
	}
	return file, nil
}

// Delete removes an object and cleans up directories it leaves empty
func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	filePath := b.path(objectKey)

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return fmt.Errorf("delete %s: %w", objectKey, storyvault.ErrNotFound)
	}

	if err := os.Remove(filePath); err != nil {
		return &storyvault.StorageError{Op: "delete", Key: objectKey, Err: err}
	}

	b.cleanupEmptyDirectories(filepath.Dir(filePath))
	return nil
}

// List returns all object keys under the given prefix in sorted order
func (b *Backend) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(b.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(b.baseDir, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, &storyvault.StorageError{Op: "list", Key: prefix, Err: err}
	}
	sort.Strings(keys)
	return keys, nil
}

// GetObjectMeta retrieves storage-level metadata for an object
func (b *Backend) GetObjectMeta(ctx context.Context, objectKey string) (*storyvault.ObjectMeta, error) {
	filePath := b.path(objectKey)

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("head %s: %w", objectKey, storyvault.ErrNotFound)
	} else if err != nil {
		return nil, &storyvault.StorageError{Op: "head", Key: objectKey, Err: err}
	}

	// Content type is not stored separately; sniff it on read
	contentType := "application/octet-stream"
	if file, err := os.Open(filePath); err == nil {
		defer file.Close()
		buffer := make([]byte, 512)
		if n, err := file.Read(buffer); err == nil {
			contentType = http.DetectContentType(buffer[:n])
		}
	}

	return &storyvault.ObjectMeta{
		Key:         objectKey,
		Size:        info.Size(),
		ContentType: contentType,
		UpdatedAt:   info.ModTime(),
	}, nil
}

// ListBuckets returns the base directory name as the single logical bucket
func (b *Backend) ListBuckets(ctx context.Context) ([]string, error) {
	return []string{filepath.Base(b.baseDir)}, nil
}

// cleanupEmptyDirectories recursively removes empty directories up to baseDir
func (b *Backend) cleanupEmptyDirectories(dir string) {
	if dir == b.baseDir {
		return
	}

	if entries, err := os.ReadDir(dir); err == nil && len(entries) == 0 {
		if os.Remove(dir) == nil {
			b.cleanupEmptyDirectories(filepath.Dir(dir))
		}
	}
}

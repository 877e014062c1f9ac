package storyvault

import (
	"context"
	"io"
	"time"
)

// BlobStore defines the interface for storage backends. Implementations must
// be safe for concurrent use; a missing key is reported by wrapping
// ErrNotFound, all other failures are wrapped in a StorageError.
type BlobStore interface {
	// Upload writes an object, replacing any existing object under the key
	Upload(ctx context.Context, params UploadParams, reader io.Reader) error

	// Download opens an object for reading
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Delete removes an object
	Delete(ctx context.Context, objectKey string) error

	// List returns all object keys under the given prefix
	List(ctx context.Context, prefix string) ([]string, error)

	// GetObjectMeta retrieves storage-level metadata for an object
	GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)

	// ListBuckets returns the bucket names visible to the backend
	ListBuckets(ctx context.Context) ([]string, error)
}

// UploadParams contains parameters for uploading an object
type UploadParams struct {
	ObjectKey   string
	ContentType string
}

// ObjectMeta contains storage-level metadata about an object
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
	ETag        string
}

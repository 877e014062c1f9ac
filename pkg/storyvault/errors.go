package storyvault

import (
	"errors"
	"fmt"
	"strings"
)

// Error types
var (
	// ErrNotFound indicates a requested object was not found
	ErrNotFound = errors.New("object not found")

	// ErrPayloadTooLarge indicates a request body exceeded the configured ceiling
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrQuotaExceeded indicates an owner reached the configured object-count ceiling
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrCorruptObject indicates an entity whose metadata and payload are not both present and valid
	ErrCorruptObject = errors.New("corrupt object")

	// ErrInvalidEntityType indicates an unknown entity type
	ErrInvalidEntityType = errors.New("invalid entity type")

	// ErrInvalidDataFilename indicates a payload filename that does not match the entity type
	ErrInvalidDataFilename = errors.New("invalid data filename")
)

// PayloadTooLargeError carries the configured ceiling and, where known, the
// measured or declared size. Received is -1 when the size is unknown.
type PayloadTooLargeError struct {
	Limit    int64
	Received int64
}

func (e *PayloadTooLargeError) Error() string {
	if e.Received >= 0 {
		return fmt.Sprintf("payload too large: received %d bytes, limit %d bytes", e.Received, e.Limit)
	}
	return fmt.Sprintf("payload too large: limit %d bytes", e.Limit)
}

func (e *PayloadTooLargeError) Unwrap() error {
	return ErrPayloadTooLarge
}

// SchemaError indicates a metadata document failed structural validation.
type SchemaError struct {
	Missing []string
	Reason  string
}

func (e *SchemaError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("metadata schema violation: missing fields [%s]", strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("metadata schema violation: %s", e.Reason)
}

// QuotaExceededError indicates an owner has reached the configured ceiling
// for an entity type.
type QuotaExceededError struct {
	OwnerID string
	Type    EntityType
	Limit   int
	Count   int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("%s quota exceeded for user %s: %d of %d", e.Type, e.OwnerID, e.Count, e.Limit)
}

func (e *QuotaExceededError) Unwrap() error {
	return ErrQuotaExceeded
}

// CorruptError indicates an entity whose stored state is inconsistent:
// metadata present but structurally invalid, or only one half of the
// metadata/payload pair reachable.
type CorruptError struct {
	ID    string
	State IntegrityState
	Err   error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("object %s is corrupt (%s): %v", e.ID, e.State, e.Err)
}

func (e *CorruptError) Unwrap() error {
	return e.Err
}

func (e *CorruptError) Is(target error) bool {
	return target == ErrCorruptObject
}

// StorageError represents a failure reported by the blob backend. Backend
// errors are always wrapped in a StorageError before they leave the storage
// layer, never returned raw to callers.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

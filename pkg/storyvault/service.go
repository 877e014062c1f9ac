package storyvault

import (
	"context"
	"errors"
	"io"
)

// Service is the object-storage facade for sessions and stories. Every
// entity is persisted as two objects under a shared key prefix: the payload
// and the metadata document describing it.
//
// Write order is payload first, metadata second: the metadata document acts
// as the commit record. A crash between the two writes leaves a payload
// without metadata, which readers treat as an incomplete create; metadata
// without a reachable payload is the corrupt case.
type Service interface {
	// Save persists a new entity after quota and filename checks.
	Save(ctx context.Context, req SaveRequest) (*Metadata, error)

	// Get returns the entity owned by ownerID with the given id.
	Get(ctx context.Context, entityType EntityType, ownerID, id string) (*Entity, error)

	// Find locates an entity by id across all owners.
	Find(ctx context.Context, entityType EntityType, id string) (*Entity, error)

	// List enumerates entities of a type. An empty ownerID lists across all
	// owners. Entries whose metadata fails validation are skipped.
	List(ctx context.Context, entityType EntityType, ownerID string) ([]*Metadata, error)

	// Count returns the number of live entities of a type for an owner.
	Count(ctx context.Context, entityType EntityType, ownerID string) (int, error)

	// Update merges the supplied fields into the metadata document and bumps
	// updated_at. The payload is untouched.
	Update(ctx context.Context, req UpdateRequest) (*Metadata, error)

	// SetPublished toggles the publish flag of a story.
	SetPublished(ctx context.Context, ownerID, id string, published bool) (*Metadata, error)

	// Delete removes both objects of an entity. A partial failure reports
	// which sub-operation failed.
	Delete(ctx context.Context, entityType EntityType, ownerID, id string) error

	// PurgeOwner deletes every object owned by a user and returns the number
	// of objects removed.
	PurgeOwner(ctx context.Context, ownerID string) (int, error)

	// CheckIntegrity reports which halves of the metadata/payload pair exist.
	CheckIntegrity(ctx context.Context, entityType EntityType, ownerID, id string) (IntegrityState, error)
}

// SaveRequest contains parameters for creating an entity. Creator comes from
// the verified identity, never from client-supplied metadata.
type SaveRequest struct {
	Type        EntityType
	Creator     Creator
	Title       string
	Description string
	Tags        []string
	FileName    string
	Payload     io.Reader
}

// UpdateRequest contains parameters for a partial metadata update.
type UpdateRequest struct {
	Type    EntityType
	OwnerID string
	ID      string
	Patch   MetadataPatch
}

// Option configures the service.
type Option func(*service) error

// WithBlobStore sets the storage backend. Required.
func WithBlobStore(store BlobStore) Option {
	return func(s *service) error {
		if store == nil {
			return errors.New("blob store is required")
		}
		s.store = store
		return nil
	}
}

// WithQuotas sets the per-user entity limits enforced on Save.
func WithQuotas(quotas Quotas) Option {
	return func(s *service) error {
		s.quotas = quotas
		return nil
	}
}

// New creates a Service with the given options.
func New(opts ...Option) (Service, error) {
	s := &service{}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.store == nil {
		return nil, errors.New("blob store is required")
	}
	s.quota = NewQuotaGuard(s, s.quotas)
	return s, nil
}

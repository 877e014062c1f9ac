package storyvault

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/storyvault/storyvault/pkg/storyvault/objectkey"
)

type service struct {
	store  BlobStore
	quotas Quotas
	quota  *QuotaGuard
}

func (s *service) Save(ctx context.Context, req SaveRequest) (*Metadata, error) {
	if !req.Type.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEntityType, req.Type)
	}
	if err := ValidateDataFilename(req.Type, req.FileName); err != nil {
		return nil, err
	}
	if err := s.quota.Check(ctx, req.Creator.ID, req.Type); err != nil {
		return nil, err
	}

	meta, err := NewMetadata(req.Type, req.Creator, MetadataAttrs{
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
	})
	if err != nil {
		return nil, err
	}

	// Payload first, metadata second: the metadata document commits the
	// create. A payload left behind by a crash here is recoverable garbage,
	// not a visible entity.
	payloadKey := objectkey.PayloadKey(string(req.Type), req.Creator.ID, meta.ID)
	err = s.store.Upload(ctx, UploadParams{ObjectKey: payloadKey, ContentType: req.Type.DataContentType()}, req.Payload)
	if err != nil {
		return nil, fmt.Errorf("saving %s payload: %w", req.Type, err)
	}

	if err := s.writeMetadata(ctx, meta); err != nil {
		return nil, err
	}

	return meta, nil
}

func (s *service) Get(ctx context.Context, entityType EntityType, ownerID, id string) (*Entity, error) {
	meta, err := s.readMetadata(ctx, entityType, ownerID, id)
	if err != nil {
		return nil, err
	}

	payloadKey := objectkey.PayloadKey(string(entityType), ownerID, id)
	rc, err := s.store.Download(ctx, payloadKey)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%s %s payload: %w", entityType, id, ErrNotFound)
		}
		return nil, fmt.Errorf("reading %s payload: %w", entityType, err)
	}
	defer rc.Close()

	payload, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading %s payload: %w", entityType, err)
	}

	return &Entity{Metadata: *meta, Payload: payload}, nil
}

func (s *service) Find(ctx context.Context, entityType EntityType, id string) (*Entity, error) {
	keys, err := s.store.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("scanning for %s %s: %w", entityType, id, err)
	}

	for _, key := range keys {
		ref, ok := objectkey.Parse(key)
		if !ok || !ref.IsMetadata() {
			continue
		}
		if ref.EntityType == string(entityType) && ref.ObjectID == id {
			return s.Get(ctx, entityType, ref.OwnerID, id)
		}
	}
	return nil, fmt.Errorf("%s %s: %w", entityType, id, ErrNotFound)
}

func (s *service) List(ctx context.Context, entityType EntityType, ownerID string) ([]*Metadata, error) {
	if !entityType.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEntityType, entityType)
	}

	keys, err := s.listMetadataKeys(ctx, entityType, ownerID)
	if err != nil {
		return nil, err
	}

	// One corrupt entry must not make the whole collection unusable:
	// entries that fail to load or validate are skipped, not fatal.
	result := make([]*Metadata, 0, len(keys))
	for _, key := range keys {
		meta, err := s.loadMetadata(ctx, key, entityType)
		if err != nil {
			slog.Warn("skipping invalid metadata object", "key", key, "error", err)
			continue
		}
		result = append(result, meta)
	}
	return result, nil
}

func (s *service) Count(ctx context.Context, entityType EntityType, ownerID string) (int, error) {
	keys, err := s.listMetadataKeys(ctx, entityType, ownerID)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

func (s *service) Update(ctx context.Context, req UpdateRequest) (*Metadata, error) {
	meta, err := s.readMetadata(ctx, req.Type, req.OwnerID, req.ID)
	if err != nil {
		return nil, err
	}

	ApplyPatch(meta, req.Patch)

	if err := s.writeMetadata(ctx, meta); err != nil {
		return nil, err
	}
	return meta, nil
}

func (s *service) SetPublished(ctx context.Context, ownerID, id string, published bool) (*Metadata, error) {
	meta, err := s.readMetadata(ctx, EntityTypeStory, ownerID, id)
	if err != nil {
		return nil, err
	}

	meta.IsPublished = published
	touch(meta)

	if err := s.writeMetadata(ctx, meta); err != nil {
		return nil, err
	}
	return meta, nil
}

func (s *service) Delete(ctx context.Context, entityType EntityType, ownerID, id string) error {
	if _, err := s.readMetadata(ctx, entityType, ownerID, id); err != nil {
		return err
	}

	// Metadata first: removing the commit record uncommits the entity, so a
	// failure on the payload half leaves only recoverable garbage behind.
	metaKey := objectkey.MetadataKey(string(entityType), ownerID, id)
	if err := s.store.Delete(ctx, metaKey); err != nil {
		return fmt.Errorf("deleting %s %s metadata: %w", entityType, id, err)
	}

	payloadKey := objectkey.PayloadKey(string(entityType), ownerID, id)
	if err := s.store.Delete(ctx, payloadKey); err != nil {
		return fmt.Errorf("deleting %s %s payload (metadata already removed): %w", entityType, id, err)
	}
	return nil
}

func (s *service) PurgeOwner(ctx context.Context, ownerID string) (int, error) {
	keys, err := s.store.List(ctx, objectkey.OwnerPrefix(ownerID))
	if err != nil {
		return 0, fmt.Errorf("listing objects for user %s: %w", ownerID, err)
	}

	deleted := 0
	for _, key := range keys {
		if err := s.store.Delete(ctx, key); err != nil {
			return deleted, fmt.Errorf("deleting object %s: %w", key, err)
		}
		deleted++
	}
	return deleted, nil
}

func (s *service) CheckIntegrity(ctx context.Context, entityType EntityType, ownerID, id string) (IntegrityState, error) {
	metaKey := objectkey.MetadataKey(string(entityType), ownerID, id)
	payloadKey := objectkey.PayloadKey(string(entityType), ownerID, id)

	hasMeta, err := s.objectExists(ctx, metaKey)
	if err != nil {
		return "", err
	}
	hasPayload, err := s.objectExists(ctx, payloadKey)
	if err != nil {
		return "", err
	}

	switch {
	case hasMeta && hasPayload:
		return IntegrityComplete, nil
	case hasMeta:
		return IntegrityMetadataOnly, nil
	case hasPayload:
		return IntegrityPayloadOnly, nil
	}
	return IntegrityMissing, nil
}

func (s *service) objectExists(ctx context.Context, key string) (bool, error) {
	_, err := s.store.GetObjectMeta(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("checking object %s: %w", key, err)
	}
	return true, nil
}

// listMetadataKeys returns the metadata object keys for a type, scoped to
// one owner when ownerID is non-empty.
func (s *service) listMetadataKeys(ctx context.Context, entityType EntityType, ownerID string) ([]string, error) {
	prefix := ""
	if ownerID != "" {
		prefix = objectkey.TypePrefix(string(entityType), ownerID)
	}

	keys, err := s.store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("listing %s objects: %w", entityType, err)
	}

	var metaKeys []string
	for _, key := range keys {
		ref, ok := objectkey.Parse(key)
		if !ok || !ref.IsMetadata() {
			continue
		}
		if ref.EntityType != string(entityType) {
			continue
		}
		if ownerID != "" && ref.OwnerID != ownerID {
			continue
		}
		metaKeys = append(metaKeys, key)
	}
	return metaKeys, nil
}

// readMetadata loads and validates the metadata document of one entity.
func (s *service) readMetadata(ctx context.Context, entityType EntityType, ownerID, id string) (*Metadata, error) {
	if !entityType.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEntityType, entityType)
	}
	key := objectkey.MetadataKey(string(entityType), ownerID, id)
	meta, err := s.loadMetadata(ctx, key, entityType)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%s %s: %w", entityType, id, ErrNotFound)
		}
		var schemaErr *SchemaError
		if errors.As(err, &schemaErr) {
			return nil, &CorruptError{ID: id, State: IntegrityComplete, Err: schemaErr}
		}
		return nil, err
	}
	return meta, nil
}

// loadMetadata downloads and validates a single metadata document by key.
func (s *service) loadMetadata(ctx context.Context, key string, expected EntityType) (*Metadata, error) {
	rc, err := s.store.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var meta Metadata
	if err := json.NewDecoder(rc).Decode(&meta); err != nil {
		return nil, &SchemaError{Reason: fmt.Sprintf("metadata is not valid JSON: %v", err)}
	}
	if err := ValidateMetadata(&meta, expected); err != nil {
		return nil, err
	}
	if ref, ok := objectkey.Parse(key); ok && ref.OwnerID != meta.Creator.ID {
		return nil, &SchemaError{Reason: fmt.Sprintf("creator %q does not match key owner %q", meta.Creator.ID, ref.OwnerID)}
	}
	return &meta, nil
}

// writeMetadata marshals and uploads a metadata document.
func (s *service) writeMetadata(ctx context.Context, meta *Metadata) error {
	doc, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encoding metadata for %s: %w", meta.ID, err)
	}

	key := objectkey.MetadataKey(string(meta.Type), meta.Creator.ID, meta.ID)
	err = s.store.Upload(ctx, UploadParams{ObjectKey: key, ContentType: "application/json"}, bytes.NewReader(doc))
	if err != nil {
		return fmt.Errorf("saving %s metadata: %w", meta.Type, err)
	}
	return nil
}

// OwnerIDs returns the distinct owner ids present in a key listing.
func OwnerIDs(keys []string) []string {
	seen := make(map[string]struct{})
	var owners []string
	for _, key := range keys {
		owner, _, ok := strings.Cut(key, "/")
		if !ok || owner == "" {
			continue
		}
		if _, dup := seen[owner]; dup {
			continue
		}
		seen[owner] = struct{}{}
		owners = append(owners, owner)
	}
	return owners
}

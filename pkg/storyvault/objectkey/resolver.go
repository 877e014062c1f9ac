// Package objectkey computes the storage keys for entity metadata and
// payload objects.
//
// The key layout is a versioned contract: objects written under it stay
// addressable only as long as the convention is stable, so changes here break
// every previously stored object.
//
//	{owner_id}/{pluralized_entity_type}/{object_id}/metadata.json
//	{owner_id}/{pluralized_entity_type}/{object_id}/data{ext}
//
// where ext is ".bin" for session payloads and ".json" for story payloads.
package objectkey

import (
	"fmt"
	"strings"
)

// MetadataFilename is the fixed suffix of every metadata object.
const MetadataFilename = "metadata.json"

const dataBasename = "data"

var plurals = map[string]string{
	"session": "sessions",
	"story":   "stories",
}

var dataExtensions = map[string]string{
	"session": ".bin",
	"story":   ".json",
}

// Plural returns the pluralized path segment for an entity type, or "" for
// an unknown type.
func Plural(entityType string) string {
	return plurals[entityType]
}

// DataExtension returns the fixed payload filename extension for an entity
// type, or "" for an unknown type.
func DataExtension(entityType string) string {
	return dataExtensions[entityType]
}

// DataFilename returns the payload object filename for an entity type.
func DataFilename(entityType string) string {
	return dataBasename + DataExtension(entityType)
}

// MetadataKey returns the storage key of the metadata document for the given
// entity. The result is a deterministic pure function of its inputs.
func MetadataKey(entityType, ownerID, objectID string) string {
	return fmt.Sprintf("%s/%s/%s/%s", ownerID, Plural(entityType), objectID, MetadataFilename)
}

// PayloadKey returns the storage key of the payload object for the given
// entity.
func PayloadKey(entityType, ownerID, objectID string) string {
	return fmt.Sprintf("%s/%s/%s/%s", ownerID, Plural(entityType), objectID, DataFilename(entityType))
}

// ObjectPrefix returns the shared key prefix under which both objects of an
// entity live.
func ObjectPrefix(entityType, ownerID, objectID string) string {
	return fmt.Sprintf("%s/%s/%s/", ownerID, Plural(entityType), objectID)
}

// TypePrefix returns the listing prefix for all entities of a type owned by
// one user.
func TypePrefix(entityType, ownerID string) string {
	return fmt.Sprintf("%s/%s/", ownerID, Plural(entityType))
}

// OwnerPrefix returns the listing prefix covering every object owned by one
// user, across all entity types.
func OwnerPrefix(ownerID string) string {
	return ownerID + "/"
}

// Ref identifies a stored object parsed back out of its key.
type Ref struct {
	OwnerID    string
	EntityType string
	ObjectID   string
	Filename   string
}

// IsMetadata reports whether the ref points at a metadata document.
func (r Ref) IsMetadata() bool {
	return r.Filename == MetadataFilename
}

// Parse decomposes a storage key into its entity reference. It returns false
// for keys that do not follow the convention, including keys whose type
// segment does not map back to a known entity type.
func Parse(key string) (Ref, bool) {
	parts := strings.Split(key, "/")
	if len(parts) != 4 {
		return Ref{}, false
	}
	owner, plural, id, filename := parts[0], parts[1], parts[2], parts[3]
	if owner == "" || id == "" || filename == "" {
		return Ref{}, false
	}

	var entityType string
	for t, p := range plurals {
		if p == plural {
			entityType = t
			break
		}
	}
	if entityType == "" {
		return Ref{}, false
	}

	return Ref{
		OwnerID:    owner,
		EntityType: entityType,
		ObjectID:   id,
		Filename:   filename,
	}, true
}

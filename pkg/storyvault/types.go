package storyvault

import (
	"time"

	"github.com/storyvault/storyvault/pkg/storyvault/objectkey"
)

// EntityType is the domain type for stored document variants.
type EntityType string

// Entity type constants (typed).
const (
	EntityTypeSession EntityType = "session"
	EntityTypeStory   EntityType = "story"
)

// IsValid reports whether t is one of the known entity types.
func (t EntityType) IsValid() bool {
	switch t {
	case EntityTypeSession, EntityTypeStory:
		return true
	}
	return false
}

// Plural returns the pluralized path segment used in storage keys.
func (t EntityType) Plural() string {
	return objectkey.Plural(string(t))
}

// DataExtension returns the fixed payload filename extension for the type.
func (t EntityType) DataExtension() string {
	return objectkey.DataExtension(string(t))
}

// DataContentType returns the content type payload objects are stored with.
func (t EntityType) DataContentType() string {
	if t == EntityTypeStory {
		return "application/json"
	}
	return "application/octet-stream"
}

// IntegrityState describes which halves of a metadata/payload pair are
// present in storage.
type IntegrityState string

const (
	IntegrityComplete     IntegrityState = "complete"
	IntegrityMetadataOnly IntegrityState = "metadata_only"
	IntegrityPayloadOnly  IntegrityState = "payload_only"
	IntegrityMissing      IntegrityState = "missing"
)

// Creator identifies the verified user who owns an entity. It is always
// populated server-side from the authenticated identity, never from
// client-supplied metadata.
type Creator struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Metadata is the JSON side-record stored next to every payload.
//
// ID, Type, Creator and CreatedAt are immutable after creation; UpdatedAt is
// refreshed on every mutation. IsPublished is only meaningful for stories.
type Metadata struct {
	ID          string     `json:"id"`
	Type        EntityType `json:"type"`
	Creator     Creator    `json:"creator"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Tags        []string   `json:"tags"`
	IsPublished bool       `json:"is_published,omitempty"`
}

// Entity is a stored document: the validated metadata record plus its
// payload bytes.
type Entity struct {
	Metadata
	Payload []byte
}

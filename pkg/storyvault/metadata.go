package storyvault

import (
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"
)

// MetadataAttrs are the caller-supplied fields merged into a new metadata
// document. Everything else (id, creator, timestamps) is assigned
// server-side.
type MetadataAttrs struct {
	Title       string
	Description string
	Tags        []string
}

// MetadataPatch is a partial metadata update. Nil fields are left untouched;
// this is a merge, not an overwrite.
type MetadataPatch struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Tags        []string `json:"tags"`
}

// NewMetadata assembles the metadata document for a new entity: generated
// id, the verified creator identity, both timestamps set to now, and the
// caller-supplied fields merged in.
func NewMetadata(entityType EntityType, creator Creator, attrs MetadataAttrs) (*Metadata, error) {
	if !entityType.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEntityType, entityType)
	}

	now := time.Now().UTC()
	tags := attrs.Tags
	if tags == nil {
		tags = []string{}
	}

	return &Metadata{
		ID:          uuid.New().String(),
		Type:        entityType,
		Creator:     creator,
		CreatedAt:   now,
		UpdatedAt:   now,
		Title:       attrs.Title,
		Description: attrs.Description,
		Tags:        slices.Clone(tags),
	}, nil
}

// ValidateMetadata checks a metadata document against the schema before it
// is trusted: required fields present, type equal to the expected variant
// and one of the known variants. A failure is reported as a *SchemaError.
func ValidateMetadata(m *Metadata, expected EntityType) error {
	if m == nil {
		return &SchemaError{Reason: "metadata document is empty"}
	}

	var missing []string
	if m.ID == "" {
		missing = append(missing, "id")
	}
	if m.Type == "" {
		missing = append(missing, "type")
	}
	if m.CreatedAt.IsZero() {
		missing = append(missing, "created_at")
	}
	if m.UpdatedAt.IsZero() {
		missing = append(missing, "updated_at")
	}
	if m.Creator.ID == "" {
		missing = append(missing, "creator.id")
	}
	if m.Creator.Name == "" {
		missing = append(missing, "creator.name")
	}
	if m.Creator.Email == "" {
		missing = append(missing, "creator.email")
	}
	if len(missing) > 0 {
		return &SchemaError{Missing: missing}
	}

	if !m.Type.IsValid() {
		return &SchemaError{Reason: fmt.Sprintf("unknown entity type %q", m.Type)}
	}
	if m.Type != expected {
		return &SchemaError{Reason: fmt.Sprintf("entity type is %q, expected %q", m.Type, expected)}
	}

	return nil
}

// ValidateDataFilename checks an uploaded payload filename against the fixed
// per-type extension. It runs before any write so a mismatch never leaves
// partially-written state behind.
func ValidateDataFilename(entityType EntityType, filename string) error {
	if !entityType.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidEntityType, entityType)
	}
	if filename == "" {
		return fmt.Errorf("%w: filename is empty", ErrInvalidDataFilename)
	}
	want := entityType.DataExtension()
	if got := path.Ext(filename); got != want {
		return fmt.Errorf("%w: %q must have extension %q for %s payloads", ErrInvalidDataFilename, filename, want, entityType)
	}
	return nil
}

// ApplyPatch merges the supplied fields of a patch into a metadata document
// and bumps UpdatedAt. Fields absent from the patch retain their prior
// values. UpdatedAt strictly increases even under clock granularity.
func ApplyPatch(m *Metadata, patch MetadataPatch) {
	if patch.Title != nil {
		m.Title = *patch.Title
	}
	if patch.Description != nil {
		m.Description = *patch.Description
	}
	if patch.Tags != nil {
		m.Tags = slices.Clone(patch.Tags)
	}
	touch(m)
}

func touch(m *Metadata) {
	now := time.Now().UTC()
	if !now.After(m.UpdatedAt) {
		now = m.UpdatedAt.Add(time.Nanosecond)
	}
	m.UpdatedAt = now
}

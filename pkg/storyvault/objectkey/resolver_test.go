package objectkey_test

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/storyvault/storyvault/pkg/storyvault/objectkey"
)

func TestKeyLayout(t *testing.T) {
	tests := []struct {
		name        string
		entityType  string
		wantMeta    string
		wantPayload string
	}{
		{
			name:        "session keys",
			entityType:  "session",
			wantMeta:    "user-1/sessions/obj-1/metadata.json",
			wantPayload: "user-1/sessions/obj-1/data.bin",
		},
		{
			name:        "story keys",
			entityType:  "story",
			wantMeta:    "user-1/stories/obj-1/metadata.json",
			wantPayload: "user-1/stories/obj-1/data.json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMeta, objectkey.MetadataKey(tt.entityType, "user-1", "obj-1"))
			assert.Equal(t, tt.wantPayload, objectkey.PayloadKey(tt.entityType, "user-1", "obj-1"))
		})
	}
}

func TestKeysAreDeterministic(t *testing.T) {
	owner := uuid.New().String()
	id := uuid.New().String()

	first := objectkey.MetadataKey("story", owner, id)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, objectkey.MetadataKey("story", owner, id))
	}
}

func TestDistinctTriplesNeverCollide(t *testing.T) {
	seen := make(map[string]string)

	for _, entityType := range []string{"session", "story"} {
		for o := 0; o < 5; o++ {
			for i := 0; i < 5; i++ {
				owner := fmt.Sprintf("owner-%d", o)
				id := fmt.Sprintf("id-%d", i)
				prefix := objectkey.ObjectPrefix(entityType, owner, id)
				triple := fmt.Sprintf("%s|%s|%s", entityType, owner, id)
				if prev, ok := seen[prefix]; ok {
					t.Fatalf("prefix %q produced by both %q and %q", prefix, prev, triple)
				}
				seen[prefix] = triple
			}
		}
	}
}

func TestPrefixes(t *testing.T) {
	assert.Equal(t, "user-1/sessions/", objectkey.TypePrefix("session", "user-1"))
	assert.Equal(t, "user-1/stories/", objectkey.TypePrefix("story", "user-1"))
	assert.Equal(t, "user-1/", objectkey.OwnerPrefix("user-1"))
}

func TestParse(t *testing.T) {
	ref, ok := objectkey.Parse("user-1/stories/obj-9/metadata.json")
	require.True(t, ok)
	assert.Equal(t, "user-1", ref.OwnerID)
	assert.Equal(t, "story", ref.EntityType)
	assert.Equal(t, "obj-9", ref.ObjectID)
	assert.True(t, ref.IsMetadata())

	ref, ok = objectkey.Parse("user-1/sessions/obj-9/data.bin")
	require.True(t, ok)
	assert.Equal(t, "session", ref.EntityType)
	assert.False(t, ref.IsMetadata())

	for _, key := range []string{
		"",
		"metadata.json",
		"user-1/stories/metadata.json",
		"user-1/unknown/obj-9/metadata.json",
		"user-1/stories/obj-9/extra/metadata.json",
	} {
		_, ok := objectkey.Parse(key)
		assert.False(t, ok, "key %q should not parse", key)
	}
}

func TestParseRoundTrip(t *testing.T) {
	owner := uuid.New().String()
	id := uuid.New().String()

	ref, ok := objectkey.Parse(objectkey.PayloadKey("session", owner, id))
	require.True(t, ok)
	assert.Equal(t, owner, ref.OwnerID)
	assert.Equal(t, id, ref.ObjectID)
	assert.Equal(t, "data.bin", ref.Filename)
}

package storyvault_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/storyvault/storyvault/pkg/storyvault"
	"github.com/storyvault/storyvault/pkg/storyvault/objectkey"
	"github.com/storyvault/storyvault/pkg/storyvault/storage/memory"
)

func newTestService(t *testing.T, opts ...storyvault.Option) (storyvault.Service, *memory.Backend) {
	t.Helper()
	store := memory.New()
	opts = append([]storyvault.Option{storyvault.WithBlobStore(store)}, opts...)
	svc, err := storyvault.New(opts...)
	require.NoError(t, err)
	return svc, store
}

func saveEntity(t *testing.T, svc storyvault.Service, entityType storyvault.EntityType, creator storyvault.Creator, title, payload string) *storyvault.Metadata {
	t.Helper()
	filename := "data" + entityType.DataExtension()
	meta, err := svc.Save(context.Background(), storyvault.SaveRequest{
		Type:     entityType,
		Creator:  creator,
		Title:    title,
		FileName: filename,
		Payload:  strings.NewReader(payload),
	})
	require.NoError(t, err)
	return meta
}

func TestServiceSaveGetRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	meta := saveEntity(t, svc, storyvault.EntityTypeSession, testCreator, "autosave", "session bytes")

	entity, err := svc.Get(ctx, storyvault.EntityTypeSession, testCreator.ID, meta.ID)
	require.NoError(t, err)
	assert.Equal(t, *meta, entity.Metadata)
	assert.Equal(t, []byte("session bytes"), entity.Payload)
}

func TestServiceSaveRejectsBadInput(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	t.Run("unknown entity type", func(t *testing.T) {
		_, err := svc.Save(ctx, storyvault.SaveRequest{
			Type:     "document",
			Creator:  testCreator,
			FileName: "x.json",
			Payload:  strings.NewReader("x"),
		})
		assert.ErrorIs(t, err, storyvault.ErrInvalidEntityType)
	})

	t.Run("wrong data extension", func(t *testing.T) {
		_, err := svc.Save(ctx, storyvault.SaveRequest{
			Type:     storyvault.EntityTypeStory,
			Creator:  testCreator,
			FileName: "story.bin",
			Payload:  strings.NewReader("x"),
		})
		assert.ErrorIs(t, err, storyvault.ErrInvalidDataFilename)
	})

	keys, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, keys, "rejected saves must not write objects")
}

func TestServiceGetNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Get(ctx, storyvault.EntityTypeStory, testCreator.ID, "missing-id")
	assert.ErrorIs(t, err, storyvault.ErrNotFound)
}

func TestServiceGetMissingPayload(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	meta := saveEntity(t, svc, storyvault.EntityTypeStory, testCreator, "half", `{"text":"x"}`)

	payloadKey := objectkey.PayloadKey(string(storyvault.EntityTypeStory), testCreator.ID, meta.ID)
	require.NoError(t, store.Delete(ctx, payloadKey))

	_, err := svc.Get(ctx, storyvault.EntityTypeStory, testCreator.ID, meta.ID)
	assert.ErrorIs(t, err, storyvault.ErrNotFound)
}

func TestServiceGetCorruptMetadata(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	metaKey := objectkey.MetadataKey(string(storyvault.EntityTypeSession), testCreator.ID, "corrupt-id")
	err := store.Upload(ctx, storyvault.UploadParams{ObjectKey: metaKey, ContentType: "application/json"}, strings.NewReader("{not json"))
	require.NoError(t, err)

	_, err = svc.Get(ctx, storyvault.EntityTypeSession, testCreator.ID, "corrupt-id")
	var corruptErr *storyvault.CorruptError
	require.ErrorAs(t, err, &corruptErr)
	assert.ErrorIs(t, err, storyvault.ErrCorruptObject)
}

func TestServiceFind(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	other := storyvault.Creator{ID: "user-2", Name: "Other", Email: "other@example.com"}
	saveEntity(t, svc, storyvault.EntityTypeStory, testCreator, "mine", `{"a":1}`)
	meta := saveEntity(t, svc, storyvault.EntityTypeStory, other, "theirs", `{"b":2}`)

	entity, err := svc.Find(ctx, storyvault.EntityTypeStory, meta.ID)
	require.NoError(t, err)
	assert.Equal(t, other.ID, entity.Creator.ID)

	_, err = svc.Find(ctx, storyvault.EntityTypeStory, "nope")
	assert.ErrorIs(t, err, storyvault.ErrNotFound)
}

func TestServiceListScopesByOwnerAndType(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	other := storyvault.Creator{ID: "user-2", Name: "Other", Email: "other@example.com"}
	saveEntity(t, svc, storyvault.EntityTypeSession, testCreator, "s1", "x")
	saveEntity(t, svc, storyvault.EntityTypeSession, testCreator, "s2", "y")
	saveEntity(t, svc, storyvault.EntityTypeStory, testCreator, "story", `{"a":1}`)
	saveEntity(t, svc, storyvault.EntityTypeSession, other, "not mine", "z")

	sessions, err := svc.List(ctx, storyvault.EntityTypeSession, testCreator.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	for _, meta := range sessions {
		assert.Equal(t, storyvault.EntityTypeSession, meta.Type)
		assert.Equal(t, testCreator.ID, meta.Creator.ID)
	}

	all, err := svc.List(ctx, storyvault.EntityTypeSession, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestServiceListSkipsCorruptEntries(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	saveEntity(t, svc, storyvault.EntityTypeSession, testCreator, "good", "x")

	badKey := objectkey.MetadataKey(string(storyvault.EntityTypeSession), testCreator.ID, "bad-id")
	err := store.Upload(ctx, storyvault.UploadParams{ObjectKey: badKey, ContentType: "application/json"}, strings.NewReader("garbage"))
	require.NoError(t, err)

	listed, err := svc.List(ctx, storyvault.EntityTypeSession, testCreator.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "good", listed[0].Title)
}

func TestServiceCount(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	count, err := svc.Count(ctx, storyvault.EntityTypeSession, testCreator.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	saveEntity(t, svc, storyvault.EntityTypeSession, testCreator, "s1", "x")
	saveEntity(t, svc, storyvault.EntityTypeSession, testCreator, "s2", "y")

	count, err = svc.Count(ctx, storyvault.EntityTypeSession, testCreator.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestServiceUpdate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	meta := saveEntity(t, svc, storyvault.EntityTypeStory, testCreator, "before", `{"a":1}`)

	title := "after"
	updated, err := svc.Update(ctx, storyvault.UpdateRequest{
		Type:    storyvault.EntityTypeStory,
		OwnerID: testCreator.ID,
		ID:      meta.ID,
		Patch:   storyvault.MetadataPatch{Title: &title, Tags: []string{"edited"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "after", updated.Title)
	assert.Equal(t, []string{"edited"}, updated.Tags)
	assert.True(t, updated.UpdatedAt.After(meta.UpdatedAt))
	assert.Equal(t, meta.CreatedAt, updated.CreatedAt)

	entity, err := svc.Get(ctx, storyvault.EntityTypeStory, testCreator.ID, meta.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", entity.Title)
	assert.Equal(t, []byte(`{"a":1}`), entity.Payload, "payload must survive metadata updates")
}

func TestServiceUpdateNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Update(context.Background(), storyvault.UpdateRequest{
		Type:    storyvault.EntityTypeSession,
		OwnerID: testCreator.ID,
		ID:      "missing",
	})
	assert.ErrorIs(t, err, storyvault.ErrNotFound)
}

func TestServiceSetPublished(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	meta := saveEntity(t, svc, storyvault.EntityTypeStory, testCreator, "draft", `{"a":1}`)
	assert.False(t, meta.IsPublished)

	published, err := svc.SetPublished(ctx, testCreator.ID, meta.ID, true)
	require.NoError(t, err)
	assert.True(t, published.IsPublished)
	assert.True(t, published.UpdatedAt.After(meta.UpdatedAt))

	unpublished, err := svc.SetPublished(ctx, testCreator.ID, meta.ID, false)
	require.NoError(t, err)
	assert.False(t, unpublished.IsPublished)
}

func TestServiceDelete(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	meta := saveEntity(t, svc, storyvault.EntityTypeSession, testCreator, "gone soon", "x")

	require.NoError(t, svc.Delete(ctx, storyvault.EntityTypeSession, testCreator.ID, meta.ID))

	keys, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, keys, "both halves must be removed")

	err = svc.Delete(ctx, storyvault.EntityTypeSession, testCreator.ID, meta.ID)
	assert.ErrorIs(t, err, storyvault.ErrNotFound)
}

// failingDeleteStore fails Delete for one specific key to exercise partial
// delete reporting.
type failingDeleteStore struct {
	storyvault.BlobStore
	failKey string
	err     error
}

func (f *failingDeleteStore) Delete(ctx context.Context, objectKey string) error {
	if objectKey == f.failKey {
		return f.err
	}
	return f.BlobStore.Delete(ctx, objectKey)
}

func TestServiceDeletePartialFailureNamesStep(t *testing.T) {
	store := memory.New()
	wrapped := &failingDeleteStore{BlobStore: store}
	svc, err := storyvault.New(storyvault.WithBlobStore(wrapped))
	require.NoError(t, err)
	ctx := context.Background()

	meta := saveEntity(t, svc, storyvault.EntityTypeSession, testCreator, "sticky", "x")

	wrapped.failKey = objectkey.PayloadKey(string(storyvault.EntityTypeSession), testCreator.ID, meta.ID)
	wrapped.err = &storyvault.StorageError{Op: "delete", Key: wrapped.failKey, Err: context.DeadlineExceeded}

	err = svc.Delete(ctx, storyvault.EntityTypeSession, testCreator.ID, meta.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "payload")
	assert.Contains(t, err.Error(), "metadata already removed")

	// The commit record is gone, so the entity no longer reads back.
	_, err = svc.Get(ctx, storyvault.EntityTypeSession, testCreator.ID, meta.ID)
	assert.ErrorIs(t, err, storyvault.ErrNotFound)

	state, err := svc.CheckIntegrity(ctx, storyvault.EntityTypeSession, testCreator.ID, meta.ID)
	require.NoError(t, err)
	assert.Equal(t, storyvault.IntegrityPayloadOnly, state)
}

func TestServiceQuotaEnforcement(t *testing.T) {
	svc, _ := newTestService(t, storyvault.WithQuotas(storyvault.Quotas{SessionLimit: 2}))
	ctx := context.Background()

	saveEntity(t, svc, storyvault.EntityTypeSession, testCreator, "s1", "x")
	second := saveEntity(t, svc, storyvault.EntityTypeSession, testCreator, "s2", "y")

	_, err := svc.Save(ctx, storyvault.SaveRequest{
		Type:     storyvault.EntityTypeSession,
		Creator:  testCreator,
		Title:    "s3",
		FileName: "data.bin",
		Payload:  strings.NewReader("z"),
	})
	var quotaErr *storyvault.QuotaExceededError
	require.ErrorAs(t, err, &quotaErr)
	assert.ErrorIs(t, err, storyvault.ErrQuotaExceeded)
	assert.Equal(t, 2, quotaErr.Limit)
	assert.Equal(t, 2, quotaErr.Count)

	// Stories are counted separately from sessions.
	saveEntity(t, svc, storyvault.EntityTypeStory, testCreator, "story", `{"a":1}`)

	// Other users have their own allowance.
	other := storyvault.Creator{ID: "user-2", Name: "Other", Email: "other@example.com"}
	saveEntity(t, svc, storyvault.EntityTypeSession, other, "s1", "x")

	// Deleting frees a slot.
	require.NoError(t, svc.Delete(ctx, storyvault.EntityTypeSession, testCreator.ID, second.ID))
	saveEntity(t, svc, storyvault.EntityTypeSession, testCreator, "s3 retry", "z")
}

func TestServicePurgeOwner(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	other := storyvault.Creator{ID: "user-2", Name: "Other", Email: "other@example.com"}
	saveEntity(t, svc, storyvault.EntityTypeSession, testCreator, "s1", "x")
	saveEntity(t, svc, storyvault.EntityTypeStory, testCreator, "story", `{"a":1}`)
	saveEntity(t, svc, storyvault.EntityTypeSession, other, "keep", "y")

	deleted, err := svc.PurgeOwner(ctx, testCreator.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, deleted, "two entities, two objects each")

	keys, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, keys, 2)
	for _, key := range keys {
		assert.True(t, strings.HasPrefix(key, other.ID+"/"))
	}

	deleted, err = svc.PurgeOwner(ctx, "no-such-user")
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestServiceCheckIntegrity(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	meta := saveEntity(t, svc, storyvault.EntityTypeStory, testCreator, "whole", `{"a":1}`)

	metaKey := objectkey.MetadataKey(string(storyvault.EntityTypeStory), testCreator.ID, meta.ID)
	payloadKey := objectkey.PayloadKey(string(storyvault.EntityTypeStory), testCreator.ID, meta.ID)

	state, err := svc.CheckIntegrity(ctx, storyvault.EntityTypeStory, testCreator.ID, meta.ID)
	require.NoError(t, err)
	assert.Equal(t, storyvault.IntegrityComplete, state)

	require.NoError(t, store.Delete(ctx, payloadKey))
	state, err = svc.CheckIntegrity(ctx, storyvault.EntityTypeStory, testCreator.ID, meta.ID)
	require.NoError(t, err)
	assert.Equal(t, storyvault.IntegrityMetadataOnly, state)

	require.NoError(t, store.Delete(ctx, metaKey))
	state, err = svc.CheckIntegrity(ctx, storyvault.EntityTypeStory, testCreator.ID, meta.ID)
	require.NoError(t, err)
	assert.Equal(t, storyvault.IntegrityMissing, state)
}

func TestOwnerIDs(t *testing.T) {
	keys := []string{
		"user-1/sessions/a/metadata.json",
		"user-1/sessions/a/data.bin",
		"user-2/stories/b/metadata.json",
		"user-1/stories/c/metadata.json",
		"malformed",
	}
	assert.Equal(t, []string{"user-1", "user-2"}, storyvault.OwnerIDs(keys))
}

package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/airbridge/internal/core/domain"
)

func manifestEntry(epoch int64) domain.ManifestEntry {
	return domain.ManifestEntry{
		JobID:         domain.GenerateJobID(epoch),
		Source:        "airbyte-source-faker",
		DataFile:      "/tmp/out/airbyte-source-faker/data.json",
		StateFilePath: "/tmp/out/airbyte-source-faker/state.json",
		Timestamp:     epoch,
		ModifiedAt:    epoch,
	}
}

func TestNewManifestStore(t *testing.T) {
	store := NewManifestStore()
	require.NotNil(t, store)
	assert.Equal(t, ":memory:", store.Path())
}

func TestManifestStore_AppendAndLatest(t *testing.T) {
	store := NewManifestStore()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "id-1", manifestEntry(100)))
	require.NoError(t, store.Append(ctx, "id-1", manifestEntry(200)))

	latest, err := store.Latest(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, int64(200), latest.Timestamp)
}

func TestManifestStore_Latest_NotFound(t *testing.T) {
	store := NewManifestStore()

	_, err := store.Latest(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestManifestStore_Entries(t *testing.T) {
	store := NewManifestStore()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "id-1", manifestEntry(100)))
	require.NoError(t, store.Append(ctx, "id-1", manifestEntry(200)))

	entries, err := store.Entries(ctx, "id-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(100), entries[0].Timestamp)
	assert.Equal(t, int64(200), entries[1].Timestamp)

	_, err = store.Entries(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestManifestStore_Snapshot_IsACopy(t *testing.T) {
	store := NewManifestStore()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "id-1", manifestEntry(100)))

	snapshot, err := store.Snapshot(ctx)
	require.NoError(t, err)

	// Mutating the snapshot must not leak back into the store.
	snapshot.Append("id-1", manifestEntry(999))
	snapshot.Append("id-2", manifestEntry(999))

	entries, err := store.Entries(ctx, "id-1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	_, err = store.Latest(ctx, "id-2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

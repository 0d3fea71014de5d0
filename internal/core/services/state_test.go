package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/airbridge/internal/adapters/driven/artifacts"
	"github.com/custodia-labs/airbridge/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/airbridge/internal/core/domain"
)

func newStateResolverFixture() (*StateResolver, *memory.ManifestStore, *artifacts.StateStore) {
	manifest := memory.NewManifestStore()
	states := artifacts.NewStateStore()
	return NewStateResolver(manifest, states), manifest, states
}

func writeState(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "state.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestStateResolver_ResolvePrior_ExplicitPath(t *testing.T) {
	resolver, _, _ := newStateResolverFixture()
	path := writeState(t, t.TempDir(), `{"cursor":"explicit"}`)

	doc, from, err := resolver.ResolvePrior(context.Background(), "identity", path)

	require.NoError(t, err)
	assert.Equal(t, path, from)
	assert.JSONEq(t, `{"cursor":"explicit"}`, string(doc.JSON()))
}

func TestStateResolver_ResolvePrior_ExplicitPathWinsOverManifest(t *testing.T) {
	resolver, manifest, _ := newStateResolverFixture()
	ctx := context.Background()
	explicit := writeState(t, t.TempDir(), `{"cursor":"explicit"}`)
	fromManifest := writeState(t, t.TempDir(), `{"cursor":"manifest"}`)
	require.NoError(t, manifest.Append(ctx, "identity", domain.ManifestEntry{StateFilePath: fromManifest}))

	doc, from, err := resolver.ResolvePrior(ctx, "identity", explicit)

	require.NoError(t, err)
	assert.Equal(t, explicit, from)
	assert.JSONEq(t, `{"cursor":"explicit"}`, string(doc.JSON()))
}

func TestStateResolver_ResolvePrior_ExplicitPathMissingFallsBack(t *testing.T) {
	resolver, manifest, _ := newStateResolverFixture()
	ctx := context.Background()
	fromManifest := writeState(t, t.TempDir(), `{"cursor":"manifest"}`)
	require.NoError(t, manifest.Append(ctx, "identity", domain.ManifestEntry{StateFilePath: fromManifest}))

	doc, from, err := resolver.ResolvePrior(ctx, "identity", filepath.Join(t.TempDir(), "missing.json"))

	require.NoError(t, err)
	assert.Equal(t, fromManifest, from)
	assert.JSONEq(t, `{"cursor":"manifest"}`, string(doc.JSON()))
}

func TestStateResolver_ResolvePrior_ExplicitPathUnreadableIsFatal(t *testing.T) {
	resolver, _, _ := newStateResolverFixture()
	path := writeState(t, t.TempDir(), "not json")

	_, _, err := resolver.ResolvePrior(context.Background(), "identity", path)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStateUnreadable)
}

func TestStateResolver_ResolvePrior_UnknownIdentityIsAbsent(t *testing.T) {
	resolver, _, _ := newStateResolverFixture()

	doc, from, err := resolver.ResolvePrior(context.Background(), "never-ran", "")

	require.NoError(t, err)
	assert.Empty(t, from)
	assert.True(t, doc.Empty())
}

func TestStateResolver_ResolvePrior_EntryWithoutCheckpointIsAbsent(t *testing.T) {
	resolver, manifest, _ := newStateResolverFixture()
	ctx := context.Background()
	require.NoError(t, manifest.Append(ctx, "identity", domain.ManifestEntry{DataFile: "/runs/data_1.json"}))

	doc, from, err := resolver.ResolvePrior(ctx, "identity", "")

	require.NoError(t, err)
	assert.Empty(t, from)
	assert.True(t, doc.Empty())
}

func TestStateResolver_ResolvePrior_LostManifestCheckpointDegrades(t *testing.T) {
	resolver, manifest, _ := newStateResolverFixture()
	ctx := context.Background()

	// The manifest references a checkpoint that no longer exists on disk
	gone := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, manifest.Append(ctx, "identity", domain.ManifestEntry{StateFilePath: gone}))

	doc, from, err := resolver.ResolvePrior(ctx, "identity", "")

	// History pointing nowhere degrades to a full sync instead of failing
	require.NoError(t, err)
	assert.Empty(t, from)
	assert.True(t, doc.Empty())
}

func TestStateResolver_ResolvePrior_CorruptManifestCheckpointDegrades(t *testing.T) {
	resolver, manifest, _ := newStateResolverFixture()
	ctx := context.Background()
	corrupt := writeState(t, t.TempDir(), "{truncated")
	require.NoError(t, manifest.Append(ctx, "identity", domain.ManifestEntry{StateFilePath: corrupt}))

	doc, from, err := resolver.ResolvePrior(ctx, "identity", "")

	require.NoError(t, err)
	assert.Empty(t, from)
	assert.True(t, doc.Empty())
}

func TestStateResolver_ResolvePrior_LatestEntryWins(t *testing.T) {
	resolver, manifest, _ := newStateResolverFixture()
	ctx := context.Background()
	older := writeState(t, t.TempDir(), `{"cursor":"old"}`)
	newer := writeState(t, t.TempDir(), `{"cursor":"new"}`)
	require.NoError(t, manifest.Append(ctx, "identity", domain.ManifestEntry{StateFilePath: older, Timestamp: 100}))
	require.NoError(t, manifest.Append(ctx, "identity", domain.ManifestEntry{StateFilePath: newer, Timestamp: 200}))

	doc, from, err := resolver.ResolvePrior(ctx, "identity", "")

	require.NoError(t, err)
	assert.Equal(t, newer, from)
	assert.JSONEq(t, `{"cursor":"new"}`, string(doc.JSON()))
}

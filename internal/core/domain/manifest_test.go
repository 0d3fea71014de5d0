package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestManifest_Append tests history growth
func TestManifest_Append(t *testing.T) {
	m := Manifest{}

	m.Append("key-a", ManifestEntry{JobID: "jobid-1", Timestamp: 1})
	m.Append("key-a", ManifestEntry{JobID: "jobid-2", Timestamp: 2})
	m.Append("key-b", ManifestEntry{JobID: "jobid-3", Timestamp: 3})

	require.Len(t, m["key-a"], 2)
	require.Len(t, m["key-b"], 1)

	// Append order is preserved
	assert.Equal(t, "jobid-1", m["key-a"][0].JobID)
	assert.Equal(t, "jobid-2", m["key-a"][1].JobID)
}

// TestManifest_Latest tests most-recent entry lookup
func TestManifest_Latest(t *testing.T) {
	t.Run("returns the last appended entry", func(t *testing.T) {
		m := Manifest{}
		m.Append("key-a", ManifestEntry{JobID: "jobid-1"})
		m.Append("key-a", ManifestEntry{JobID: "jobid-2"})

		entry, ok := m.Latest("key-a")
		require.True(t, ok)
		assert.Equal(t, "jobid-2", entry.JobID)
	})

	t.Run("unknown identity", func(t *testing.T) {
		m := Manifest{}
		_, ok := m.Latest("missing")
		assert.False(t, ok)
	})

	t.Run("identity with empty history", func(t *testing.T) {
		m := Manifest{"key-a": nil}
		_, ok := m.Latest("key-a")
		assert.False(t, ok)
	})
}

// TestManifest_Identities tests sorted identity listing
func TestManifest_Identities(t *testing.T) {
	m := Manifest{
		"zulu":  {{JobID: "j"}},
		"alpha": {{JobID: "j"}},
		"mike":  {{JobID: "j"}},
	}

	assert.Equal(t, []string{"alpha", "mike", "zulu"}, m.Identities())
}

// TestGenerateJobID tests the generated job id format
func TestGenerateJobID(t *testing.T) {
	assert.Equal(t, "jobid-1700000000", GenerateJobID(1700000000))
}

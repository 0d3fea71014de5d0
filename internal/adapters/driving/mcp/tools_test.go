package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/airbridge/internal/core/domain"
	"github.com/custodia-labs/airbridge/internal/core/ports/driving"
)

func TestServer_handleListRuns(t *testing.T) {
	ctx := context.Background()

	t.Run("returns recorded runs", func(t *testing.T) {
		mockManifest := &mockManifestService{
			entries: []domain.ManifestEntry{
				{
					JobID:         "L3RtcC9vdXQsZmFrZXI=",
					Source:        "faker",
					DataFile:      "/tmp/out/airbyte-source-faker/1700000000/data_1700000000.json",
					StateFilePath: "/tmp/out/airbyte-source-faker/1700000000/state.json",
					Timestamp:     1700000000,
				},
				{
					JobID:     "L3RtcC9vdXQsZmFrZXI=",
					Source:    "faker",
					Timestamp: 1700000100,
				},
			},
		}

		ports := &Ports{Manifest: mockManifest}
		server, err := NewServer(ports)
		require.NoError(t, err)

		input := ListRunsInput{Identity: "L3RtcC9vdXQsZmFrZXI=", Limit: 10}
		_, output, err := server.handleListRuns(ctx, nil, input)

		require.NoError(t, err)
		assert.Equal(t, 2, output.Count)
		assert.Len(t, output.Runs, 2)
		assert.Equal(t, "faker", output.Runs[0].Source)
		assert.Equal(t, "/tmp/out/airbyte-source-faker/1700000000/data_1700000000.json", output.Runs[0].DataFile)
		assert.Equal(t, "/tmp/out/airbyte-source-faker/1700000000/state.json", output.Runs[0].StateFilePath)
		assert.Equal(t, int64(1700000000), output.Runs[0].Timestamp)
		assert.Empty(t, output.Runs[1].DataFile)
	})

	t.Run("limit keeps the most recent runs", func(t *testing.T) {
		mockManifest := &mockManifestService{
			entries: []domain.ManifestEntry{
				{Source: "faker", Timestamp: 1700000000},
				{Source: "faker", Timestamp: 1700000100},
				{Source: "faker", Timestamp: 1700000200},
			},
		}

		ports := &Ports{Manifest: mockManifest}
		server, err := NewServer(ports)
		require.NoError(t, err)

		input := ListRunsInput{Identity: "abc", Limit: 2}
		_, output, err := server.handleListRuns(ctx, nil, input)

		require.NoError(t, err)
		assert.Equal(t, 2, output.Count)
		require.Len(t, output.Runs, 2)
		assert.Equal(t, int64(1700000100), output.Runs[0].Timestamp)
		assert.Equal(t, int64(1700000200), output.Runs[1].Timestamp)
	})

	t.Run("default limit is 20", func(t *testing.T) {
		mockManifest := &mockManifestService{}
		ports := &Ports{Manifest: mockManifest}
		server, err := NewServer(ports)
		require.NoError(t, err)

		input := ListRunsInput{Identity: "abc", Limit: 0}
		_, output, err := server.handleListRuns(ctx, nil, input)

		require.NoError(t, err)
		assert.Equal(t, 0, output.Count)
	})

	t.Run("returns error on history failure", func(t *testing.T) {
		mockManifest := &mockManifestService{
			err: errors.New("manifest locked"),
		}

		ports := &Ports{Manifest: mockManifest}
		server, err := NewServer(ports)
		require.NoError(t, err)

		input := ListRunsInput{Identity: "abc"}
		_, _, err = server.handleListRuns(ctx, nil, input)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "manifest locked")
	})
}

func TestServer_handleLatestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the latest run", func(t *testing.T) {
		mockManifest := &mockManifestService{
			latest: &domain.ManifestEntry{
				JobID:         "nightly-sync",
				Source:        "faker",
				DataFile:      "/tmp/out/airbyte-source-faker/1700000000/data_1700000000.json",
				StateFilePath: "/tmp/out/airbyte-source-faker/1700000000/state.json",
				Timestamp:     1700000000,
				ModifiedAt:    1700000050,
			},
		}

		ports := &Ports{Manifest: mockManifest}
		server, err := NewServer(ports)
		require.NoError(t, err)

		input := LatestRunInput{Identity: "nightly-sync"}
		_, output, err := server.handleLatestRun(ctx, nil, input)

		require.NoError(t, err)
		assert.Equal(t, "nightly-sync", output.Run.JobID)
		assert.Equal(t, "faker", output.Run.Source)
		assert.Equal(t, "/tmp/out/airbyte-source-faker/1700000000/data_1700000000.json", output.Run.DataFile)
		assert.Equal(t, int64(1700000000), output.Run.Timestamp)
		assert.Equal(t, int64(1700000050), output.Run.ModifiedAt)
	})

	t.Run("returns error when identity is unknown", func(t *testing.T) {
		mockManifest := &mockManifestService{
			err: domain.ErrNotFound,
		}

		ports := &Ports{Manifest: mockManifest}
		server, err := NewServer(ports)
		require.NoError(t, err)

		input := LatestRunInput{Identity: "missing"}
		_, _, err = server.handleLatestRun(ctx, nil, input)

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestServer_handleDecodeIdentity(t *testing.T) {
	ctx := context.Background()

	t.Run("decodes an encoded pair", func(t *testing.T) {
		mockManifest := &mockManifestService{
			decoded: &driving.DecodedIdentity{
				Plain:       "/tmp/out,airbyte/source-faker:latest",
				OutputPath:  "/tmp/out",
				SourceImage: "airbyte/source-faker:latest",
			},
		}

		ports := &Ports{Manifest: mockManifest}
		server, err := NewServer(ports)
		require.NoError(t, err)

		input := DecodeIdentityInput{Key: "L3RtcC9vdXQsYWlyYnl0ZS9zb3VyY2UtZmFrZXI6bGF0ZXN0"}
		_, output, err := server.handleDecodeIdentity(ctx, nil, input)

		require.NoError(t, err)
		assert.False(t, output.IsJobID)
		assert.Equal(t, "/tmp/out,airbyte/source-faker:latest", output.Plain)
		assert.Equal(t, "/tmp/out", output.OutputPath)
		assert.Equal(t, "airbyte/source-faker:latest", output.SourceImage)
	})

	t.Run("passes through job ids", func(t *testing.T) {
		mockManifest := &mockManifestService{
			decoded: &driving.DecodedIdentity{IsJobID: true},
		}

		ports := &Ports{Manifest: mockManifest}
		server, err := NewServer(ports)
		require.NoError(t, err)

		input := DecodeIdentityInput{Key: "nightly-sync"}
		_, output, err := server.handleDecodeIdentity(ctx, nil, input)

		require.NoError(t, err)
		assert.True(t, output.IsJobID)
		assert.Empty(t, output.Plain)
	})

	t.Run("returns error on decode failure", func(t *testing.T) {
		mockManifest := &mockManifestService{
			err: errors.New("not base64"),
		}

		ports := &Ports{Manifest: mockManifest}
		server, err := NewServer(ports)
		require.NoError(t, err)

		input := DecodeIdentityInput{Key: "!!!"}
		_, _, err = server.handleDecodeIdentity(ctx, nil, input)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "not base64")
	})
}

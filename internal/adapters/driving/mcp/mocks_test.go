package mcp

import (
	"context"

	"github.com/custodia-labs/airbridge/internal/core/domain"
	"github.com/custodia-labs/airbridge/internal/core/ports/driving"
)

// mockManifestService is a mock implementation of driving.ManifestService.
type mockManifestService struct {
	summaries []driving.IdentitySummary
	entries   []domain.ManifestEntry
	latest    *domain.ManifestEntry
	decoded   *driving.DecodedIdentity
	state     domain.StateDocument
	statePath string
	rebuild   *driving.RebuildResult
	err       error
}

func (m *mockManifestService) Identities(_ context.Context) ([]driving.IdentitySummary, error) {
	return m.summaries, m.err
}

func (m *mockManifestService) History(_ context.Context, _ string) ([]domain.ManifestEntry, error) {
	return m.entries, m.err
}

func (m *mockManifestService) Latest(_ context.Context, _ string) (*domain.ManifestEntry, error) {
	return m.latest, m.err
}

func (m *mockManifestService) Decode(_ string) (*driving.DecodedIdentity, error) {
	return m.decoded, m.err
}

func (m *mockManifestService) LatestState(_ context.Context, _ string) (domain.StateDocument, string, error) {
	return m.state, m.statePath, m.err
}

func (m *mockManifestService) Rebuild(_ context.Context, _ driving.RebuildRequest) (*driving.RebuildResult, error) {
	return m.rebuild, m.err
}

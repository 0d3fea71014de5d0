package identities

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/airbridge/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/airbridge/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/airbridge/internal/core/domain"
	"github.com/custodia-labs/airbridge/internal/core/ports/driving"
)

// MockManifestService implements driving.ManifestService for testing.
type MockManifestService struct {
	IdentitiesFunc func(ctx context.Context) ([]driving.IdentitySummary, error)
}

func (m *MockManifestService) Identities(ctx context.Context) ([]driving.IdentitySummary, error) {
	if m.IdentitiesFunc != nil {
		return m.IdentitiesFunc(ctx)
	}
	return []driving.IdentitySummary{}, nil
}

func (m *MockManifestService) History(ctx context.Context, identity string) ([]domain.ManifestEntry, error) {
	return nil, nil
}

func (m *MockManifestService) Latest(ctx context.Context, identity string) (*domain.ManifestEntry, error) {
	return nil, nil
}

func (m *MockManifestService) Decode(key string) (*driving.DecodedIdentity, error) {
	return nil, nil
}

func (m *MockManifestService) LatestState(ctx context.Context, identity string) (domain.StateDocument, string, error) {
	return domain.StateDocument{}, "", nil
}

func (m *MockManifestService) Rebuild(ctx context.Context, req driving.RebuildRequest) (*driving.RebuildResult, error) {
	return nil, nil
}

func TestNewView(t *testing.T) {
	s := styles.DefaultStyles()
	mock := &MockManifestService{}

	view := NewView(s, mock)

	require.NotNil(t, view)
	assert.False(t, view.ready)
	assert.Empty(t, view.summaries)
	assert.Equal(t, 0, view.selected)
}

func TestNewView_NilStyles(t *testing.T) {
	view := NewView(nil, nil)

	require.NotNil(t, view)
	assert.NotNil(t, view.styles)
	assert.Nil(t, view.manifestService)
}

func TestView_Init(t *testing.T) {
	summaries := []driving.IdentitySummary{
		{Identity: "jobid-1", Source: "faker", Runs: 2, LastTimestamp: 1700000000},
		{Identity: "jobid-2", Source: "postgres", Runs: 1, LastTimestamp: 1700000100},
	}
	mock := &MockManifestService{
		IdentitiesFunc: func(ctx context.Context) ([]driving.IdentitySummary, error) {
			return summaries, nil
		},
	}
	view := NewView(nil, mock)

	cmd := view.Init()

	require.NotNil(t, cmd)
	result := cmd()
	loaded, ok := result.(messages.IdentitiesLoaded)
	require.True(t, ok)
	assert.Len(t, loaded.Summaries, 2)
	assert.NoError(t, loaded.Err)
}

func TestView_Init_NilService(t *testing.T) {
	view := NewView(nil, nil)

	cmd := view.Init()

	require.NotNil(t, cmd)
	result := cmd()
	loaded, ok := result.(messages.IdentitiesLoaded)
	require.True(t, ok)
	assert.Error(t, loaded.Err)
}

func TestView_Update_WindowSize(t *testing.T) {
	view := NewView(nil, nil)

	msg := tea.WindowSizeMsg{Width: 80, Height: 24}
	updated, cmd := view.Update(msg)

	assert.Equal(t, view, updated)
	assert.Nil(t, cmd)
	assert.True(t, view.ready)
	assert.Equal(t, 80, view.width)
	assert.Equal(t, 24, view.height)
}

func TestView_Update_IdentitiesLoaded(t *testing.T) {
	view := NewView(nil, nil)
	view.loading = true

	summaries := []driving.IdentitySummary{
		{Identity: "jobid-1", Source: "faker"},
	}
	msg := messages.IdentitiesLoaded{Summaries: summaries, Err: nil}
	updated, cmd := view.Update(msg)

	assert.Equal(t, view, updated)
	assert.Nil(t, cmd)
	assert.False(t, view.loading)
	assert.Len(t, view.summaries, 1)
	assert.NoError(t, view.err)
}

func TestView_Update_IdentitiesLoaded_Error(t *testing.T) {
	view := NewView(nil, nil)
	view.loading = true

	msg := messages.IdentitiesLoaded{Err: errors.New("failed to load")}
	view.Update(msg)

	assert.False(t, view.loading)
	assert.Error(t, view.err)
}

func TestView_Update_IdentitiesLoaded_ClampsSelection(t *testing.T) {
	view := NewView(nil, nil)
	view.selected = 5

	msg := messages.IdentitiesLoaded{Summaries: []driving.IdentitySummary{
		{Identity: "jobid-1"},
	}}
	view.Update(msg)

	assert.Equal(t, 0, view.selected)
}

func TestView_Update_KeyMsg_NavigateDown(t *testing.T) {
	view := NewView(nil, nil)
	view.summaries = []driving.IdentitySummary{
		{Identity: "a"}, {Identity: "b"}, {Identity: "c"},
	}
	view.selected = 0

	// Test down key
	msg := tea.KeyMsg{Type: tea.KeyDown}
	view.Update(msg)
	assert.Equal(t, 1, view.selected)

	// Test j key
	msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}}
	view.Update(msg)
	assert.Equal(t, 2, view.selected)

	// Test boundary - can't go past last item
	msg = tea.KeyMsg{Type: tea.KeyDown}
	view.Update(msg)
	assert.Equal(t, 2, view.selected)
}

func TestView_Update_KeyMsg_NavigateUp(t *testing.T) {
	view := NewView(nil, nil)
	view.summaries = []driving.IdentitySummary{
		{Identity: "a"}, {Identity: "b"}, {Identity: "c"},
	}
	view.selected = 2

	// Test up key
	msg := tea.KeyMsg{Type: tea.KeyUp}
	view.Update(msg)
	assert.Equal(t, 1, view.selected)

	// Test k key
	msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}}
	view.Update(msg)
	assert.Equal(t, 0, view.selected)

	// Test boundary - can't go before first item
	msg = tea.KeyMsg{Type: tea.KeyUp}
	view.Update(msg)
	assert.Equal(t, 0, view.selected)
}

func TestView_Update_KeyMsg_Enter(t *testing.T) {
	view := NewView(nil, nil)
	view.summaries = []driving.IdentitySummary{
		{Identity: "jobid-1", Source: "faker"},
		{Identity: "jobid-2", Source: "postgres"},
	}
	view.selected = 1

	msg := tea.KeyMsg{Type: tea.KeyEnter}
	_, cmd := view.Update(msg)

	require.NotNil(t, cmd)
	result := cmd()
	selected, ok := result.(messages.IdentitySelected)
	require.True(t, ok)
	assert.Equal(t, "jobid-2", selected.Summary.Identity)
	assert.Equal(t, "postgres", selected.Summary.Source)
}

func TestView_Update_KeyMsg_Enter_EmptyList(t *testing.T) {
	view := NewView(nil, nil)
	view.summaries = []driving.IdentitySummary{}

	msg := tea.KeyMsg{Type: tea.KeyEnter}
	_, cmd := view.Update(msg)

	assert.Nil(t, cmd)
}

func TestView_Update_KeyMsg_Reload(t *testing.T) {
	mock := &MockManifestService{
		IdentitiesFunc: func(ctx context.Context) ([]driving.IdentitySummary, error) {
			return []driving.IdentitySummary{{Identity: "reloaded"}}, nil
		},
	}
	view := NewView(nil, mock)

	msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}}
	_, cmd := view.Update(msg)

	assert.True(t, view.loading)
	require.NotNil(t, cmd)
}

func TestView_View_Loading(t *testing.T) {
	view := NewView(nil, nil)
	view.width = 80
	view.height = 24
	view.ready = true
	view.loading = true

	output := view.View()

	assert.Contains(t, output, "Loading")
}

func TestView_View_Error(t *testing.T) {
	view := NewView(nil, nil)
	view.width = 80
	view.height = 24
	view.ready = true
	view.err = errors.New("manifest locked")

	output := view.View()

	assert.Contains(t, output, "Error")
	assert.Contains(t, output, "manifest locked")
}

func TestView_View_Empty(t *testing.T) {
	view := NewView(nil, nil)
	view.width = 80
	view.height = 24
	view.ready = true
	view.summaries = []driving.IdentitySummary{}

	output := view.View()

	assert.Contains(t, output, "No runs recorded")
}

func TestView_View_WithSummaries(t *testing.T) {
	view := NewView(nil, nil)
	view.width = 80
	view.height = 24
	view.ready = true
	view.summaries = []driving.IdentitySummary{
		{Identity: "jobid-1700000000", Source: "faker", Runs: 3, LastTimestamp: 1700000000},
		{Identity: "jobid-1700000100", Source: "postgres", Runs: 1, LastTimestamp: 1700000100},
	}

	output := view.View()

	assert.Contains(t, output, "Identities")
	assert.Contains(t, output, "faker")
	assert.Contains(t, output, "postgres")
	assert.Contains(t, output, "3 runs")
	assert.Contains(t, output, "2023-11-14 22:13")
}

func TestView_SetDimensions(t *testing.T) {
	view := NewView(nil, nil)

	view.SetDimensions(100, 50)

	assert.Equal(t, 100, view.width)
	assert.Equal(t, 50, view.height)
	assert.True(t, view.ready)
}

func TestView_Summaries(t *testing.T) {
	view := NewView(nil, nil)
	view.summaries = []driving.IdentitySummary{{Identity: "a"}, {Identity: "b"}}

	summaries := view.Summaries()

	assert.Len(t, summaries, 2)
	assert.Equal(t, "a", summaries[0].Identity)
}

func TestView_SelectedIndex(t *testing.T) {
	view := NewView(nil, nil)
	view.selected = 3

	assert.Equal(t, 3, view.SelectedIndex())
}

func TestView_Err(t *testing.T) {
	view := NewView(nil, nil)
	view.err = errors.New("test error")

	assert.Error(t, view.Err())
}

func TestView_RenderSummary_Selected(t *testing.T) {
	view := NewView(nil, nil)
	view.width = 80
	view.selected = 0

	summary := driving.IdentitySummary{Identity: "jobid-1", Source: "faker", Runs: 2}
	output := view.renderSummary(0, &summary)

	assert.Contains(t, output, "jobid-1")
	assert.Contains(t, output, ">")
}

func TestView_RenderSummary_NotSelected(t *testing.T) {
	view := NewView(nil, nil)
	view.width = 80
	view.selected = 1

	summary := driving.IdentitySummary{Identity: "jobid-1", Source: "faker", Runs: 2}
	output := view.renderSummary(0, &summary)

	assert.Contains(t, output, "jobid-1")
}

func TestView_RenderSummary_LongKey(t *testing.T) {
	view := NewView(nil, nil)
	view.width = 40

	summary := driving.IdentitySummary{
		Identity: "L3Zhci9saWIvYWlyYnJpZGdlL291dHB1dCxhaXJieXRlL3NvdXJjZS1wb3N0Z3JlczpsYXRlc3Q=",
		Source:   "postgres",
		Runs:     1,
	}
	output := view.renderSummary(0, &summary)

	// Key should be truncated
	assert.Contains(t, output, "...")
}

func TestFormatEpoch(t *testing.T) {
	assert.Equal(t, "2023-11-14 22:13", formatEpoch(1700000000))
	assert.Equal(t, "-", formatEpoch(0))
}

package checkpoint

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/airbridge/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/airbridge/internal/adapters/driving/tui/styles"
)

func TestNewView(t *testing.T) {
	s := styles.DefaultStyles()

	view := NewView(s)

	require.NotNil(t, view)
	assert.False(t, view.ready)
	assert.Empty(t, view.content)
	assert.Equal(t, 80, view.width)
	assert.Equal(t, 24, view.height)
}

func TestNewView_NilStyles(t *testing.T) {
	view := NewView(nil)

	require.NotNil(t, view)
	assert.NotNil(t, view.styles)
}

func TestView_SetCheckpoint(t *testing.T) {
	view := NewView(nil)
	view.scrollOffset = 5

	view.SetCheckpoint("jobid-1", "/tmp/out/airbyte-source-faker/1700000000/state.json", `{"users":{"cursor":"abc"}}`)

	assert.Equal(t, "jobid-1", view.identity)
	assert.Equal(t, "/tmp/out/airbyte-source-faker/1700000000/state.json", view.path)
	assert.Equal(t, 0, view.scrollOffset)
	assert.NoError(t, view.err)
	assert.NotEmpty(t, view.lines)
}

func TestView_SetCheckpoint_PrettyPrintsJSON(t *testing.T) {
	view := NewView(nil)

	view.SetCheckpoint("jobid-1", "/tmp/state.json", `{"users":{"cursor":"abc"}}`)

	// Content should be re-indented across multiple lines
	assert.Contains(t, view.content, "\n")
	assert.Contains(t, view.content, `"cursor": "abc"`)
}

func TestView_SetCheckpoint_InvalidJSONUnchanged(t *testing.T) {
	view := NewView(nil)

	view.SetCheckpoint("jobid-1", "/tmp/state.json", "not json at all")

	assert.Equal(t, "not json at all", view.content)
}

func TestView_Init(t *testing.T) {
	view := NewView(nil)

	cmd := view.Init()

	assert.Nil(t, cmd)
}

func TestView_Update_WindowSize(t *testing.T) {
	view := NewView(nil)

	msg := tea.WindowSizeMsg{Width: 100, Height: 40}
	updated, cmd := view.Update(msg)

	assert.Equal(t, view, updated)
	assert.Nil(t, cmd)
	assert.True(t, view.ready)
	assert.Equal(t, 100, view.width)
	assert.Equal(t, 40, view.height)
}

func TestView_Update_KeyMsg_ScrollDown(t *testing.T) {
	view := NewView(nil)
	view.width = 80
	view.height = 10
	view.content = strings.Repeat("line\n", 20)
	view.wrapContent()

	msg := tea.KeyMsg{Type: tea.KeyDown}
	view.Update(msg)
	assert.Equal(t, 1, view.scrollOffset)

	// Test j key
	msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}}
	view.Update(msg)
	assert.Equal(t, 2, view.scrollOffset)
}

func TestView_Update_KeyMsg_ScrollUp(t *testing.T) {
	view := NewView(nil)
	view.width = 80
	view.height = 10
	view.scrollOffset = 5

	msg := tea.KeyMsg{Type: tea.KeyUp}
	view.Update(msg)
	assert.Equal(t, 4, view.scrollOffset)

	// Test k key
	msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}}
	view.Update(msg)
	assert.Equal(t, 3, view.scrollOffset)

	// Test boundary
	view.scrollOffset = 0
	msg = tea.KeyMsg{Type: tea.KeyUp}
	view.Update(msg)
	assert.Equal(t, 0, view.scrollOffset)
}

func TestView_Update_KeyMsg_PageDown(t *testing.T) {
	view := NewView(nil)
	view.width = 80
	view.height = 10
	view.content = strings.Repeat("line\n", 30)
	view.wrapContent()
	view.scrollOffset = 0

	msg := tea.KeyMsg{Type: tea.KeyPgDown}
	view.Update(msg)
	assert.Greater(t, view.scrollOffset, 0)
}

func TestView_Update_KeyMsg_PageUp(t *testing.T) {
	view := NewView(nil)
	view.width = 80
	view.height = 10
	view.content = "Line 1\nLine 2\nLine 3"
	view.wrapContent()
	view.scrollOffset = 5

	msg := tea.KeyMsg{Type: tea.KeyPgUp}
	view.Update(msg)
	assert.Less(t, view.scrollOffset, 5)
}

func TestView_Update_KeyMsg_Home(t *testing.T) {
	view := NewView(nil)
	view.width = 80
	view.height = 10
	view.content = strings.Repeat("line\n", 30)
	view.wrapContent()
	view.scrollOffset = 10

	msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'g'}}
	view.Update(msg)
	assert.Equal(t, 0, view.scrollOffset)
}

func TestView_Update_KeyMsg_End(t *testing.T) {
	view := NewView(nil)
	view.width = 80
	view.height = 10
	view.content = strings.Repeat("line\n", 30)
	view.wrapContent()
	view.scrollOffset = 0

	msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'G'}}
	view.Update(msg)
	assert.Equal(t, view.maxScrollOffset(), view.scrollOffset)
}

func TestView_Update_KeyMsg_Back(t *testing.T) {
	view := NewView(nil)

	msg := tea.KeyMsg{Type: tea.KeyEsc}
	_, cmd := view.Update(msg)

	require.NotNil(t, cmd)
	result := cmd()
	changed, ok := result.(messages.ViewChanged)
	assert.True(t, ok)
	assert.Equal(t, messages.ViewHistory, changed.View)
}

func TestView_Update_ErrorOccurred(t *testing.T) {
	view := NewView(nil)

	msg := messages.ErrorOccurred{Err: errors.New("test error")}
	view.Update(msg)

	assert.Error(t, view.err)
}

func TestView_View_WithContent(t *testing.T) {
	view := NewView(nil)
	view.width = 80
	view.height = 24
	view.ready = true
	view.SetCheckpoint("jobid-1", "/tmp/out/airbyte-source-faker/1700000000/state.json", `{"users":{"cursor":"abc"}}`)

	output := view.View()

	assert.Contains(t, output, "Checkpoint - /tmp/out/airbyte-source-faker/1700000000/state.json")
	assert.Contains(t, output, "cursor")
}

func TestView_View_Empty(t *testing.T) {
	view := NewView(nil)
	view.width = 80
	view.height = 24
	view.ready = true

	output := view.View()

	assert.Contains(t, output, "No checkpoint recorded")
}

func TestView_View_Error(t *testing.T) {
	view := NewView(nil)
	view.width = 80
	view.height = 24
	view.ready = true
	view.err = errors.New("state unreadable")

	output := view.View()

	assert.Contains(t, output, "Error")
	assert.Contains(t, output, "state unreadable")
}

func TestView_View_ScrollIndicator(t *testing.T) {
	view := NewView(nil)
	view.width = 80
	view.height = 10
	view.ready = true
	view.content = strings.Repeat("line\n", 30)
	view.wrapContent()

	output := view.View()

	assert.Contains(t, output, "Line 1-")
}

func TestView_WrapContent(t *testing.T) {
	view := NewView(nil)
	view.width = 40
	view.content = "Short line\n" + strings.Repeat("x", 100)
	view.wrapContent()

	// Long lines should be split to fit the width
	assert.Greater(t, len(view.lines), 2)
}

func TestView_WrapContent_Empty(t *testing.T) {
	view := NewView(nil)
	view.content = ""
	view.wrapContent()

	assert.Empty(t, view.lines)
}

func TestView_SetDimensions(t *testing.T) {
	view := NewView(nil)

	view.SetDimensions(100, 50)

	assert.Equal(t, 100, view.width)
	assert.Equal(t, 50, view.height)
	assert.True(t, view.ready)
}

func TestView_Identity_Getter(t *testing.T) {
	view := NewView(nil)
	view.identity = "jobid-1"

	assert.Equal(t, "jobid-1", view.Identity())
}

func TestView_Content_Getter(t *testing.T) {
	view := NewView(nil)
	view.content = "{}"

	assert.Equal(t, "{}", view.Content())
}

func TestView_Err_Getter(t *testing.T) {
	view := NewView(nil)
	view.err = errors.New("test error")

	assert.Error(t, view.Err())
}

func TestPrettyJSON(t *testing.T) {
	pretty := prettyJSON(`{"a":1}`)

	assert.Contains(t, pretty, "\"a\": 1")
}

func TestPrettyJSON_Invalid(t *testing.T) {
	assert.Equal(t, "not json", prettyJSON("not json"))
}

// Package history provides the run history view component for the TUI.
package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/airbridge/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/airbridge/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/airbridge/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/airbridge/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/airbridge/internal/core/domain"
	"github.com/custodia-labs/airbridge/internal/core/ports/driving"
)

// View is the run history view for one identity, with a status bar.
type View struct {
	styles          *styles.Styles
	keymap          *keymap.KeyMap
	statusbar       *status.Bar
	manifestService driving.ManifestService

	summary      *driving.IdentitySummary
	entries      []domain.ManifestEntry
	decoded      *driving.DecodedIdentity
	selected     int
	scrollOffset int
	width        int
	height       int
	ready        bool
	err          error
	loading      bool
}

// NewView creates a new history view.
func NewView(s *styles.Styles, km *keymap.KeyMap, manifestService driving.ManifestService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:          s,
		keymap:          km,
		statusbar:       status.NewBar(s, km),
		manifestService: manifestService,
		entries:         []domain.ManifestEntry{},
		width:           80,
		height:          24,
	}
}

// SetIdentity sets the identity and loads its run history.
func (v *View) SetIdentity(summary driving.IdentitySummary) tea.Cmd {
	v.summary = &summary
	v.entries = []domain.ManifestEntry{}
	v.decoded = nil
	v.selected = 0
	v.scrollOffset = 0
	v.err = nil
	v.loading = true
	v.statusbar.SetState(status.StateLoading)
	return v.loadHistory()
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// loadHistory returns a command that loads the identity's runs and decoded
// provenance.
func (v *View) loadHistory() tea.Cmd {
	return func() tea.Msg {
		if v.summary == nil || v.manifestService == nil {
			return messages.HistoryLoaded{Err: fmt.Errorf("manifest service not available")}
		}

		identity := v.summary.Identity
		entries, err := v.manifestService.History(context.Background(), identity)
		if err != nil {
			return messages.HistoryLoaded{Identity: identity, Err: err}
		}

		// Decode failures are cosmetic; the history still renders.
		decoded, _ := v.manifestService.Decode(identity)

		return messages.HistoryLoaded{
			Identity: identity,
			Entries:  entries,
			Decoded:  decoded,
		}
	}
}

// loadCheckpoint returns a command that loads the identity's latest
// checkpoint document.
func (v *View) loadCheckpoint() tea.Cmd {
	return func() tea.Msg {
		if v.summary == nil || v.manifestService == nil {
			return messages.CheckpointLoaded{Err: fmt.Errorf("manifest service not available")}
		}

		identity := v.summary.Identity
		doc, path, err := v.manifestService.LatestState(context.Background(), identity)
		if err != nil {
			return messages.CheckpointLoaded{Identity: identity, Err: err}
		}
		return messages.CheckpointLoaded{
			Identity:   identity,
			Path:       path,
			Checkpoint: string(doc.JSON()),
		}
	}
}

// Update handles messages for the history view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		v.ready = true
		v.statusbar.SetWidth(msg.Width)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.HistoryLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			v.statusbar.SetState(status.StateError)
			v.statusbar.SetMessage(msg.Err.Error())
		} else {
			v.entries = msg.Entries
			v.decoded = msg.Decoded
			v.err = nil
			v.statusbar.SetState(status.StateBrowse)
			v.statusbar.SetRunCount(len(msg.Entries))
			if v.selected >= len(v.entries) {
				v.selected = 0
			}
		}
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		return v, nil
	}

	return v, nil
}

// handleKeyMsg handles key presses.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	key := msg.String()
	switch {
	case keymap.Matches(key, v.keymap.Up):
		if v.selected > 0 {
			v.selected--
			v.adjustScroll()
		}
	case keymap.Matches(key, v.keymap.Down):
		if v.selected < len(v.entries)-1 {
			v.selected++
			v.adjustScroll()
		}
	case keymap.Matches(key, v.keymap.Checkpoint):
		if len(v.entries) > 0 {
			return v, v.loadCheckpoint()
		}
	case keymap.Matches(key, v.keymap.Reload):
		if v.summary != nil {
			v.loading = true
			v.statusbar.SetState(status.StateLoading)
			return v, v.loadHistory()
		}
	case keymap.Matches(key, v.keymap.Back):
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewIdentities}
		}
	}

	return v, nil
}

// adjustScroll keeps the selected entry visible.
func (v *View) adjustScroll() {
	visibleItems := v.visibleItemCount()
	if v.selected < v.scrollOffset {
		v.scrollOffset = v.selected
	} else if v.selected >= v.scrollOffset+visibleItems {
		v.scrollOffset = v.selected - visibleItems + 1
	}
}

// visibleItemCount returns the number of entries that can be displayed.
func (v *View) visibleItemCount() int {
	// Reserve lines for title, provenance, help, status bar and padding
	reserved := 10
	available := v.height - reserved
	if available < 1 {
		available = 1
	}
	return available
}

// View renders the history view.
func (v *View) View() string {
	var b strings.Builder

	// Title
	source := "unknown"
	if v.summary != nil && v.summary.Source != "" {
		source = v.summary.Source
	}
	title := fmt.Sprintf("Runs - %s (%d)", source, len(v.entries))
	b.WriteString(v.styles.Title.Render(title))
	b.WriteString("\n")

	// Decoded provenance
	b.WriteString(v.renderProvenance())
	b.WriteString("\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading runs..."))
		b.WriteString("\n")

	case v.err != nil:
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s", v.err.Error())))
		b.WriteString("\n")

	case len(v.entries) == 0:
		b.WriteString(v.styles.Muted.Render("No runs recorded."))
		b.WriteString("\n")

	default:
		visibleItems := v.visibleItemCount()
		for i := v.scrollOffset; i < len(v.entries) && i < v.scrollOffset+visibleItems; i++ {
			b.WriteString(v.renderEntry(i, &v.entries[i]))
			b.WriteString("\n")
		}

		// Scroll indicator
		if len(v.entries) > visibleItems {
			end := v.scrollOffset + visibleItems
			if end > len(v.entries) {
				end = len(v.entries)
			}
			b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [%d-%d of %d]",
				v.scrollOffset+1, end, len(v.entries))))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Help.Render("[s] checkpoint  [r] reload  [esc] back  [q] quit"))
	b.WriteString("\n")
	b.WriteString(v.statusbar.View())

	return b.String()
}

// renderProvenance renders the decoded identity header.
func (v *View) renderProvenance() string {
	if v.decoded == nil {
		return ""
	}
	if v.decoded.IsJobID {
		return v.styles.Muted.Render("job id: ") +
			v.styles.Normal.Render(v.identityKey()) + "\n"
	}
	return v.styles.Muted.Render("output: ") +
		v.styles.Normal.Render(v.decoded.OutputPath) + "  " +
		v.styles.Muted.Render("image: ") +
		v.styles.Normal.Render(v.decoded.SourceImage) + "\n"
}

// renderEntry renders a single run line.
func (v *View) renderEntry(index int, e *domain.ManifestEntry) string {
	indicator := "  "
	if index == v.selected {
		indicator = "> "
	}

	when := time.Unix(e.Timestamp, 0).UTC().Format("2006-01-02 15:04:05")
	capture := "no capture"
	if e.DataFile != "" {
		capture = e.DataFile
	}

	// Truncate long data file paths from the left, keeping the file name
	maxCaptureLen := v.width - 34
	if maxCaptureLen < 14 {
		maxCaptureLen = 14
	}
	if len(capture) > maxCaptureLen {
		capture = "..." + capture[len(capture)-maxCaptureLen+3:]
	}

	if index == v.selected {
		return v.styles.Selected.Render(fmt.Sprintf("%s%s  %s  %s", indicator, when, e.JobID, capture))
	}

	line := v.styles.Normal.Render(indicator) +
		v.styles.Normal.Render(when) + "  " +
		v.styles.Subtitle.Render(e.JobID) + "  "
	if e.DataFile == "" {
		return line + v.styles.Error.Render(capture)
	}
	return line + v.styles.Muted.Render(capture)
}

// identityKey returns the identity key being browsed.
func (v *View) identityKey() string {
	if v.summary == nil {
		return ""
	}
	return v.summary.Identity
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	v.statusbar.SetWidth(width)
}

// Entries returns the current run entries.
func (v *View) Entries() []domain.ManifestEntry {
	return v.entries
}

// SelectedIndex returns the currently selected entry index.
func (v *View) SelectedIndex() int {
	return v.selected
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}

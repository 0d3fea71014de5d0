// Package identities provides the identity list view component for the TUI.
package identities

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/airbridge/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/airbridge/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/airbridge/internal/core/ports/driving"
)

// View is the identity list view.
type View struct {
	styles          *styles.Styles
	manifestService driving.ManifestService

	summaries []driving.IdentitySummary
	selected  int
	width     int
	height    int
	ready     bool
	err       error
	loading   bool
}

// NewView creates a new identities view.
func NewView(s *styles.Styles, manifestService driving.ManifestService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:          s,
		manifestService: manifestService,
		summaries:       []driving.IdentitySummary{},
	}
}

// Init initialises the view and loads identities.
func (v *View) Init() tea.Cmd {
	return v.loadIdentities()
}

// loadIdentities returns a command that loads identities from the manifest.
func (v *View) loadIdentities() tea.Cmd {
	return func() tea.Msg {
		if v.manifestService == nil {
			return messages.IdentitiesLoaded{Err: fmt.Errorf("manifest service not available")}
		}

		summaries, err := v.manifestService.Identities(context.Background())
		return messages.IdentitiesLoaded{Summaries: summaries, Err: err}
	}
}

// Update handles messages for the identities view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		v.ready = true
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.IdentitiesLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
		} else {
			v.summaries = msg.Summaries
			v.err = nil
			if v.selected >= len(v.summaries) {
				v.selected = 0
			}
		}
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		return v, nil
	}

	return v, nil
}

// handleKeyMsg handles key presses.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.selected > 0 {
			v.selected--
		}
	case "down", "j":
		if v.selected < len(v.summaries)-1 {
			v.selected++
		}
	case "enter":
		// Navigate to the identity's run history
		if len(v.summaries) > 0 && v.selected < len(v.summaries) {
			summary := v.summaries[v.selected]
			return v, func() tea.Msg {
				return messages.IdentitySelected{Summary: summary}
			}
		}
	case "r":
		// Reload identities
		v.loading = true
		cmd := v.loadIdentities()
		return v, cmd
	}

	return v, nil
}

// View renders the identities view.
func (v *View) View() string {
	var b strings.Builder

	// Title
	b.WriteString(v.styles.Title.Render("Identities"))
	b.WriteString("\n\n")

	// Loading state
	if v.loading {
		b.WriteString(v.styles.Muted.Render("Loading identities..."))
		b.WriteString("\n\n")
		b.WriteString(v.renderHelp())
		return b.String()
	}

	// Error state
	if v.err != nil {
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s", v.err.Error())))
		b.WriteString("\n\n")
		b.WriteString(v.renderHelp())
		return b.String()
	}

	// Empty state
	if len(v.summaries) == 0 {
		b.WriteString(v.styles.Muted.Render("No runs recorded."))
		b.WriteString("\n\n")
		b.WriteString(v.renderHelp())
		return b.String()
	}

	// Identity list
	for i := range v.summaries {
		line := v.renderSummary(i, &v.summaries[i])
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(v.renderHelp())

	return b.String()
}

// renderSummary renders a single identity line.
func (v *View) renderSummary(index int, s *driving.IdentitySummary) string {
	indicator := "  "
	if index == v.selected {
		indicator = "> "
	}

	// Format: > [source] key  (runs, last run)
	sourceStr := fmt.Sprintf("[%s]", s.Source)
	key := s.Identity

	// Truncate long identity keys
	maxKeyLen := v.width - len(sourceStr) - 30
	if maxKeyLen < 12 {
		maxKeyLen = 12
	}
	if len(key) > maxKeyLen {
		key = key[:maxKeyLen-3] + "..."
	}

	info := fmt.Sprintf("%d runs, last %s", s.Runs, formatEpoch(s.LastTimestamp))

	var line string
	if index == v.selected {
		line = v.styles.Selected.Render(fmt.Sprintf("%s%-12s %s  %s", indicator, sourceStr, key, info))
	} else {
		line = v.styles.Normal.Render(indicator) +
			v.styles.Subtitle.Render(fmt.Sprintf("%-12s ", sourceStr)) +
			v.styles.Normal.Render(key) +
			v.styles.Muted.Render("  "+info)
	}

	return line
}

// renderHelp renders the help footer.
func (v *View) renderHelp() string {
	return v.styles.Help.Render("[enter] runs  [r] reload  [esc] back  [q] quit")
}

// formatEpoch renders a run epoch for display.
func formatEpoch(epoch int64) string {
	if epoch == 0 {
		return "-"
	}
	return time.Unix(epoch, 0).UTC().Format("2006-01-02 15:04")
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Summaries returns the current list of identities.
func (v *View) Summaries() []driving.IdentitySummary {
	return v.summaries
}

// SelectedIndex returns the currently selected identity index.
func (v *View) SelectedIndex() int {
	return v.selected
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}

package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/airbridge/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/airbridge/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/airbridge/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/airbridge/internal/adapters/driving/tui/views/checkpoint"
	"github.com/custodia-labs/airbridge/internal/adapters/driving/tui/views/history"
	"github.com/custodia-labs/airbridge/internal/adapters/driving/tui/views/identities"
	"github.com/custodia-labs/airbridge/internal/adapters/driving/tui/views/menu"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// ctx is the context for cancellation.
	ctx context.Context

	// styles holds the TUI styles.
	styles *styles.Styles

	// keymap holds the keybindings.
	keymap *keymap.KeyMap

	// menuView is the main navigation menu.
	menuView *menu.View

	// identitiesView lists the manifest's identities.
	identitiesView *identities.View

	// historyView lists one identity's runs.
	historyView *history.View

	// checkpointView shows an identity's latest checkpoint.
	checkpointView *checkpoint.View

	// currentView tracks which view is active.
	currentView messages.ViewType

	// err holds the last error that occurred.
	err error

	// width and height are terminal dimensions.
	width  int
	height int

	// ready indicates if the app has initialised.
	ready bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	return &App{
		ports:          ports,
		ctx:            context.Background(),
		styles:         s,
		keymap:         km,
		menuView:       menu.NewView(s),
		identitiesView: identities.NewView(s, ports.Manifest),
		historyView:    history.NewView(s, km, ports.Manifest),
		checkpointView: checkpoint.NewView(s),
		currentView:    messages.ViewMenu, // Start with menu
	}, nil
}

// WithContext sets the context for the app.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model.
// It runs initial commands when the program starts.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tea.SetWindowTitle("airbridge - Run History"),
	)
}

// Update implements tea.Model.
// It handles messages and updates the model state.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		// Forward to all views for proper sizing
		a.menuView.SetDimensions(msg.Width, msg.Height)
		a.identitiesView.SetDimensions(msg.Width, msg.Height)
		a.historyView.SetDimensions(msg.Width, msg.Height)
		a.checkpointView.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		// Global quit with ctrl+c
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}

		// Forward key messages to active view
		switch a.currentView {
		case messages.ViewMenu:
			a.menuView, cmd = a.menuView.Update(msg)
			return a, cmd

		case messages.ViewIdentities:
			// Esc from identities goes to menu
			if msg.Type == tea.KeyEsc {
				a.currentView = messages.ViewMenu
				return a, nil
			}
			if msg.String() == "q" {
				return a, tea.Quit
			}
			a.identitiesView, cmd = a.identitiesView.Update(msg)
			return a, cmd

		case messages.ViewHistory:
			if msg.String() == "q" {
				return a, tea.Quit
			}
			a.historyView, cmd = a.historyView.Update(msg)
			return a, cmd

		case messages.ViewCheckpoint:
			a.checkpointView, cmd = a.checkpointView.Update(msg)
			return a, cmd

		case messages.ViewHelp:
			// Esc from help goes to menu
			if msg.Type == tea.KeyEsc {
				a.currentView = messages.ViewMenu
				return a, nil
			}
			return a, nil
		}
		return a, nil

	case messages.ViewChanged:
		a.currentView = msg.View
		// Initialise views when switching to them
		switch msg.View {
		case messages.ViewIdentities:
			return a, a.identitiesView.Init()
		case messages.ViewMenu, messages.ViewHistory,
			messages.ViewCheckpoint, messages.ViewHelp:
			// Other views don't need special initialisation
		}
		return a, nil

	case messages.IdentitySelected:
		// Navigate from identities to the run history
		a.currentView = messages.ViewHistory
		return a, a.historyView.SetIdentity(msg.Summary)

	case messages.IdentitiesLoaded:
		a.identitiesView, cmd = a.identitiesView.Update(msg)
		return a, cmd

	case messages.HistoryLoaded:
		a.historyView, cmd = a.historyView.Update(msg)
		return a, cmd

	case messages.CheckpointLoaded:
		if msg.Err != nil {
			a.err = msg.Err
			a.historyView, cmd = a.historyView.Update(messages.ErrorOccurred{Err: msg.Err})
			return a, cmd
		}
		a.checkpointView.SetCheckpoint(msg.Identity, msg.Path, msg.Checkpoint)
		a.currentView = messages.ViewCheckpoint
		return a, nil

	case messages.ErrorOccurred:
		a.err = msg.Err
		// Forward to current view
		switch a.currentView {
		case messages.ViewIdentities:
			a.identitiesView, cmd = a.identitiesView.Update(msg)
		case messages.ViewHistory:
			a.historyView, cmd = a.historyView.Update(msg)
		case messages.ViewCheckpoint:
			a.checkpointView, cmd = a.checkpointView.Update(msg)
		case messages.ViewMenu, messages.ViewHelp:
			// Other views don't handle error messages
		}
		return a, cmd

	case messages.Quit:
		return a, tea.Quit
	}

	// Forward other messages to active view
	switch a.currentView {
	case messages.ViewMenu:
		a.menuView, cmd = a.menuView.Update(msg)
	case messages.ViewIdentities:
		a.identitiesView, cmd = a.identitiesView.Update(msg)
	case messages.ViewHistory:
		a.historyView, cmd = a.historyView.Update(msg)
	case messages.ViewCheckpoint:
		a.checkpointView, cmd = a.checkpointView.Update(msg)
	case messages.ViewHelp:
		// Help view doesn't need to handle other messages
	}

	return a, cmd
}

// View implements tea.Model.
// It renders the current view as a string.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	switch a.currentView {
	case messages.ViewMenu:
		return a.menuView.View()
	case messages.ViewIdentities:
		return a.identitiesView.View()
	case messages.ViewHistory:
		return a.historyView.View()
	case messages.ViewCheckpoint:
		return a.checkpointView.View()
	case messages.ViewHelp:
		return a.viewHelp()
	default:
		return a.menuView.View()
	}
}

// viewHelp renders the help view.
func (a *App) viewHelp() string {
	return `Help

Navigation:
  esc         Back
  ctrl+c      Quit

Menu:
  j/k, ↑/↓    Navigate options
  enter       Select option
  q           Quit

Identities:
  j/k, ↑/↓    Navigate identities
  enter       Show run history
  r           Reload
  esc         Back to Menu

Runs:
  j/k, ↑/↓    Navigate runs
  s           Show latest checkpoint
  r           Reload
  esc         Back to Identities

Checkpoint:
  j/k, ↑/↓    Scroll
  g/G         Top/bottom
  esc         Back to Runs

[esc] back to menu`
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions (for testing).
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.menuView.SetDimensions(width, height)
	a.identitiesView.SetDimensions(width, height)
	a.historyView.SetDimensions(width, height)
	a.checkpointView.SetDimensions(width, height)
}

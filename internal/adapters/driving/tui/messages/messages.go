// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/airbridge/internal/core/domain"
	"github.com/custodia-labs/airbridge/internal/core/ports/driving"
)

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewMenu is the main navigation menu.
	ViewMenu ViewType = iota
	// ViewIdentities lists the manifest's identities.
	ViewIdentities
	// ViewHistory lists one identity's runs.
	ViewHistory
	// ViewCheckpoint shows an identity's latest checkpoint document.
	ViewCheckpoint
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewMenu:
		return "menu"
	case ViewIdentities:
		return "identities"
	case ViewHistory:
		return "history"
	case ViewCheckpoint:
		return "checkpoint"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}

// IdentitiesLoaded carries the manifest's identity summaries.
type IdentitiesLoaded struct {
	Summaries []driving.IdentitySummary
	Err       error
}

// IdentitySelected signals an identity was selected for its run history.
type IdentitySelected struct {
	Summary driving.IdentitySummary
}

// HistoryLoaded carries one identity's runs and decoded provenance.
type HistoryLoaded struct {
	Identity string
	Entries  []domain.ManifestEntry
	Decoded  *driving.DecodedIdentity
	Err      error
}

// CheckpointLoaded carries an identity's latest checkpoint document.
type CheckpointLoaded struct {
	Identity   string
	Path       string
	Checkpoint string
	Err        error
}

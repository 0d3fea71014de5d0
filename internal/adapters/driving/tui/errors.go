package tui

import "errors"

// ErrMissingManifestService is returned when the manifest service is not provided.
var ErrMissingManifestService = errors.New("tui: manifest service is required")

// ErrInvalidPorts is returned when ports validation fails.
var ErrInvalidPorts = errors.New("tui: invalid ports configuration")

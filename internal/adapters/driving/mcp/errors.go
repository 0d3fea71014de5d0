// Package mcp provides an MCP (Model Context Protocol) server adapter for Airbridge.
// It enables AI assistants like Claude to inspect connector run history and checkpoints.
package mcp

import "errors"

// ErrMissingManifestService is returned when the manifest service is not provided.
var ErrMissingManifestService = errors.New("mcp: manifest service is required")

// Package file provides the TOML-backed runtime configuration store.
// Configuration is persisted to the airbridge config directory and
// addressed by dot-notation keys ("manifest.path", "scheduler.poll").
package file

// Package pipelines loads the TOML pipelines document and watches it for
// changes so the scheduler can hot-reload without restarting.
package pipelines

// Package manifest provides the file-backed manifest store. The manifest
// is a single JSON document shared by every run on the host, so mutations
// go through a sidecar advisory lock with a bounded acquisition timeout.
package manifest

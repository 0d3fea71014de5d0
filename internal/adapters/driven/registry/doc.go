// Package registry retrieves connector specification and catalog documents
// from http(s) URLs or local paths. Remote fetches are rate limited and
// retried; JSON and YAML bodies both parse.
package registry

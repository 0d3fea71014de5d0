package driven

import "context"

// ConfigFetcher stages pipeline configuration documents to local paths
// before a scheduled run. Implementations resolve s3:// URIs and plain
// local paths.
type ConfigFetcher interface {
	// Fetch copies the document at uri to destPath, creating parent
	// directories as needed.
	Fetch(ctx context.Context, uri, destPath string) error
}

// SpecFetcher retrieves connector specification and catalog documents for
// template generation.
type SpecFetcher interface {
	// FetchSpec retrieves and parses a connector specification document
	// from an http(s) URL or a local path. JSON and YAML bodies are both
	// accepted. Returns domain.ErrSpecInvalid when the document does not
	// parse as either.
	FetchSpec(ctx context.Context, location string) (map[string]any, error)

	// FetchDocument retrieves a document verbatim from an http(s) URL or
	// a local path.
	FetchDocument(ctx context.Context, location string) ([]byte, error)
}

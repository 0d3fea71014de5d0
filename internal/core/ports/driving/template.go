package driving

import "context"

// TemplateService turns connector specification documents into starter
// configuration templates.
type TemplateService interface {
	// GenerateTemplate fetches a connector specification (http(s) URL or
	// local path, JSON or YAML), extracts its connection properties and
	// renders a starter configuration document. The caller writes it out.
	GenerateTemplate(ctx context.Context, specLocation string) (*ConfigTemplate, error)

	// FetchCatalog retrieves a catalog document verbatim, returning its
	// content and conventional file name.
	FetchCatalog(ctx context.Context, location string) ([]byte, string, error)
}

// ConfigTemplate is a rendered starter configuration document.
type ConfigTemplate struct {
	// FileName is the conventional name for the document, derived from
	// the specification title: "<title>-config.json".
	FileName string

	// Document is the rendered JSON template. Required fields hold
	// "required_value", optional ones "optional_value".
	Document []byte
}

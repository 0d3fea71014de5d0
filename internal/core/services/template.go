package services

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/custodia-labs/airbridge/internal/core/domain"
	"github.com/custodia-labs/airbridge/internal/core/ports/driven"
	"github.com/custodia-labs/airbridge/internal/core/ports/driving"
)

// Ensure TemplateService implements the interface.
var _ driving.TemplateService = (*TemplateService)(nil)

// Placeholder values written into generated templates.
const (
	requiredValue = "required_value"
	optionalValue = "optional_value"
)

// TemplateService renders starter configuration documents from connector
// specifications.
type TemplateService struct {
	specs driven.SpecFetcher
}

// NewTemplateService creates a template service.
func NewTemplateService(specs driven.SpecFetcher) *TemplateService {
	return &TemplateService{specs: specs}
}

// GenerateTemplate fetches a connector specification and renders its
// connection properties as a fill-in template.
func (s *TemplateService) GenerateTemplate(ctx context.Context, specLocation string) (*driving.ConfigTemplate, error) {
	spec, err := s.specs.FetchSpec(ctx, specLocation)
	if err != nil {
		return nil, fmt.Errorf("fetch spec: %w", err)
	}

	connSpec, ok := spec["connectionSpecification"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: document has no connectionSpecification object", domain.ErrSpecInvalid)
	}

	fields := extractFields(connSpec, requiredNames(connSpec))
	document, err := json.MarshalIndent(fields, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	title, _ := connSpec["title"].(string)
	if title == "" {
		title = "default"
	}
	return &driving.ConfigTemplate{
		FileName: templateFileName(title),
		Document: document,
	}, nil
}

// FetchCatalog retrieves a catalog document verbatim.
func (s *TemplateService) FetchCatalog(ctx context.Context, location string) ([]byte, string, error) {
	doc, err := s.specs.FetchDocument(ctx, location)
	if err != nil {
		return nil, "", fmt.Errorf("fetch catalog: %w", err)
	}
	return doc, path.Base(location), nil
}

// extractFields walks a connection specification's properties, marking each
// leaf required or optional. Nested property objects recurse with their own
// required list; oneOf alternatives merge into a single object, checked
// against the enclosing required list.
func extractFields(data map[string]any, required []string) map[string]any {
	fields := make(map[string]any)
	properties, _ := data["properties"].(map[string]any)
	for name, raw := range properties {
		attrs, ok := raw.(map[string]any)
		if !ok {
			fields[name] = leafValue(name, required)
			continue
		}
		switch {
		case attrs["properties"] != nil:
			fields[name] = extractFields(attrs, requiredNames(attrs))
		case attrs["oneOf"] != nil:
			merged := make(map[string]any)
			options, _ := attrs["oneOf"].([]any)
			for _, option := range options {
				opt, ok := option.(map[string]any)
				if !ok {
					continue
				}
				props, _ := opt["properties"].(map[string]any)
				for k, v := range props {
					merged[k] = v
				}
			}
			fields[name] = extractFields(map[string]any{"properties": merged}, required)
		default:
			fields[name] = leafValue(name, required)
		}
	}
	return fields
}

// requiredNames reads an object's required list, tolerating non-string
// entries in sloppy specs.
func requiredNames(data map[string]any) []string {
	raw, _ := data["required"].([]any)
	names := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			names = append(names, s)
		}
	}
	return names
}

func leafValue(name string, required []string) string {
	for _, r := range required {
		if r == name {
			return requiredValue
		}
	}
	return optionalValue
}

// templateFileName derives the conventional template name from the
// specification title.
func templateFileName(title string) string {
	return strings.ReplaceAll(strings.ToLower(title), " ", "-") + "-config.json"
}

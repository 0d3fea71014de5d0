package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for Airbridge resources.
	uriScheme = "airbridge://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for listing identities.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "identities",
		Name:        "identities",
		Description: "List of all identities recorded in the run manifest",
		MIMEType:    "application/json",
	}, s.handleIdentitiesResource)

	// Template for an identity's run history.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "identities/{identity}/runs",
		Name:        "identity-runs",
		Description: "Recorded runs for a specific identity",
		MIMEType:    "application/json",
	}, s.handleRunsResource)

	// Template for an identity's latest checkpoint.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "identities/{identity}/state",
		Name:        "identity-state",
		Description: "Latest checkpoint recorded for a specific identity",
		MIMEType:    "application/json",
	}, s.handleStateResource)
}

// handleIdentitiesResource returns a list of all recorded identities.
func (s *Server) handleIdentitiesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	summaries, err := s.ports.Manifest.Identities(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing identities: %w", err)
	}

	// Build simplified identity list.
	type identityInfo struct {
		Identity      string `json:"identity"`
		Source        string `json:"source"`
		Runs          int    `json:"runs"`
		LastTimestamp int64  `json:"last_timestamp"`
	}

	infos := make([]identityInfo, len(summaries))
	for i, sum := range summaries {
		infos[i] = identityInfo{
			Identity:      sum.Identity,
			Source:        sum.Source,
			Runs:          sum.Runs,
			LastTimestamp: sum.LastTimestamp,
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling identities: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleRunsResource returns the run history for a specific identity.
func (s *Server) handleRunsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	// Extract identity from URI: airbridge://identities/{identity}/runs
	identity := extractRunsIdentity(req.Params.URI)
	if identity == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	entries, err := s.ports.Manifest.History(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	runs := make([]RunOutput, len(entries))
	for i := range entries {
		runs[i] = runOutput(entries[i])
	}

	data, err := json.MarshalIndent(runs, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling runs: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleStateResource returns the latest checkpoint for a specific identity.
func (s *Server) handleStateResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	// Extract identity from URI: airbridge://identities/{identity}/state
	identity := extractStateIdentity(req.Params.URI)
	if identity == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	state, _, err := s.ports.Manifest.LatestState(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("loading checkpoint: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(state.JSON()),
		}},
	}, nil
}

// extractRunsIdentity extracts the identity key from a URI like
// airbridge://identities/{identity}/runs. Identity keys are base64 and may
// themselves contain slashes, so only the fixed prefix and suffix are peeled.
func extractRunsIdentity(uri string) string {
	const prefix = uriScheme + "identities/"
	const suffix = "/runs"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	uri = strings.TrimPrefix(uri, prefix)
	if !strings.HasSuffix(uri, suffix) {
		return ""
	}

	return strings.TrimSuffix(uri, suffix)
}

// extractStateIdentity extracts the identity key from a URI like
// airbridge://identities/{identity}/state.
func extractStateIdentity(uri string) string {
	const prefix = uriScheme + "identities/"
	const suffix = "/state"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	uri = strings.TrimPrefix(uri, prefix)
	if !strings.HasSuffix(uri, suffix) {
		return ""
	}

	return strings.TrimSuffix(uri, suffix)
}

package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/airbridge/internal/core/domain"
)

// ListRunsInput is the input schema for the list_runs tool.
type ListRunsInput struct {
	Identity string `json:"identity" jsonschema:"the identity key whose runs to list"`
	Limit    int    `json:"limit,omitempty" jsonschema:"maximum number of runs to return, most recent last (default 20)"`
}

// ListRunsOutput is the output schema for the list_runs tool.
type ListRunsOutput struct {
	Runs  []RunOutput `json:"runs"`
	Count int         `json:"count"`
}

// RunOutput represents a single recorded run.
type RunOutput struct {
	JobID         string `json:"jobid"`
	Source        string `json:"source"`
	DataFile      string `json:"data_file,omitempty"`
	StateFilePath string `json:"state_file_path,omitempty"`
	Timestamp     int64  `json:"timestamp"`
	ModifiedAt    int64  `json:"modified_at,omitempty"`
}

// LatestRunInput is the input schema for the latest_run tool.
type LatestRunInput struct {
	Identity string `json:"identity" jsonschema:"the identity key to inspect"`
}

// LatestRunOutput is the output schema for the latest_run tool.
type LatestRunOutput struct {
	Run RunOutput `json:"run"`
}

// DecodeIdentityInput is the input schema for the decode_identity tool.
type DecodeIdentityInput struct {
	Key string `json:"key" jsonschema:"the identity key to decode"`
}

// DecodeIdentityOutput is the output schema for the decode_identity tool.
type DecodeIdentityOutput struct {
	IsJobID     bool   `json:"is_jobid"`
	Plain       string `json:"plain,omitempty"`
	OutputPath  string `json:"output_path,omitempty"`
	SourceImage string `json:"source_image,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_runs",
		Description: "List the recorded runs for an identity, oldest first",
	}, s.handleListRuns)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "latest_run",
		Description: "Fetch the most recently recorded run for an identity",
	}, s.handleLatestRun)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "decode_identity",
		Description: "Decode an identity key back into its output path and source image",
	}, s.handleDecodeIdentity)
}

// handleListRuns handles the list_runs tool invocation.
func (s *Server) handleListRuns(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListRunsInput,
) (*mcp.CallToolResult, ListRunsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	entries, err := s.ports.Manifest.History(ctx, input.Identity)
	if err != nil {
		return nil, ListRunsOutput{}, err
	}

	// Entries append in run order, so keep the tail when trimming.
	if len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}

	output := ListRunsOutput{
		Runs:  make([]RunOutput, len(entries)),
		Count: len(entries),
	}

	for i := range entries {
		output.Runs[i] = runOutput(entries[i])
	}

	return nil, output, nil
}

// handleLatestRun handles the latest_run tool invocation.
func (s *Server) handleLatestRun(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input LatestRunInput,
) (*mcp.CallToolResult, LatestRunOutput, error) {
	entry, err := s.ports.Manifest.Latest(ctx, input.Identity)
	if err != nil {
		return nil, LatestRunOutput{}, err
	}

	return nil, LatestRunOutput{Run: runOutput(*entry)}, nil
}

// handleDecodeIdentity handles the decode_identity tool invocation.
func (s *Server) handleDecodeIdentity(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input DecodeIdentityInput,
) (*mcp.CallToolResult, DecodeIdentityOutput, error) {
	decoded, err := s.ports.Manifest.Decode(input.Key)
	if err != nil {
		return nil, DecodeIdentityOutput{}, err
	}

	return nil, DecodeIdentityOutput{
		IsJobID:     decoded.IsJobID,
		Plain:       decoded.Plain,
		OutputPath:  decoded.OutputPath,
		SourceImage: decoded.SourceImage,
	}, nil
}

func runOutput(entry domain.ManifestEntry) RunOutput {
	return RunOutput{
		JobID:         entry.JobID,
		Source:        entry.Source,
		DataFile:      entry.DataFile,
		StateFilePath: entry.StateFilePath,
		Timestamp:     entry.Timestamp,
		ModifiedAt:    entry.ModifiedAt,
	}
}

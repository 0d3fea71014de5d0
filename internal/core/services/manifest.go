package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/custodia-labs/airbridge/internal/core/domain"
	"github.com/custodia-labs/airbridge/internal/core/ports/driven"
	"github.com/custodia-labs/airbridge/internal/core/ports/driving"
	"github.com/custodia-labs/airbridge/internal/logger"
)

// Ensure ManifestService implements the interface.
var _ driving.ManifestService = (*ManifestService)(nil)

// ManifestService exposes the run history for operators.
type ManifestService struct {
	store     driven.ManifestStore
	states    driven.StateStore
	workspace driven.Workspace

	now func() time.Time
}

// NewManifestService creates a manifest service.
func NewManifestService(store driven.ManifestStore, states driven.StateStore, workspace driven.Workspace) *ManifestService {
	return &ManifestService{
		store:     store,
		states:    states,
		workspace: workspace,
		now:       time.Now,
	}
}

// Identities summarises every known identity, sorted by key.
func (s *ManifestService) Identities(ctx context.Context) ([]driving.IdentitySummary, error) {
	manifest, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot manifest: %w", err)
	}

	summaries := make([]driving.IdentitySummary, 0, len(manifest))
	for _, identity := range manifest.Identities() {
		latest, ok := manifest.Latest(identity)
		if !ok {
			continue
		}
		summaries = append(summaries, driving.IdentitySummary{
			Identity:      identity,
			Source:        latest.Source,
			Runs:          len(manifest[identity]),
			LastTimestamp: latest.Timestamp,
		})
	}
	return summaries, nil
}

// History returns an identity's entries in append order.
func (s *ManifestService) History(ctx context.Context, identity string) ([]domain.ManifestEntry, error) {
	return s.store.Entries(ctx, identity)
}

// Latest returns an identity's most recent entry.
func (s *ManifestService) Latest(ctx context.Context, identity string) (*domain.ManifestEntry, error) {
	return s.store.Latest(ctx, identity)
}

// Decode reverses an identity key into its provenance pair. A key that does
// not decode as a base64 pair is a caller-supplied job id.
func (s *ManifestService) Decode(key string) (*driving.DecodedIdentity, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: empty identity key", domain.ErrConfigInvalid)
	}

	plain, err := domain.DecodeKey(key)
	if err != nil {
		return &driving.DecodedIdentity{IsJobID: true}, nil
	}
	outputPath, sourceImage, ok := domain.SplitIdentity(plain)
	if !ok {
		// Decodes but carries no pair: a job id that happens to be
		// valid base64.
		return &driving.DecodedIdentity{IsJobID: true}, nil
	}
	return &driving.DecodedIdentity{
		Plain:       plain,
		OutputPath:  outputPath,
		SourceImage: sourceImage,
	}, nil
}

// LatestState loads the checkpoint the identity's latest entry points at.
func (s *ManifestService) LatestState(ctx context.Context, identity string) (domain.StateDocument, string, error) {
	entry, err := s.store.Latest(ctx, identity)
	if err != nil {
		return domain.StateDocument{}, "", err
	}
	if entry.StateFilePath == "" {
		return domain.StateDocument{}, "", fmt.Errorf("identity %s has no recorded checkpoint: %w", identity, domain.ErrNotFound)
	}
	doc, err := s.states.Load(entry.StateFilePath)
	if err != nil {
		return domain.StateDocument{}, "", err
	}
	return doc, entry.StateFilePath, nil
}

// Rebuild walks an output tree for captured data files and appends entries
// for captures the manifest does not record, re-extracting checkpoints
// where the state file is missing. Existing entries are never touched.
func (s *ManifestService) Rebuild(ctx context.Context, req driving.RebuildRequest) (*driving.RebuildResult, error) {
	if req.OutputBase == "" {
		return nil, fmt.Errorf("%w: output base is required", domain.ErrConfigInvalid)
	}
	if req.SourceImage == "" {
		return nil, fmt.Errorf("%w: source image is required", domain.ErrConfigInvalid)
	}

	cfg := domain.RunConfig{
		OutputBasePath: req.OutputBase,
		SourceImage:    req.SourceImage,
		JobID:          req.JobID,
	}
	identity := domain.DeriveKey(cfg)
	result := &driving.RebuildResult{Identity: identity}

	dataFiles, err := s.workspace.FindDataFiles(filepath.Join(req.OutputBase, cfg.SourceDirName()))
	if err != nil {
		return nil, fmt.Errorf("find data files: %w", err)
	}
	// History must stay chronological, so captures append in epoch order.
	sort.Slice(dataFiles, func(i, j int) bool { return dataFiles[i].Epoch < dataFiles[j].Epoch })

	recorded := make(map[string]bool)
	entries, err := s.store.Entries(ctx, identity)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("manifest entries: %w", err)
	}
	for _, e := range entries {
		if e.DataFile != "" {
			recorded[e.DataFile] = true
		}
	}

	for _, df := range dataFiles {
		if recorded[df.Path] {
			result.Skipped++
			continue
		}

		statePath, wrote, err := s.ensureStateFor(df)
		if err != nil {
			return nil, err
		}
		if wrote {
			result.StatesWritten++
		}

		jobID := req.JobID
		if jobID == "" {
			jobID = domain.GenerateJobID(df.Epoch)
		}
		entry := domain.ManifestEntry{
			JobID:         jobID,
			Source:        cfg.ManifestSourceName(),
			DataFile:      df.Path,
			StateFilePath: statePath,
			Timestamp:     df.Epoch,
			ModifiedAt:    s.now().Unix(),
		}
		if err := s.store.Append(ctx, identity, entry); err != nil {
			return nil, fmt.Errorf("append entry for %s: %w", df.Path, err)
		}
		result.Appended++
		logger.Debug("recorded capture %s", df.Path)
	}

	return result, nil
}

// ensureStateFor returns the checkpoint path for a capture, re-extracting
// it from the data file when no state file sits beside it. Captures with no
// STATE lines get an empty path, as a live run without state would.
func (s *ManifestService) ensureStateFor(df driven.DataFile) (string, bool, error) {
	statePath := filepath.Join(filepath.Dir(df.Path), "state.json")
	if _, err := s.states.Load(statePath); err == nil {
		return statePath, false, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return "", false, fmt.Errorf("state for %s: %w", df.Path, err)
	}

	doc, ok, err := s.states.ExtractState(df.Path)
	if err != nil {
		return "", false, fmt.Errorf("extract state from %s: %w", df.Path, err)
	}
	if !ok {
		return "", false, nil
	}
	written, err := s.states.Persist(filepath.Dir(df.Path), doc)
	if err != nil {
		return "", false, fmt.Errorf("persist state for %s: %w", df.Path, err)
	}
	return written, true, nil
}

package domain

import (
	"fmt"
	"time"
)

// Pipeline is one scheduled source-to-destination replication, loaded from
// the pipelines document.
type Pipeline struct {
	// ID is the unique identifier for the pipeline. It doubles as the
	// run's job id, so all of a pipeline's runs share one manifest
	// identity.
	ID string

	// Name is a human-readable name for the pipeline.
	Name string

	// SourceImage is the source connector image to run.
	SourceImage string

	// DestinationImage is the destination connector image. Empty for
	// capture-only pipelines.
	DestinationImage string

	// Schedule is a cron expression describing when the pipeline is due.
	Schedule string

	// Enabled indicates whether the scheduler considers this pipeline.
	Enabled bool

	// ConfigDocs maps document names (source, destination, catalog) to
	// their locations: local paths or s3:// URIs fetched before the run.
	ConfigDocs map[string]string
}

// Validate checks the structural constraints of the pipeline.
func (p *Pipeline) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("%w: pipeline id is required", ErrConfigInvalid)
	}
	if p.SourceImage == "" {
		return fmt.Errorf("%w: pipeline %s: source image is required", ErrConfigInvalid, p.ID)
	}
	if p.Schedule == "" {
		return fmt.Errorf("%w: pipeline %s: schedule is required", ErrConfigInvalid, p.ID)
	}
	if p.ConfigDocs["source"] == "" {
		return fmt.Errorf("%w: pipeline %s: source config document is required", ErrConfigInvalid, p.ID)
	}
	if p.ConfigDocs["catalog"] == "" {
		return fmt.Errorf("%w: pipeline %s: catalog document is required", ErrConfigInvalid, p.ID)
	}
	if p.DestinationImage != "" && p.ConfigDocs["destination"] == "" {
		return fmt.Errorf("%w: pipeline %s: destination config document is required", ErrConfigInvalid, p.ID)
	}
	return nil
}

// PipelineDirs holds the directories the scheduler works under.
type PipelineDirs struct {
	// Configs is where fetched pipeline config documents are staged,
	// one subdirectory per pipeline id.
	Configs string

	// Output is the base for run artifacts, one subdirectory per
	// pipeline id.
	Output string
}

// PipelineSet is the parsed pipelines document.
type PipelineSet struct {
	Dirs      PipelineDirs
	Pipelines []Pipeline
}

// Validate checks the document and every pipeline in it.
func (s *PipelineSet) Validate() error {
	if s.Dirs.Configs == "" {
		return fmt.Errorf("%w: configs directory is required", ErrConfigInvalid)
	}
	if s.Dirs.Output == "" {
		return fmt.Errorf("%w: output directory is required", ErrConfigInvalid)
	}
	seen := make(map[string]bool, len(s.Pipelines))
	for i := range s.Pipelines {
		p := &s.Pipelines[i]
		if err := p.Validate(); err != nil {
			return err
		}
		if seen[p.ID] {
			return fmt.Errorf("%w: duplicate pipeline id %s", ErrConfigInvalid, p.ID)
		}
		seen[p.ID] = true
	}
	return nil
}

// PipelineRun records the outcome of one scheduled pipeline execution.
type PipelineRun struct {
	// PipelineID identifies which pipeline ran.
	PipelineID string

	// StartedAt is when the run started.
	StartedAt time.Time

	// EndedAt is when the run completed.
	EndedAt time.Time

	// Success indicates whether the run completed without error.
	Success bool

	// Error contains the error message if Success is false.
	Error string

	// Records is the number of records the run captured.
	Records int
}

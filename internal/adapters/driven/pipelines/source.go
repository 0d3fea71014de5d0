package pipelines

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/airbridge/internal/core/domain"
	"github.com/custodia-labs/airbridge/internal/core/ports/driven"
	"github.com/custodia-labs/airbridge/internal/logger"
)

// Ensure Source implements the interface.
var _ driven.PipelineSource = (*Source)(nil)

// debounceDelay coalesces editor save bursts into one change signal.
const debounceDelay = 250 * time.Millisecond

// document is the on-disk TOML shape.
type document struct {
	Dirs      dirsSection       `toml:"dirs"`
	Pipelines []pipelineSection `toml:"pipelines"`
}

type dirsSection struct {
	Configs string `toml:"configs"`
	Output  string `toml:"output"`
}

type pipelineSection struct {
	ID               string            `toml:"id"`
	Name             string            `toml:"name"`
	SourceImage      string            `toml:"source_image"`
	DestinationImage string            `toml:"destination_image"`
	Schedule         string            `toml:"schedule"`
	Enabled          *bool             `toml:"enabled"`
	ConfigDocs       map[string]string `toml:"configs"`
}

// Source reads pipeline definitions from a TOML document.
type Source struct{}

// NewSource creates a pipeline source.
func NewSource() *Source {
	return &Source{}
}

// Load parses and validates the pipelines document at path.
func (s *Source) Load(path string) (*domain.PipelineSet, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("pipelines document %s: %w", path, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read pipelines document: %w", err)
	}

	var doc document
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parse pipelines document: %v", domain.ErrConfigInvalid, err)
	}

	set := &domain.PipelineSet{
		Dirs: domain.PipelineDirs{
			Configs: doc.Dirs.Configs,
			Output:  doc.Dirs.Output,
		},
		Pipelines: make([]domain.Pipeline, 0, len(doc.Pipelines)),
	}
	for _, p := range doc.Pipelines {
		// Pipelines are enabled unless the document says otherwise.
		enabled := p.Enabled == nil || *p.Enabled
		set.Pipelines = append(set.Pipelines, domain.Pipeline{
			ID:               p.ID,
			Name:             p.Name,
			SourceImage:      p.SourceImage,
			DestinationImage: p.DestinationImage,
			Schedule:         p.Schedule,
			Enabled:          enabled,
			ConfigDocs:       p.ConfigDocs,
		})
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}
	return set, nil
}

// Watch emits on the returned channel whenever the document changes on
// disk. The parent directory is watched rather than the file itself:
// editors and deploy tools replace files by rename, which would silently
// drop a watch on the file.
func (s *Source) Watch(ctx context.Context, path string) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	changes := make(chan struct{}, 1)
	go func() {
		defer close(changes)
		defer watcher.Close()

		base := filepath.Base(path)
		debounce := time.NewTimer(debounceDelay)
		if !debounce.Stop() {
			<-debounce.C
		}
		defer debounce.Stop()
		pending := false

		for {
			select {
			case <-ctx.Done():
				return

			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != base {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
					continue
				}
				if pending && !debounce.Stop() {
					<-debounce.C
				}
				debounce.Reset(debounceDelay)
				pending = true

			case <-debounce.C:
				pending = false
				select {
				case changes <- struct{}{}:
				default:
					// A signal is already queued; the reload it triggers
					// will read the latest document anyway.
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("pipelines watcher: %v", err)
			}
		}
	}()
	return changes, nil
}

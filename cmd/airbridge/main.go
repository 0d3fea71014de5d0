// Command airbridge runs Airbyte connector pipelines and records their
// history. main wires the driven adapters into the core services, injects
// them into the cobra command tree and hands over control.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/airbridge/internal/adapters/driven/artifacts"
	"github.com/custodia-labs/airbridge/internal/adapters/driven/config/file"
	"github.com/custodia-labs/airbridge/internal/adapters/driven/docker"
	"github.com/custodia-labs/airbridge/internal/adapters/driven/manifest"
	"github.com/custodia-labs/airbridge/internal/adapters/driven/pipelines"
	"github.com/custodia-labs/airbridge/internal/adapters/driven/registry"
	"github.com/custodia-labs/airbridge/internal/adapters/driven/remote"
	"github.com/custodia-labs/airbridge/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/airbridge/internal/adapters/driven/system"
	"github.com/custodia-labs/airbridge/internal/adapters/driving/cli"
	"github.com/custodia-labs/airbridge/internal/core/domain"
	"github.com/custodia-labs/airbridge/internal/core/ports/driven"
	"github.com/custodia-labs/airbridge/internal/core/ports/driving"
	"github.com/custodia-labs/airbridge/internal/core/services"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := file.NewConfigStore("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: load runtime configuration: %v\n", err)
		return 1
	}

	manifestPath := cfg.GetString("manifest.path")
	if manifestPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: resolve home directory: %v\n", err)
			return 1
		}
		manifestPath = filepath.Join(home, ".airbridge", "manifest.json")
	}

	manifestStore, err := manifest.NewStore(manifestPath, cfg.GetDuration("manifest.lock_timeout"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: open manifest store: %v\n", err)
		return 1
	}

	schedStore, err := sqlite.NewStore(cfg.GetString("paths.data"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: open scheduler store: %v\n", err)
		return 1
	}
	defer schedStore.Close() //nolint:errcheck

	runtime := docker.NewClient(
		cfg.GetString("docker.binary"),
		cfg.GetStringSlice("docker.extra_args"),
	)
	states := artifacts.NewStateStore()
	workspace := artifacts.NewWorkspace()
	resolver := services.NewStateResolver(manifestStore, states)

	orchestrator := services.NewRunOrchestrator(
		runtime, runtime, runtime, manifestStore, states, workspace, resolver)

	probe := system.NewProbe(system.Config{
		Threshold: float64(cfg.GetInt("scheduler.busy_threshold")),
	})
	fetcher := remote.NewFetcher(remote.Config{
		Endpoint:  cfg.GetString("s3.endpoint"),
		AccessKey: cfg.GetString("s3.access_key"),
		SecretKey: cfg.GetString("s3.secret_key"),
		Region:    cfg.GetString("s3.region"),
	})

	cli.SetVersion(version)
	cli.SetRuntimeConfig(cfg)
	cli.SetRuntimeConfigLoader(func(path string) (driven.ConfigStore, error) {
		store, err := file.OpenConfigStore(path)
		if err != nil {
			return nil, err
		}
		return store, nil
	})
	cli.SetRunOrchestrator(orchestrator)
	cli.SetRedeliveryService(services.NewRedeliveryService(runtime, runtime, manifestStore))
	cli.SetManifestService(services.NewManifestService(manifestStore, states, workspace))
	cli.SetTemplateService(services.NewTemplateService(registry.NewFetcher(registry.Config{})))
	cli.SetSchedulerFactory(func(sc domain.SchedulerConfig) driving.Scheduler {
		return services.NewPipelineScheduler(
			sc, pipelines.NewSource(), schedStore.SchedulerStore(), probe, fetcher, orchestrator)
	})

	if err := cli.Execute(); err != nil {
		// cobra already printed the error.
		return 1
	}
	return 0
}

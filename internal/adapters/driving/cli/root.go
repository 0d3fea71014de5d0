// Package cli provides the cobra command tree for airbridge. Commands are
// thin driving adapters: they parse flags, call services through driving
// ports and print results. Services are injected from main through the
// package-level setters before Execute runs.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/airbridge/internal/core/domain"
	"github.com/custodia-labs/airbridge/internal/core/ports/driven"
	"github.com/custodia-labs/airbridge/internal/core/ports/driving"
	"github.com/custodia-labs/airbridge/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// Services injected from main. Commands check for nil and fail with a
// clear message instead of panicking when wiring is incomplete.
var (
	runOrchestrator   driving.RunOrchestrator
	redeliveryService driving.Redeliverer
	manifestService   driving.ManifestService
	templateService   driving.TemplateService
	schedulerFactory  func(domain.SchedulerConfig) driving.Scheduler
	runtimeConfig     driven.ConfigStore
	loadRuntimeConfig func(path string) (driven.ConfigStore, error)
	verboseFlag       bool
)

var rootCmd = &cobra.Command{
	Use:   "airbridge",
	Short: "Run Airbyte connector pipelines and track their history",
	Long: `Airbridge drives data replication between Airbyte connectors.

It runs a source connector to capture records and a checkpoint, optionally
feeds the capture to a destination connector, and records every run in an
append-only manifest keyed by a stable identity so the next run resumes
incrementally.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verboseFlag)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false,
		"enable verbose output")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string displayed by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// SetRunOrchestrator injects the run orchestrator.
func SetRunOrchestrator(svc driving.RunOrchestrator) {
	runOrchestrator = svc
}

// SetRedeliveryService injects the redelivery service.
func SetRedeliveryService(svc driving.Redeliverer) {
	redeliveryService = svc
}

// SetManifestService injects the manifest service.
func SetManifestService(svc driving.ManifestService) {
	manifestService = svc
}

// SetTemplateService injects the template service.
func SetTemplateService(svc driving.TemplateService) {
	templateService = svc
}

// SetSchedulerFactory injects the scheduler constructor. The scheduler is
// built per invocation because its configuration comes from flags.
func SetSchedulerFactory(f func(domain.SchedulerConfig) driving.Scheduler) {
	schedulerFactory = f
}

// SetRuntimeConfig injects the runtime configuration store that supplies
// flag defaults.
func SetRuntimeConfig(store driven.ConfigStore) {
	runtimeConfig = store
}

// SetRuntimeConfigLoader injects the loader used when a command names an
// alternate runtime configuration file with --runtime-config.
func SetRuntimeConfigLoader(f func(path string) (driven.ConfigStore, error)) {
	loadRuntimeConfig = f
}

// configString returns a runtime configuration value from the given store,
// falling back to the injected default store.
func configString(store driven.ConfigStore, key string) string {
	if store != nil {
		if v := store.GetString(key); v != "" {
			return v
		}
	}
	if runtimeConfig != nil && store != runtimeConfig {
		return runtimeConfig.GetString(key)
	}
	return ""
}

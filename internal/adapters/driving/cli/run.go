package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/airbridge/internal/core/domain"
	"github.com/custodia-labs/airbridge/internal/core/ports/driven"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a source connector and optionally deliver the capture",
	Long: `Runs one synchronisation: the source connector captures records and a
checkpoint under the output directory, the capture is optionally fed to a
destination connector, and the run is recorded in the manifest.

Flags left unset fall back to the runtime configuration file, so recurring
runs only need the flags that change.`,
	RunE: runRun,
}

var (
	runSourceImage    string
	runDestImage      string
	runSourceConfig   string
	runDestConfig     string
	runCatalog        string
	runOutput         string
	runStatePath      string
	runJobID          string
	runConfigFile     string
	runRecordFailures bool
)

func init() {
	runCmd.Flags().StringVarP(&runSourceImage, "src-image", "i", "",
		"source connector Docker image")
	runCmd.Flags().StringVarP(&runDestImage, "dst-image", "w", "",
		"destination connector Docker image")
	runCmd.Flags().StringVarP(&runSourceConfig, "src-config", "s", "",
		"source connector configuration file")
	runCmd.Flags().StringVarP(&runDestConfig, "dst-config", "d", "",
		"destination connector configuration file")
	runCmd.Flags().StringVarP(&runCatalog, "catalog", "c", "",
		"configured catalog file")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "",
		"output directory for run artifacts")
	runCmd.Flags().StringVarP(&runStatePath, "state", "t", "",
		"prior state file (defaults to the identity's latest checkpoint)")
	runCmd.Flags().StringVarP(&runJobID, "job", "j", "",
		"job id naming the run's identity (generated when omitted)")
	runCmd.Flags().StringVarP(&runConfigFile, "runtime-config", "r", "",
		"alternate runtime configuration file")
	runCmd.Flags().BoolVar(&runRecordFailures, "record-failures", false,
		"append a manifest entry even when the source phase fails")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	if runOrchestrator == nil {
		return errors.New("run orchestrator not configured")
	}

	store, err := resolveRuntimeConfig(runConfigFile)
	if err != nil {
		return err
	}

	cfg := domain.RunConfig{
		SourceImage:           fallback(runSourceImage, store, "images.source"),
		DestinationImage:      fallback(runDestImage, store, "images.destination"),
		SourceConfigPath:      fallback(runSourceConfig, store, "paths.source_config"),
		DestinationConfigPath: fallback(runDestConfig, store, "paths.destination_config"),
		CatalogPath:           fallback(runCatalog, store, "paths.catalog"),
		OutputBasePath:        fallback(runOutput, store, "paths.output"),
		StatePath:             runStatePath,
		JobID:                 runJobID,
		RecordFailures:        runRecordFailures,
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	cmd.Printf("Running %s...\n", cfg.SourceImage)
	result, err := runWithProgress(ctx, cmd, cfg)
	if result != nil {
		printRunResult(cmd, result)
	}
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}
	return nil
}

// runWithProgress drives the run while showing capture progress on TTYs.
func runWithProgress(ctx context.Context, cmd *cobra.Command, cfg domain.RunConfig) (*domain.RunResult, error) {
	type outcome struct {
		result *domain.RunResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := runOrchestrator.Run(ctx, cfg)
		done <- outcome{result, err}
	}()

	// Progress rewrites the current line, so only TTYs get it.
	interactive := term.IsTerminal(int(os.Stdout.Fd()))
	identity := domain.DeriveKey(cfg)

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	lastCount := -1
	for {
		select {
		case o := <-done:
			if interactive && lastCount > 0 {
				cmd.Printf("\r%-40s\n", fmt.Sprintf("Captured %d records", lastCount))
			}
			return o.result, o.err
		case <-ticker.C:
			if !interactive {
				continue
			}
			status, err := runOrchestrator.Status(ctx, identity)
			if err != nil || status == nil || !status.Running {
				continue
			}
			if status.Records != lastCount {
				cmd.Printf("\r%s: %d records", status.Phase, status.Records)
				lastCount = status.Records
			}
		}
	}
}

// printRunResult summarises the run for the operator.
func printRunResult(cmd *cobra.Command, result *domain.RunResult) {
	cmd.Printf("Phase:    %s\n", result.Phase)
	cmd.Printf("Identity: %s\n", result.Identity)
	cmd.Printf("Job:      %s\n", result.JobID)
	if result.DataFile != "" {
		cmd.Printf("Data:     %s (%d records)\n", result.DataFile, result.Records)
	}
	if result.StateFile != "" {
		cmd.Printf("State:    %s\n", result.StateFile)
	}
	if result.MalformedLines > 0 {
		cmd.Printf("Skipped:  %d malformed lines\n", result.MalformedLines)
	}
}

// resolveRuntimeConfig returns the configuration store backing flag
// defaults: the file named by --runtime-config when given, otherwise the
// store injected from main.
func resolveRuntimeConfig(path string) (driven.ConfigStore, error) {
	if path == "" {
		return runtimeConfig, nil
	}
	if loadRuntimeConfig == nil {
		return nil, errors.New("runtime config loader not configured")
	}
	store, err := loadRuntimeConfig(path)
	if err != nil {
		return nil, fmt.Errorf("load runtime config %s: %w", path, err)
	}
	return store, nil
}

// fallback returns the flag value, or the configured default when the flag
// was not set.
func fallback(flagValue string, store driven.ConfigStore, key string) string {
	if flagValue != "" {
		return flagValue
	}
	return configString(store, key)
}

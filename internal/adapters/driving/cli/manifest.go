package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/airbridge/internal/core/domain"
	"github.com/custodia-labs/airbridge/internal/core/ports/driving"
)

var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Inspect the run history manifest",
	Long: `The manifest is the append-only history of runs, keyed by identity.
Use subcommands to list identities, inspect an identity's runs, decode an
identity key back to its provenance, or rebuild entries from an output tree.`,
	RunE: runManifestList,
}

var manifestListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known identities",
	RunE:  runManifestList,
}

var manifestHistoryCmd = &cobra.Command{
	Use:   "history <identity>",
	Short: "Show an identity's runs in append order",
	Args:  cobra.ExactArgs(1),
	RunE:  runManifestHistory,
}

var manifestLatestCmd = &cobra.Command{
	Use:   "latest <identity>",
	Short: "Show an identity's most recent run",
	Args:  cobra.ExactArgs(1),
	RunE:  runManifestLatest,
}

var manifestDecodeCmd = &cobra.Command{
	Use:   "decode <identity>",
	Short: "Decode an identity key back to its output path and source image",
	Args:  cobra.ExactArgs(1),
	RunE:  runManifestDecode,
}

var manifestRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild manifest entries from captured data files",
	Long: `Walks an output tree for captured data files and appends manifest
entries for captures the manifest does not record. State files are
re-extracted from the captured stream where they are missing. Existing
entries are never modified.`,
	RunE: runManifestRebuild,
}

var (
	rebuildOutput      string
	rebuildSourceImage string
	rebuildJobID       string
)

func init() {
	manifestRebuildCmd.Flags().StringVarP(&rebuildOutput, "output", "o", "",
		"output tree to walk")
	manifestRebuildCmd.Flags().StringVarP(&rebuildSourceImage, "src-image", "i", "",
		"source connector image the captures belong to")
	manifestRebuildCmd.Flags().StringVarP(&rebuildJobID, "job", "j", "",
		"job id naming the identity (derived from output and image when omitted)")

	manifestCmd.AddCommand(manifestListCmd)
	manifestCmd.AddCommand(manifestHistoryCmd)
	manifestCmd.AddCommand(manifestLatestCmd)
	manifestCmd.AddCommand(manifestDecodeCmd)
	manifestCmd.AddCommand(manifestRebuildCmd)
	rootCmd.AddCommand(manifestCmd)
}

func runManifestList(cmd *cobra.Command, _ []string) error {
	if manifestService == nil {
		return errors.New("manifest service not configured")
	}

	summaries, err := manifestService.Identities(cmd.Context())
	if err != nil {
		return fmt.Errorf("list identities: %w", err)
	}
	if len(summaries) == 0 {
		cmd.Println("No runs recorded.")
		return nil
	}

	for _, s := range summaries {
		cmd.Printf("%s\n", s.Identity)
		cmd.Printf("  source: %s  runs: %d  last: %s\n",
			s.Source, s.Runs, formatEpoch(s.LastTimestamp))
	}
	return nil
}

func runManifestHistory(cmd *cobra.Command, args []string) error {
	if manifestService == nil {
		return errors.New("manifest service not configured")
	}

	entries, err := manifestService.History(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("manifest history: %w", err)
	}

	for i := range entries {
		printEntry(cmd, &entries[i])
	}
	return nil
}

func runManifestLatest(cmd *cobra.Command, args []string) error {
	if manifestService == nil {
		return errors.New("manifest service not configured")
	}

	entry, err := manifestService.Latest(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("manifest latest: %w", err)
	}
	printEntry(cmd, entry)
	return nil
}

func runManifestDecode(cmd *cobra.Command, args []string) error {
	if manifestService == nil {
		return errors.New("manifest service not configured")
	}

	decoded, err := manifestService.Decode(args[0])
	if err != nil {
		return fmt.Errorf("decode identity: %w", err)
	}
	if decoded.IsJobID {
		cmd.Println("Identity is a caller-supplied job id.")
		return nil
	}
	cmd.Printf("Output path:  %s\n", decoded.OutputPath)
	cmd.Printf("Source image: %s\n", decoded.SourceImage)
	return nil
}

func runManifestRebuild(cmd *cobra.Command, _ []string) error {
	if manifestService == nil {
		return errors.New("manifest service not configured")
	}

	req := driving.RebuildRequest{
		OutputBase:  fallback(rebuildOutput, runtimeConfig, "paths.output"),
		SourceImage: fallback(rebuildSourceImage, runtimeConfig, "images.source"),
		JobID:       rebuildJobID,
	}
	result, err := manifestService.Rebuild(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("rebuild manifest: %w", err)
	}

	cmd.Printf("Identity: %s\n", result.Identity)
	cmd.Printf("Appended %d entries (%d already recorded, %d state files written).\n",
		result.Appended, result.Skipped, result.StatesWritten)
	return nil
}

// printEntry renders one manifest entry.
func printEntry(cmd *cobra.Command, e *domain.ManifestEntry) {
	cmd.Printf("%s  %s\n", formatEpoch(e.Timestamp), e.JobID)
	cmd.Printf("  source: %s\n", e.Source)
	if e.DataFile != "" {
		cmd.Printf("  data:   %s\n", e.DataFile)
	} else {
		cmd.Printf("  data:   (failed run, no capture)\n")
	}
	if e.StateFilePath != "" {
		cmd.Printf("  state:  %s\n", e.StateFilePath)
	}
}

// formatEpoch renders a run epoch for display.
func formatEpoch(epoch int64) string {
	if epoch == 0 {
		return "-"
	}
	return time.Unix(epoch, 0).UTC().Format("2006-01-02 15:04:05")
}

package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/airbridge/internal/core/ports/driving"
)

var redeliverCmd = &cobra.Command{
	Use:   "redeliver",
	Short: "Retry delivery of an already captured run",
	Long: `Feeds a prior run's captured data file to a destination connector
without re-extracting from the source.

The capture is addressed by identity key (its latest manifest entry's data
file is used) or directly by data file path. The original run's manifest
entries are never modified.`,
	RunE: runRedeliver,
}

var (
	redeliverIdentity   string
	redeliverDataFile   string
	redeliverDestImage  string
	redeliverDestConfig string
	redeliverCatalog    string
)

func init() {
	redeliverCmd.Flags().StringVarP(&redeliverIdentity, "identity", "k", "",
		"identity key whose latest capture is redelivered")
	redeliverCmd.Flags().StringVar(&redeliverDataFile, "data-file", "",
		"captured data file to redeliver (overrides --identity)")
	redeliverCmd.Flags().StringVarP(&redeliverDestImage, "dst-image", "w", "",
		"destination connector Docker image")
	redeliverCmd.Flags().StringVarP(&redeliverDestConfig, "dst-config", "d", "",
		"destination connector configuration file")
	redeliverCmd.Flags().StringVarP(&redeliverCatalog, "catalog", "c", "",
		"configured catalog file")
	rootCmd.AddCommand(redeliverCmd)
}

func runRedeliver(cmd *cobra.Command, _ []string) error {
	if redeliveryService == nil {
		return errors.New("redelivery service not configured")
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	req := driving.RedeliverRequest{
		Identity:              redeliverIdentity,
		DataFile:              redeliverDataFile,
		DestinationImage:      fallback(redeliverDestImage, runtimeConfig, "images.destination"),
		DestinationConfigPath: fallback(redeliverDestConfig, runtimeConfig, "paths.destination_config"),
		CatalogPath:           fallback(redeliverCatalog, runtimeConfig, "paths.catalog"),
	}

	cmd.Println("Redelivering...")
	if err := redeliveryService.Redeliver(ctx, req); err != nil {
		return fmt.Errorf("redelivery failed: %w", err)
	}
	cmd.Println("Redelivery complete.")
	return nil
}

package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/airbridge/internal/core/domain"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect persisted checkpoints",
}

var stateShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the latest checkpoint for an identity",
	Long: `Prints the checkpoint document the identity's latest manifest entry
points at. The identity is given as a key or as a job id; a job id is the
identity verbatim.`,
	RunE: runStateShow,
}

var (
	stateIdentity string
	stateJobID    string
)

func init() {
	stateShowCmd.Flags().StringVarP(&stateIdentity, "identity", "k", "",
		"identity key to look up")
	stateShowCmd.Flags().StringVarP(&stateJobID, "job", "j", "",
		"job id to look up (the identity verbatim)")
	stateCmd.AddCommand(stateShowCmd)
	rootCmd.AddCommand(stateCmd)
}

func runStateShow(cmd *cobra.Command, _ []string) error {
	if manifestService == nil {
		return errors.New("manifest service not configured")
	}

	identity := stateIdentity
	if identity == "" {
		identity = stateJobID
	}
	if identity == "" {
		return fmt.Errorf("%w: an identity key or job id is required", domain.ErrConfigInvalid)
	}

	doc, path, err := manifestService.LatestState(cmd.Context(), identity)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	cmd.Printf("Checkpoint %s:\n", path)
	cmd.Println(string(doc.JSON()))
	return nil
}

package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Generate a connector configuration template from its specification",
	Long: `Fetches a connector specification document (http(s) URL or local path,
JSON or YAML) and writes a starter configuration template. Required fields
hold "required_value", optional ones "optional_value"; fill them in before
running the connector.`,
	RunE: runTemplate,
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Download a catalog document",
	Long: `Retrieves a catalog document verbatim from an http(s) URL or a local
path and writes it to the output directory.`,
	RunE: runCatalogFetch,
}

var (
	templateInput  string
	templateOutput string
	catalogInput   string
	catalogOutput  string
)

func init() {
	templateCmd.Flags().StringVarP(&templateInput, "input", "i", "",
		"connector specification URL or path")
	templateCmd.Flags().StringVarP(&templateOutput, "output", "o", ".",
		"directory the template is written to")
	_ = templateCmd.MarkFlagRequired("input")

	catalogCmd.Flags().StringVarP(&catalogInput, "input", "i", "",
		"catalog document URL or path")
	catalogCmd.Flags().StringVarP(&catalogOutput, "output", "o", ".",
		"directory the catalog is written to")
	_ = catalogCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(templateCmd)
	rootCmd.AddCommand(catalogCmd)
}

func runTemplate(cmd *cobra.Command, _ []string) error {
	if templateService == nil {
		return errors.New("template service not configured")
	}

	tmpl, err := templateService.GenerateTemplate(cmd.Context(), templateInput)
	if err != nil {
		return fmt.Errorf("generate template: %w", err)
	}

	dest := filepath.Join(templateOutput, tmpl.FileName)
	// Templates are placeholders, but the filled-in config will hold
	// credentials; start with owner-only permissions.
	if err := os.WriteFile(dest, tmpl.Document, 0600); err != nil {
		return fmt.Errorf("write template: %w", err)
	}
	cmd.Printf("Template written to %s\n", dest)
	return nil
}

func runCatalogFetch(cmd *cobra.Command, _ []string) error {
	if templateService == nil {
		return errors.New("template service not configured")
	}

	doc, name, err := templateService.FetchCatalog(cmd.Context(), catalogInput)
	if err != nil {
		return fmt.Errorf("fetch catalog: %w", err)
	}

	dest := filepath.Join(catalogOutput, name)
	if err := os.WriteFile(dest, doc, 0644); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}
	cmd.Printf("Catalog written to %s\n", dest)
	return nil
}

// =============================================================================
// Bulk Importer - Templates Command
// =============================================================================
//
// This file defines the 'templates' command group:
//
//   importer templates list
//     List every template available in the templates directory.
//
//   importer templates export --template <name> --out <file>
//     Write a template skeleton (header row + description row) as CSV or
//     XLSX, for users to fill in before importing.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vendorvault/importer/internal/config"
	"github.com/vendorvault/importer/internal/store"
	"github.com/vendorvault/importer/internal/template"
	"github.com/vendorvault/importer/pkg/export"
)

var (
	exportTemplate string
	exportOut      string
)

// templatesCmd groups the template subcommands.
var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Inspect and export import templates",
}

// templatesListCmd represents 'templates list'.
var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available import templates",
	Long: `List every template in the templates directory, with its target
collection, required fields, and the number of records already stored in
that collection (when the record store is reachable).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		templates, err := template.LoadAll(cfg.TemplatesDir)
		if err != nil {
			return fmt.Errorf("failed to load templates: %w", err)
		}
		if len(templates) == 0 {
			fmt.Printf("No templates found in %s\n", cfg.TemplatesDir)
			return nil
		}

		recordStore, err := store.Open(cfg.DatabasePath)
		if err != nil {
			logger.Warn("record store unavailable: %v", err)
			recordStore = nil
		} else {
			defer recordStore.Close()
		}
		counts := collectionCounts(cmd.Context(), recordStore, templates)

		names := make([]string, 0, len(templates))
		for name := range templates {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			tpl := templates[name]
			line := fmt.Sprintf("%-20s collection=%s required=[%s]",
				name, tpl.TargetCollection, strings.Join(tpl.RequiredFields, ", "))
			if n, ok := counts[name]; ok {
				line += fmt.Sprintf(" records=%d", n)
			}
			fmt.Println(line)
		}
		return nil
	},
}

// collectionCounts returns the stored record count per template name, or
// nil when the store is down. A failed count drops that entry rather than
// failing the listing.
func collectionCounts(ctx context.Context, recordStore *store.Store, templates map[string]*template.Template) map[string]int {
	if recordStore == nil {
		return nil
	}
	counts := make(map[string]int, len(templates))
	for name, tpl := range templates {
		n, err := recordStore.Count(ctx, tpl.TargetCollection)
		if err != nil {
			logger.Warn("count failed for collection %q: %v", tpl.TargetCollection, err)
			continue
		}
		counts[name] = n
	}
	return counts
}

// templatesExportCmd represents 'templates export'.
var templatesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a template skeleton (header + description rows)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		tpl, err := loadTemplate(cfg, exportTemplate)
		if err != nil {
			return err
		}

		if err := export.TemplateSkeleton(tpl, exportOut); err != nil {
			return fmt.Errorf("failed to export skeleton: %w", err)
		}
		fmt.Printf("Wrote template skeleton to %s\n", exportOut)
		return nil
	},
}

// init registers the templates command group.
func init() {
	rootCmd.AddCommand(templatesCmd)
	templatesCmd.AddCommand(templatesListCmd)
	templatesCmd.AddCommand(templatesExportCmd)

	templatesExportCmd.Flags().StringVar(&exportTemplate, "template", "", "Template name (required)")
	templatesExportCmd.Flags().StringVar(&exportOut, "out", "", "Output file, .csv or .xlsx (required)")
	templatesExportCmd.MarkFlagRequired("template")
	templatesExportCmd.MarkFlagRequired("out")
}

// loadTemplate loads the named template from the configured directory.
// Shared by the import, templates, and report commands.
func loadTemplate(cfg *config.MainConfig, name string) (*template.Template, error) {
	templates, err := template.LoadAll(cfg.TemplatesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}
	tpl, ok := templates[name]
	if !ok {
		return nil, fmt.Errorf("unknown template %q (looked in %s)", name, cfg.TemplatesDir)
	}
	return tpl, nil
}

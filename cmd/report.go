// =============================================================================
// Bulk Importer - Report Command
// =============================================================================
//
// This file defines the 'report' command, which runs the parse, map, and
// reconcile passes over a file and writes the error report: one line per
// flagged issue with the row number, all header values, issue type, and
// issue detail. No rows are committed.
//
// COMMAND USAGE:
//   importer report --file <csv|xlsx> --template <name> --out <file>
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vendorvault/importer/internal/config"
	"github.com/vendorvault/importer/internal/mapper"
	"github.com/vendorvault/importer/internal/session"
	"github.com/vendorvault/importer/internal/store"
	"github.com/vendorvault/importer/internal/tabular"
	"github.com/vendorvault/importer/pkg/export"
)

var (
	reportFile     string
	reportTemplate string
	reportOut      string
)

// reportCmd represents the 'report' command.
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write an error report for a file without importing it",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReport(cmd.Context())
	},
}

// init registers the report command and its flags.
func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportFile, "file", "", "Path to the file to check (required)")
	reportCmd.Flags().StringVar(&reportTemplate, "template", "", "Template name (required)")
	reportCmd.Flags().StringVar(&reportOut, "out", "", "Output file, .csv or .xlsx (required)")
	reportCmd.MarkFlagRequired("file")
	reportCmd.MarkFlagRequired("template")
	reportCmd.MarkFlagRequired("out")
}

// runReport runs the read-only half of the pipeline and writes the report.
func runReport(ctx context.Context) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	tpl, err := loadTemplate(cfg, reportTemplate)
	if err != nil {
		return err
	}

	recordStore, err := store.Open(cfg.DatabasePath)
	if err != nil {
		logger.Warn("record store unavailable: %v", err)
		recordStore = nil
	} else {
		defer recordStore.Close()
	}

	parsed, err := tabular.ParseFile(reportFile, tabular.Options{DataRowOffset: cfg.DataRowOffset})
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", reportFile, err)
	}

	sess := session.New(tpl)
	sess.LoadParse(parsed)

	mapped := mapper.Map(parsed.Rows, tpl, mapper.Options{DataRowOffset: cfg.DataRowOffset})
	sess.SetMapped(mapped.Errors)

	runReconcile(ctx, sess, recordStore, cfg.BatchSize)

	err = export.ErrorReport(
		reportOut,
		sess.Headers(),
		sess.CurrentView(),
		sess.ValidationErrors(),
		sess.Duplicates(),
		sess.DataRowOffset(),
	)
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	fmt.Printf("Wrote error report to %s\n", reportOut)
	return nil
}

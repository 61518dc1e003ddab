// =============================================================================
// Bulk Importer - Import Command
// =============================================================================
//
// This file defines the 'import' command, which drives the whole pipeline
// for one file:
//
//   1. Parse the file into headers + preview rows
//   2. Map rows against the template and collect validation errors
//   3. Reconcile duplicates (intra-file and against the record store)
//   4. Apply any --set cell corrections on the edit overlay
//   5. Print review statistics (and per-row issues at --verbose)
//   6. Commit the chosen rows, reporting progress and per-row failures
//
// COMMAND USAGE:
//   importer import --file <csv|xlsx> --template <name> [flags]
//
// FLAGS:
//   --file       : Path to the file to import (required)
//   --template   : Template name from the templates directory (required)
//   --user       : Acting user stamped onto imported records
//   --set        : Cell correction "rowIndex:field=value" (repeatable)
//   --rows       : Explicit row selection, e.g. "0,2,5" or "all"
//   --dry-run    : Stop after review; do not write to the store
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vendorvault/importer/internal/commit"
	"github.com/vendorvault/importer/internal/config"
	"github.com/vendorvault/importer/internal/mapper"
	"github.com/vendorvault/importer/internal/reconcile"
	"github.com/vendorvault/importer/internal/review"
	"github.com/vendorvault/importer/internal/session"
	"github.com/vendorvault/importer/internal/store"
	"github.com/vendorvault/importer/internal/tabular"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	importFile     string
	importTemplate string
	importUser     string
	importEdits    []string
	importRows     string
	importDryRun   bool
)

// importCmd represents the 'import' command.
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a spreadsheet file into the record store",
	Long: `The import command parses a CSV or XLSX file, validates it against the
chosen template, flags duplicate rows (within the file and against records
already in the store), and commits the eligible rows.

Rows with validation errors or duplicate flags are excluded by default;
pass an explicit --rows selection to include them anyway. A single row's
persistence failure never aborts the run: failures are itemized in the
final result.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(cmd.Context())
	},
}

// init registers the import command and its flags.
func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&importFile, "file", "", "Path to the file to import (required)")
	importCmd.Flags().StringVar(&importTemplate, "template", "", "Template name (required)")
	importCmd.Flags().StringVar(&importUser, "user", "importer", "Acting user recorded on imported rows")
	importCmd.Flags().StringArrayVar(&importEdits, "set", nil, `Cell correction "rowIndex:field=value" (repeatable)`)
	importCmd.Flags().StringVar(&importRows, "rows", "", `Explicit row selection, e.g. "0,2,5" or "all"`)
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Stop after review; do not write to the store")
	importCmd.MarkFlagRequired("file")
	importCmd.MarkFlagRequired("template")
}

// =============================================================================
// PIPELINE
// =============================================================================

// runImport drives the pipeline end to end for one file.
func runImport(ctx context.Context) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	tpl, err := loadTemplate(cfg, importTemplate)
	if err != nil {
		return err
	}

	// A missing store is a degraded run, not a failed one: file-only
	// duplicate detection still works, and dry runs never write.
	recordStore, err := store.Open(cfg.DatabasePath)
	if err != nil {
		logger.Warn("record store unavailable: %v", err)
		recordStore = nil
	} else {
		defer recordStore.Close()
	}

	// Step 1: parse.
	parsed, err := tabular.ParseFile(importFile, tabular.Options{DataRowOffset: cfg.DataRowOffset})
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", importFile, err)
	}
	logger.Debug("parsed %d columns, %d data rows", len(parsed.Headers), len(parsed.Rows))

	sess := session.New(tpl)
	sess.LoadParse(parsed)

	// Step 2: map and validate.
	mapped := mapper.Map(parsed.Rows, tpl, mapper.Options{
		DataRowOffset: cfg.DataRowOffset,
		ImportedBy:    importUser,
	})
	sess.SetMapped(mapped.Errors)
	logger.Debug("mapped %d import-eligible rows, %d validation errors", len(mapped.Rows), len(mapped.Errors))

	// Step 3: reconcile duplicates.
	runReconcile(ctx, sess, recordStore, cfg.BatchSize)

	// Step 4: user corrections.
	for _, edit := range importEdits {
		rowIndex, field, value, err := parseEdit(edit)
		if err != nil {
			return err
		}
		if err := sess.SetCell(rowIndex, field, value); err != nil {
			return fmt.Errorf("invalid --set %q: %w", edit, err)
		}
	}

	// Step 5: review.
	proj := review.New(sess, cfg.PageSize)
	printReview(proj)

	if importDryRun {
		fmt.Println("Dry run: no rows were committed.")
		return nil
	}

	// Step 6: commit.
	selection, err := parseSelection(importRows, sess.RowCount())
	if err != nil {
		return err
	}

	if recordStore == nil {
		return fmt.Errorf("cannot commit: record store unavailable")
	}

	result, err := commit.Execute(ctx, sess, selection, recordStore, commit.Options{
		User:   importUser,
		Logger: logger,
		Progress: func(percent int) {
			fmt.Printf("\r  progress: %3d%%", percent)
		},
	})
	fmt.Println()
	if err != nil {
		return err
	}

	fmt.Println("\n=== Import Complete ===")
	fmt.Printf("Imported:  %d\n", result.Success)
	fmt.Printf("Failed:    %d\n", result.Failed)
	fmt.Printf("Skipped:   %d\n", result.Skipped)
	for _, e := range result.Errors {
		fmt.Printf("  ✗ %s\n", e)
	}

	return nil
}

// runReconcile runs one reconciliation pass under the session's identity
// guard.
func runReconcile(ctx context.Context, sess *session.Session, recordStore *store.Store, batchSize int) {
	token, ok := sess.BeginReconcile()
	if !ok {
		logger.Debug("reconciliation already in flight for this dataset")
		return
	}

	// The interface value must stay nil when the store is down so the
	// reconciler takes its degraded path.
	var rs reconcile.Store
	if recordStore != nil {
		rs = recordStore
	}

	registry := reconcile.Reconcile(ctx, sess.CurrentView(), sess.Template(), rs, reconcile.Options{
		BatchSize: batchSize,
		Logger:    logger,
	})
	if !sess.CompleteReconcile(token, registry) {
		logger.Debug("discarded stale reconciliation results")
	}
}

// printReview prints the summary statistics and, at verbose, each flagged
// row.
func printReview(proj *review.Projection) {
	stats := proj.Stats()
	fmt.Println("=== Review ===")
	fmt.Printf("Total rows:      %d\n", stats.TotalRows)
	fmt.Printf("Valid rows:      %d\n", stats.ValidRows)
	fmt.Printf("Rows w/ errors:  %d\n", stats.ErrorRows)
	fmt.Printf("Duplicate rows:  %d\n", stats.DuplicateRows)

	proj.SetFilter(review.FilterAll)
	for _, row := range proj.Rows() {
		if !row.HasError && !row.HasDuplicate {
			continue
		}
		markers := ""
		if row.HasError {
			markers += " [invalid]"
		}
		if row.HasDuplicate {
			markers += " [duplicate]"
		}
		logger.Debug("row %d%s", row.Index, markers)
	}
}

// =============================================================================
// FLAG PARSING HELPERS
// =============================================================================

// parseEdit splits a --set value of the form "rowIndex:field=value".
func parseEdit(s string) (int, string, string, error) {
	rowPart, rest, ok := strings.Cut(s, ":")
	if !ok {
		return 0, "", "", fmt.Errorf(`invalid --set %q: want "rowIndex:field=value"`, s)
	}
	field, value, ok := strings.Cut(rest, "=")
	if !ok || field == "" {
		return 0, "", "", fmt.Errorf(`invalid --set %q: want "rowIndex:field=value"`, s)
	}
	rowIndex, err := strconv.Atoi(strings.TrimSpace(rowPart))
	if err != nil {
		return 0, "", "", fmt.Errorf("invalid --set %q: bad row index: %w", s, err)
	}
	return rowIndex, field, value, nil
}

// parseSelection turns the --rows flag into an explicit row selection.
// Empty means nil (the default selection: exclude flagged rows); "all"
// selects every row including flagged ones.
func parseSelection(s string, total int) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if strings.EqualFold(s, "all") {
		all := make([]int, total)
		for i := range all {
			all[i] = i
		}
		return all, nil
	}

	var selection []int
	seen := make(map[int]bool)
	for _, part := range strings.Split(s, ",") {
		idx, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid --rows entry %q: %w", part, err)
		}
		if idx < 0 || idx >= total {
			return nil, fmt.Errorf("--rows index %d out of range (have %d rows)", idx, total)
		}
		if seen[idx] {
			// A repeated index means the row once, not twice.
			continue
		}
		seen[idx] = true
		selection = append(selection, idx)
	}
	commit.SortSelection(selection)
	return selection, nil
}

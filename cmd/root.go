// =============================================================================
// Bulk Importer - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands are attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (importer)
//   ├── importCmd    (importer import)
//   ├── templatesCmd (importer templates)
//   │     ├── list
//   │     └── export
//   ├── reportCmd    (importer report)
//   └── versionCmd   (importer version)
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vendorvault/importer/internal/logging"
)

// =============================================================================
// GLOBAL FLAGS
// =============================================================================

// cfgFile holds the path to the main configuration file.
// This can be overridden using the --config flag.
var cfgFile string

// verbose enables debug logging when set to true.
var verbose bool

// logger is the shared logger, built from the --verbose flag before any
// subcommand runs.
var logger logging.Logger

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "importer",
	Short: "Bulk Importer - load spreadsheet data into the record store with triage",

	Long: `Bulk Importer ingests spreadsheet-like files (CSV or XLSX), maps them
against a record template, detects invalid and duplicate rows (both within
the file and against the existing record store), and commits the clean rows
while tracking per-row success and failure.

Key Features:
  - Template-driven required-field and date validation
  - Duplicate detection within the file and against stored records
  - Batched store lookups with graceful degradation when the store is down
  - Partial-failure-tolerant commit with per-row error attribution
  - Downloadable template skeletons and error reports

Example Usage:
  importer import --file vendors.csv --template vendors --user alice
  importer templates export --template vendors --out skeleton.xlsx
  importer report --file vendors.csv --template vendors --out issues.csv`,

	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = logging.New(verbose)
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// init sets up the global flags.
func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

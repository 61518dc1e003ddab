// =============================================================================
// Bulk Importer - Main Entry Point
// =============================================================================
//
// This is the main entry point for the Bulk Importer CLI application.
// It initializes the Cobra CLI framework and delegates command execution to
// the cmd package.
//
// USAGE:
//   importer import     - Import a spreadsheet file into the record store
//   importer templates  - Inspect and export import templates
//   importer report     - Write an error report without importing
//   importer version    - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : Core pipeline logic (not for external import)
//   - pkg/       : Shared projections (template skeleton, error report)
//   - templates/ : Import template YAML definitions
//
// =============================================================================

package main

import (
	"github.com/vendorvault/importer/cmd"
)

// main simply calls the Execute function from the cmd package, which
// initializes and runs the Cobra CLI.
func main() {
	cmd.Execute()
}

// =============================================================================
// Bulk Importer - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - tabular
//   - mapper
//   - reconcile
//   - session
//   - review
//   - commit
//
// =============================================================================

package types

// =============================================================================
// ROW TYPES
// =============================================================================

// PreviewRow is a parsed, field-mapped, not-yet-committed data row.
// Keys are the accepted column headers; every accepted header has exactly
// one string value (possibly empty). A row's identity is its position in
// the preview sequence, which is stable for the lifetime of one upload.
type PreviewRow map[string]string

// Clone returns an independent copy of the row.
func (r PreviewRow) Clone() PreviewRow {
	out := make(PreviewRow, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// =============================================================================
// VALIDATION TYPES
// =============================================================================

// ValidationError represents a single row-level validation finding.
// Validation errors are collected, never thrown; one is produced per
// offending row/field combination and never individually removed.
type ValidationError struct {
	// RowIndex is the zero-based preview row index.
	RowIndex int

	// Field is the name of the field that failed validation.
	// Empty for row-level findings that are not tied to one field.
	Field string

	// Message is a human-readable error message. It references the
	// human-facing row number (index + data row offset), not the index.
	Message string
}

// =============================================================================
// DUPLICATE TYPES
// =============================================================================

// DuplicateType identifies the source of a duplicate finding.
type DuplicateType string

const (
	// DuplicateCSV flags a value that collides with an earlier row in the
	// same uploaded file.
	DuplicateCSV DuplicateType = "csv"

	// DuplicateStore flags a value that already exists in the persistent
	// record store.
	DuplicateStore DuplicateType = "store"
)

// DuplicateRecord is an advisory flag that a row's value for some field
// collides with another row or an existing stored record. A row may carry
// zero, one, or multiple records (one per offending field). The registry
// holding these is fully recomputed on every reconciliation run.
type DuplicateRecord struct {
	// RowIndex is the zero-based preview row index.
	RowIndex int

	// FieldValue is the colliding value.
	FieldValue string

	// DuplicateFields names the fields the value collided on.
	DuplicateFields []string

	// DuplicateType is the source of the collision.
	DuplicateType DuplicateType
}

// =============================================================================
// IMPORT RESULT
// =============================================================================

// ImportResult is the outcome of one commit run. It is created once per
// run and immutable once the run finishes.
type ImportResult struct {
	// Success is the number of rows persisted successfully.
	Success int

	// Failed is the number of rows whose persistence call failed.
	Failed int

	// Skipped is the number of rows deliberately excluded from this run
	// (full dataset size minus chosen subset size).
	Skipped int

	// Errors holds one human-readable entry per failed row, in run order.
	// Format: "row <displayIndex>: <cause>".
	Errors []string
}

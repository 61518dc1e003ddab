// =============================================================================
// Bulk Importer - Row Mapper & Validator
// =============================================================================
//
// This module maps preview rows onto a template's field set and performs
// field-level validation:
//   - Required fields must be present and non-empty.
//   - Date-typed fields must parse as calendar dates; successful parses are
//     stored on the mapped record under "<field>Parsed".
//   - Rows whose required-field tuple repeats an earlier row's tuple are
//     rejected ("duplicate within file") and excluded from the mapped set.
//     The first row with a given tuple is the canonical one and is stamped
//     with the acting user's attribution.
//
// ERROR HANDLING:
//   Validation errors are collected, not thrown. Required-field and date
//   errors never exclude a row from the mapped set; only the duplicate-key
//   gate does. All messages reference the human-facing row number
//   (index + data row offset), matching what the user sees in their file.
//
// This pass is synchronous and single-threaded; it performs no I/O.
//
// =============================================================================

package mapper

import (
	"fmt"
	"strings"
	"time"

	"github.com/vendorvault/importer/internal/tabular"
	"github.com/vendorvault/importer/internal/template"
	"github.com/vendorvault/importer/internal/types"
)

// =============================================================================
// OPTIONS AND RESULT
// =============================================================================

// Options configures a mapping pass.
type Options struct {
	// DataRowOffset converts a row index into the human-facing row number.
	// Zero value means tabular.DefaultDataRowOffset.
	DataRowOffset int

	// ImportedBy is the acting user stamped onto each canonical mapped row.
	ImportedBy string
}

// MappedRow is one import-eligible row after mapping.
type MappedRow struct {
	// Index is the preview row index this record was mapped from.
	Index int

	// Record holds the trimmed field values, plus derived values:
	// "<field>Parsed" (time.Time) for each parsed date field and
	// "importedBy" (string) attribution.
	Record map[string]interface{}
}

// Result is the output of one mapping pass.
type Result struct {
	// Rows are the mapped records, excluding rows rejected by the
	// duplicate-key gate. Order follows the preview sequence.
	Rows []MappedRow

	// Errors are all validation findings, in row order.
	Errors []types.ValidationError
}

// =============================================================================
// MAPPING
// =============================================================================

// Map maps and validates every preview row against the template.
func Map(rows []types.PreviewRow, tpl *template.Template, opts Options) *Result {
	offset := opts.DataRowOffset
	if offset == 0 {
		offset = tabular.DefaultDataRowOffset
	}

	result := &Result{}
	seenKeys := make(map[string]int, len(rows))

	for i, row := range rows {
		record := make(map[string]interface{}, len(row)+2)
		for field, value := range row {
			record[field] = strings.TrimSpace(value)
		}

		for _, field := range tpl.RequiredFields {
			if v, _ := record[field].(string); v == "" {
				result.Errors = append(result.Errors, types.ValidationError{
					RowIndex: i,
					Field:    field,
					Message:  fmt.Sprintf("row %d: required field %q is missing or empty", i+offset, field),
				})
			}
		}

		for _, field := range tpl.DateFields {
			v, _ := record[field].(string)
			if v == "" {
				continue
			}
			parsed, ok := ParseDate(v)
			if !ok {
				result.Errors = append(result.Errors, types.ValidationError{
					RowIndex: i,
					Field:    field,
					Message:  fmt.Sprintf("row %d: field %q has invalid date %q", i+offset, field, v),
				})
				continue
			}
			record[field+"Parsed"] = parsed
		}

		key := duplicateKey(row, tpl.RequiredFields)
		if first, dup := seenKeys[key]; dup {
			result.Errors = append(result.Errors, types.ValidationError{
				RowIndex: i,
				Message:  fmt.Sprintf("row %d: duplicate within file (matches row %d)", i+offset, first+offset),
			})
			continue
		}
		seenKeys[key] = i

		record["importedBy"] = opts.ImportedBy
		result.Rows = append(result.Rows, MappedRow{Index: i, Record: record})
	}

	return result
}

// duplicateKey builds the intra-file duplicate key: the lowercase,
// pipe-joined required-field values in template-declared order. Missing
// values contribute an empty segment.
func duplicateKey(row types.PreviewRow, requiredFields []string) string {
	parts := make([]string, len(requiredFields))
	for i, field := range requiredFields {
		parts[i] = strings.ToLower(strings.TrimSpace(row[field]))
	}
	return strings.Join(parts, "|")
}

// =============================================================================
// DATE PARSING
// =============================================================================

// dateFormats are the accepted input layouts, tried in order.
var dateFormats = []string{
	"2006-01-02",
	"01/02/2006",
	"02/01/2006",
	"2006/01/02",
	"Jan 2, 2006",
	"January 2, 2006",
	"20060102",
}

// ParseDate attempts to parse a value as a calendar date using the accepted
// layouts. It reports whether parsing succeeded.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

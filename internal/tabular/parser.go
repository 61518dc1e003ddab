// =============================================================================
// Bulk Importer - Tabular Parser
// =============================================================================
//
// This module turns raw delimited file text into an accepted header sequence
// plus preview rows. It enforces header sanity up front so downstream code
// can treat field access as total over a fixed key set:
//   - Blank lines are skipped.
//   - Row 0 is the header row. Empty headers and auto-generated placeholder
//     names for blank columns (underscore + digits, e.g. "_3") are dropped.
//   - Duplicate header names are fatal: column identity would be ambiguous
//     for every later stage.
//   - Row 1 is a human-readable description row and is skipped, not data.
//   - Data rows are padded/truncated to the accepted header width; rows that
//     are blank in every cell are dropped silently.
//
// The parser performs no validation beyond header sanity; field-level checks
// belong to the mapper.
//
// =============================================================================

package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/vendorvault/importer/internal/types"
)

// =============================================================================
// ERRORS
// =============================================================================

// Fatal parse errors. These abort the upload step; the user must fix the
// file and retry.
var (
	// ErrInsufficientData indicates the file has no header row, or a header
	// (and description row) with zero data rows.
	ErrInsufficientData = errors.New("file must contain a header row, a description row, and at least one data row")

	// ErrNoHeaders indicates no usable column headers remain after dropping
	// blank and placeholder names.
	ErrNoHeaders = errors.New("no valid column headers found")

	// ErrDuplicateHeader indicates two columns share the same header name.
	ErrDuplicateHeader = errors.New("duplicate column headers")
)

// placeholderHeader matches auto-generated names for blank columns
// (an underscore followed by digits), as produced by spreadsheet exports.
var placeholderHeader = regexp.MustCompile(`^_\d+$`)

// =============================================================================
// OPTIONS AND RESULT
// =============================================================================

// DefaultDataRowOffset converts a zero-based preview row index into the
// human-facing row number: one header row, one description row, and
// one-based counting.
const DefaultDataRowOffset = 3

// Options configures parsing.
type Options struct {
	// Delimiter separates fields. Zero value means comma.
	Delimiter rune

	// DataRowOffset is added to a preview row index when displaying "row N"
	// to the user. Zero value means DefaultDataRowOffset.
	DataRowOffset int
}

func (o Options) withDefaults() Options {
	if o.Delimiter == 0 {
		o.Delimiter = ','
	}
	if o.DataRowOffset == 0 {
		o.DataRowOffset = DefaultDataRowOffset
	}
	return o
}

// Result is the parser output: the accepted headers and the preview rows.
type Result struct {
	// Headers is the accepted header sequence, in column order.
	Headers []string

	// Rows are the preview rows. A row's index in this slice is its stable
	// identity for the rest of the session.
	Rows []types.PreviewRow

	// DataRowOffset converts a row index into the human-facing row number.
	DataRowOffset int
}

// column pairs an accepted header with its position in the raw grid.
type column struct {
	name string
	pos  int
}

// =============================================================================
// PARSING
// =============================================================================

// Parse parses delimited text into headers and preview rows.
func Parse(text string, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = opts.Delimiter
	// Input files routinely have ragged rows and sloppy quoting; width is
	// normalized against the accepted headers below.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	grid, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read delimited text: %w", err)
	}

	return parseGrid(grid, opts)
}

// parseGrid applies the header and data-row contract to a raw cell grid.
// Both the CSV and XLSX front-ends funnel through here.
func parseGrid(grid [][]string, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	// Drop fully blank lines before any positional reasoning.
	rows := make([][]string, 0, len(grid))
	for _, row := range grid {
		if !isRowBlank(row) {
			rows = append(rows, row)
		}
	}

	if len(rows) < 2 {
		return nil, ErrInsufficientData
	}

	columns, err := acceptHeaders(rows[0])
	if err != nil {
		return nil, err
	}

	// Row 1 is the description row. Rows 2..N are data.
	dataRows := rows[2:]
	if len(dataRows) == 0 {
		return nil, ErrInsufficientData
	}

	previews := make([]types.PreviewRow, 0, len(dataRows))
	for _, raw := range dataRows {
		if isRowBlank(raw) {
			// All-blank data rows (e.g. ",,,") vanish without holding an
			// index.
			continue
		}
		preview := make(types.PreviewRow, len(columns))
		for _, col := range columns {
			value := ""
			if col.pos < len(raw) {
				value = strings.TrimSpace(raw[col.pos])
			}
			preview[col.name] = value
		}
		previews = append(previews, preview)
	}

	headers := make([]string, len(columns))
	for i, col := range columns {
		headers[i] = col.name
	}

	return &Result{
		Headers:       headers,
		Rows:          previews,
		DataRowOffset: opts.DataRowOffset,
	}, nil
}

// acceptHeaders trims the header row, drops blank and placeholder names,
// and rejects duplicates.
func acceptHeaders(raw []string) ([]column, error) {
	var columns []column
	for pos, cell := range raw {
		name := strings.TrimSpace(cell)
		if name == "" || placeholderHeader.MatchString(name) {
			continue
		}
		columns = append(columns, column{name: name, pos: pos})
	}

	if len(columns) == 0 {
		return nil, ErrNoHeaders
	}

	counts := make(map[string]int, len(columns))
	for _, col := range columns {
		counts[col.name]++
	}
	var dups []string
	for _, col := range columns {
		if counts[col.name] > 1 {
			counts[col.name] = 0 // report each name once
			dups = append(dups, col.name)
		}
	}
	if len(dups) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateHeader, strings.Join(dups, ", "))
	}

	return columns, nil
}

// isRowBlank reports whether every cell is empty after trimming.
func isRowBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

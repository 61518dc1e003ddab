// =============================================================================
// Bulk Importer - XLSX Front-End
// =============================================================================
//
// Spreadsheet uploads are normalized to the same raw cell grid the CSV
// front-end produces, then run through the identical header/data contract.
// Only the first sheet of a workbook is read.
//
// =============================================================================

package tabular

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ParseXLSX parses the first sheet of an XLSX workbook.
func ParseXLSX(path string, opts Options) (*Result, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrInsufficientData
	}

	grid, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	return parseGrid(grid, opts)
}

// ParseFile parses a file as XLSX or delimited text based on its extension.
func ParseFile(path string, opts Options) (*Result, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return ParseXLSX(path, opts)
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		return Parse(string(data), opts)
	}
}

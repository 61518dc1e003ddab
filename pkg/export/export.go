// =============================================================================
// Bulk Importer - Export Surfaces
// =============================================================================
//
// Pure projections of pipeline state with no pipeline-internal logic:
//
//   - Template skeleton: a downloadable starting file with the template's
//     header row and a description row, so uploads arrive in the expected
//     shape.
//   - Error report: one line per issue for every row currently flagged
//     invalid or duplicate: row number, all header values, issue type, and
//     issue detail.
//
// Both surfaces write CSV or XLSX depending on the output file extension.
//
// =============================================================================

package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/vendorvault/importer/internal/template"
	"github.com/vendorvault/importer/internal/types"
)

// =============================================================================
// TEMPLATE SKELETON
// =============================================================================

// TemplateSkeleton writes the header and description rows for a template.
func TemplateSkeleton(tpl *template.Template, outPath string) error {
	fields := tpl.Fields()

	header := make([]string, len(fields))
	descriptions := make([]string, len(fields))
	for i, field := range fields {
		header[i] = field
		descriptions[i] = tpl.Description(field)
	}

	return writeRows(outPath, [][]string{header, descriptions})
}

// =============================================================================
// ERROR REPORT
// =============================================================================

// reportIssue is one line of the error report.
type reportIssue struct {
	rowIndex  int
	issueType string
	detail    string
}

// ErrorReport writes a report of every currently flagged row: row number,
// all header values (from the merged current view), issue type, and issue
// detail. Rows with multiple issues produce multiple lines, ordered by row
// then issue.
func ErrorReport(outPath string, headers []string, view []types.PreviewRow, errs []types.ValidationError, dups []types.DuplicateRecord, dataRowOffset int) error {
	issues := make([]reportIssue, 0, len(errs)+len(dups))
	for _, ve := range errs {
		issues = append(issues, reportIssue{
			rowIndex:  ve.RowIndex,
			issueType: "error",
			detail:    ve.Message,
		})
	}
	for _, dr := range dups {
		detail := fmt.Sprintf("duplicate %q on %s (%s)",
			dr.FieldValue, strings.Join(dr.DuplicateFields, ", "), dr.DuplicateType)
		issues = append(issues, reportIssue{
			rowIndex:  dr.RowIndex,
			issueType: "duplicate",
			detail:    detail,
		})
	}
	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].rowIndex < issues[j].rowIndex
	})

	rows := make([][]string, 0, len(issues)+1)

	titleRow := append([]string{"Row"}, headers...)
	titleRow = append(titleRow, "Issue Type", "Issue Detail")
	rows = append(rows, titleRow)

	for _, issue := range issues {
		if issue.rowIndex < 0 || issue.rowIndex >= len(view) {
			continue
		}
		line := make([]string, 0, len(headers)+3)
		line = append(line, fmt.Sprintf("%d", issue.rowIndex+dataRowOffset))
		for _, h := range headers {
			line = append(line, view[issue.rowIndex][h])
		}
		line = append(line, issue.issueType, issue.detail)
		rows = append(rows, line)
	}

	return writeRows(outPath, rows)
}

// =============================================================================
// WRITERS
// =============================================================================

// writeRows writes a cell grid as CSV or XLSX based on the extension.
func writeRows(outPath string, rows [][]string) error {
	switch strings.ToLower(filepath.Ext(outPath)) {
	case ".xlsx":
		return writeXLSX(outPath, rows)
	default:
		return writeCSV(outPath, rows)
	}
}

func writeCSV(outPath string, rows [][]string) error {
	file, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", outPath, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write %s: %w", outPath, err)
	}
	return nil
}

func writeXLSX(outPath string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("failed to address row %d: %w", i+1, err)
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := f.SaveAs(outPath); err != nil {
		return fmt.Errorf("failed to save %s: %w", outPath, err)
	}
	return nil
}

// =============================================================================
// Bulk Importer - Review Projection
// =============================================================================
//
// The review projection computes what the user sees while triaging an
// upload: the merged current view filtered by search term and issue filter,
// a stable pagination window, and the summary statistics.
//
// FILTER SEMANTICS:
//   - "errors"     rows with at least one validation error
//   - "duplicates" rows with at least one duplicate record
//   - "valid"      rows present in neither set
//   A row can be in both "errors" and "duplicates"; "valid" excludes any
//   row present in either.
//
// Search applies first, then the filter, then pagination, all in original
// row-index order. Changing the search term or the filter resets pagination
// to page 1.
//
// =============================================================================

package review

import (
	"strings"

	"github.com/vendorvault/importer/internal/session"
	"github.com/vendorvault/importer/internal/types"
)

// =============================================================================
// FILTERS
// =============================================================================

// Filter selects which rows the projection shows.
type Filter string

const (
	FilterAll        Filter = "all"
	FilterValid      Filter = "valid"
	FilterErrors     Filter = "errors"
	FilterDuplicates Filter = "duplicates"
)

// DefaultPageSize is the pagination window used when none is configured.
const DefaultPageSize = 25

// =============================================================================
// PROJECTION
// =============================================================================

// Row is one row of the projection: the merged current values plus issue
// markers.
type Row struct {
	// Index is the stable preview row index.
	Index int

	// Fields is the merged current view of the row.
	Fields types.PreviewRow

	// HasError marks rows with at least one validation error.
	HasError bool

	// HasDuplicate marks rows with at least one duplicate record.
	HasDuplicate bool
}

// Stats are the summary statistics recomputed on every relevant change.
type Stats struct {
	// TotalRows is the preview row count.
	TotalRows int

	// ErrorRows is the count of distinct rows with a validation error.
	ErrorRows int

	// DuplicateRows is the count of distinct rows with a duplicate record,
	// deduplicated by row index, not by record count.
	DuplicateRows int

	// ValidRows is TotalRows minus the union of error and duplicate rows.
	ValidRows int
}

// Projection is the filtered, paginated read model over a session.
type Projection struct {
	sess       *session.Session
	searchTerm string
	filter     Filter
	page       int
	pageSize   int
}

// New creates a projection over the session with the default filter and
// page size.
func New(sess *session.Session, pageSize int) *Projection {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Projection{
		sess:     sess,
		filter:   FilterAll,
		page:     1,
		pageSize: pageSize,
	}
}

// SetSearch sets the search term and resets pagination to page 1.
// Matching is a case-insensitive substring test against any field's current
// value.
func (p *Projection) SetSearch(term string) {
	p.searchTerm = term
	p.page = 1
}

// SetFilter sets the issue filter and resets pagination to page 1.
func (p *Projection) SetFilter(f Filter) {
	p.filter = f
	p.page = 1
}

// SetPage moves the pagination window. Pages are 1-based; values below 1
// are clamped to the first page. A page past the filtered row count yields
// an empty window from PageRows.
func (p *Projection) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	p.page = page
}

// Page returns the current page number.
func (p *Projection) Page() int { return p.page }

// =============================================================================
// COMPUTATION
// =============================================================================

// Rows returns every row passing the search and filter, in row-index order.
func (p *Projection) Rows() []Row {
	view := p.sess.CurrentView()
	errorRows := p.sess.ErrorRows()
	duplicateRows := p.sess.DuplicateRows()
	needle := strings.ToLower(strings.TrimSpace(p.searchTerm))

	var rows []Row
	for i, fields := range view {
		if needle != "" && !matches(fields, needle) {
			continue
		}

		hasError := errorRows[i]
		hasDuplicate := duplicateRows[i]
		switch p.filter {
		case FilterValid:
			if hasError || hasDuplicate {
				continue
			}
		case FilterErrors:
			if !hasError {
				continue
			}
		case FilterDuplicates:
			if !hasDuplicate {
				continue
			}
		}

		rows = append(rows, Row{
			Index:        i,
			Fields:       fields,
			HasError:     hasError,
			HasDuplicate: hasDuplicate,
		})
	}
	return rows
}

// PageRows returns the current pagination window over the filtered rows.
func (p *Projection) PageRows() []Row {
	rows := p.Rows()

	start := (p.page - 1) * p.pageSize
	if start >= len(rows) {
		return nil
	}
	end := start + p.pageSize
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}

// TotalPages returns the number of pages for the current search and filter.
func (p *Projection) TotalPages() int {
	n := len(p.Rows())
	if n == 0 {
		return 1
	}
	return (n + p.pageSize - 1) / p.pageSize
}

// Stats recomputes the summary statistics from the session registries.
// The invariant ValidRows + len(errorRows union duplicateRows) == TotalRows
// always holds.
func (p *Projection) Stats() Stats {
	errorRows := p.sess.ErrorRows()
	duplicateRows := p.sess.DuplicateRows()

	flagged := make(map[int]bool, len(errorRows)+len(duplicateRows))
	for i := range errorRows {
		flagged[i] = true
	}
	for i := range duplicateRows {
		flagged[i] = true
	}

	total := p.sess.RowCount()
	return Stats{
		TotalRows:     total,
		ErrorRows:     len(errorRows),
		DuplicateRows: len(duplicateRows),
		ValidRows:     total - len(flagged),
	}
}

// matches reports whether any field value contains the lowercased needle.
func matches(fields types.PreviewRow, needle string) bool {
	for _, value := range fields {
		if strings.Contains(strings.ToLower(value), needle) {
			return true
		}
	}
	return false
}

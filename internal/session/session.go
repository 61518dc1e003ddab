// =============================================================================
// Bulk Importer - Import Session
// =============================================================================
//
// A Session holds all state for one active upload: the immutable preview
// rows, the sparse edit overlay, the validation and duplicate registries,
// and the pipeline state machine. It is an explicit context object passed
// to the other components, never ambient global state, and is not shared
// across concurrent uploads.
//
// STATE MACHINE:
//   Upload -> (parse success)          -> Mapped
//   Mapped -> (reconciliation done)    -> Reviewing
//   Reviewing <-> edit/filter/search      (self-loop)
//   Reviewing -> (commit invoked)      -> Committed (terminal for this run)
//   Any state -> (new upload)          -> Upload, all registries cleared
//
// A parse failure is reported, not transitioned past: the session stays in
// Upload.
//
// OVERLAY STALENESS:
//   Editing a cell does not retrigger validation or reconciliation. A value
//   flagged invalid or duplicate stays flagged after a correcting edit, even
//   though the commit payload uses the corrected value. This mirrors the
//   review workflow's observed behavior; re-validation is an explicit rerun
//   of the mapper/reconciler passes, never a side effect of an edit.
//
// =============================================================================

package session

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/vendorvault/importer/internal/tabular"
	"github.com/vendorvault/importer/internal/template"
	"github.com/vendorvault/importer/internal/types"
)

// =============================================================================
// STATES
// =============================================================================

// State is the pipeline-level state of a session.
type State string

const (
	// StateUpload means no successfully parsed file is loaded.
	StateUpload State = "upload"

	// StateMapped means parsing and mapping completed.
	StateMapped State = "mapped"

	// StateReviewing means reconciliation completed and the dataset is open
	// for edits, filtering, and commit selection.
	StateReviewing State = "reviewing"

	// StateCommitted means a commit run finished (fully or partially).
	// Terminal for this upload.
	StateCommitted State = "committed"
)

// =============================================================================
// SESSION
// =============================================================================

// Session is the state container for one active upload.
type Session struct {
	mu sync.Mutex

	tpl     *template.Template
	headers []string
	rows    []types.PreviewRow
	offset  int

	// overlay holds per-row, per-field user corrections. Sparse: only
	// touched cells are present. Originals are never mutated.
	overlay map[int]map[string]string

	validationErrs []types.ValidationError
	duplicates     []types.DuplicateRecord

	state State

	// inflight is the identity of the reconciliation run currently in
	// flight, or "" when none is.
	inflight string
}

// New creates a session for the given template, in the Upload state.
func New(tpl *template.Template) *Session {
	return &Session{
		tpl:     tpl,
		overlay: make(map[int]map[string]string),
		state:   StateUpload,
	}
}

// Template returns the active template.
func (s *Session) Template() *template.Template { return s.tpl }

// State returns the current pipeline state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// DataRowOffset converts a row index into the human-facing row number.
func (s *Session) DataRowOffset() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.offset == 0 {
		return tabular.DefaultDataRowOffset
	}
	return s.offset
}

// =============================================================================
// UPLOAD LIFECYCLE
// =============================================================================

// LoadParse installs a successful parse result, clearing the overlay, both
// registries, and any in-flight reconciliation identity from a previous
// upload.
func (s *Session) LoadParse(res *tabular.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.headers = append([]string(nil), res.Headers...)
	s.rows = res.Rows
	s.offset = res.DataRowOffset
	s.overlay = make(map[int]map[string]string)
	s.validationErrs = nil
	s.duplicates = nil
	s.inflight = ""
	s.state = StateUpload
}

// Reset clears everything back to a fresh Upload state.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.headers = nil
	s.rows = nil
	s.offset = 0
	s.overlay = make(map[int]map[string]string)
	s.validationErrs = nil
	s.duplicates = nil
	s.inflight = ""
	s.state = StateUpload
}

// SetMapped installs the mapper's validation findings and advances
// Upload -> Mapped.
func (s *Session) SetMapped(errs []types.ValidationError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.validationErrs = errs
	s.state = StateMapped
}

// MarkCommitted transitions to the terminal Committed state. Called after a
// commit run regardless of per-row outcomes.
func (s *Session) MarkCommitted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateCommitted
}

// =============================================================================
// RECONCILIATION REGISTRY
// =============================================================================

// ReconcileIdentity derives the identity of a reconciliation run from the
// row count, header set, and target collection. Two runs with the same
// identity would do the same network work.
func (s *Session) ReconcileIdentity() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	headers := append([]string(nil), s.headers...)
	sort.Strings(headers)
	return fmt.Sprintf("%d|%s|%s", len(s.rows), strings.Join(headers, ","), s.tpl.TargetCollection)
}

// BeginReconcile registers intent to reconcile. It returns the run's
// identity token and false when an identical run is already in flight.
func (s *Session) BeginReconcile() (string, bool) {
	token := s.ReconcileIdentity()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight == token {
		return token, false
	}
	s.inflight = token
	return token, true
}

// CompleteReconcile installs a freshly computed duplicate registry,
// replacing the previous one, and advances Mapped -> Reviewing. Results
// from a stale run (token no longer matching the current identity, e.g.
// because a new file was uploaded mid-flight) are discarded.
func (s *Session) CompleteReconcile(token string, registry []types.DuplicateRecord) bool {
	current := s.ReconcileIdentity()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inflight == token {
		s.inflight = ""
	}
	if token != current {
		return false
	}

	s.duplicates = registry
	if s.state == StateMapped {
		s.state = StateReviewing
	}
	return true
}

// =============================================================================
// EDIT OVERLAY
// =============================================================================

// SetCell records or overwrites an overlay entry for one cell. The original
// preview row is untouched, and neither registry is recomputed.
func (s *Session) SetCell(rowIndex int, field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rowIndex < 0 || rowIndex >= len(s.rows) {
		return fmt.Errorf("row index %d out of range (have %d rows)", rowIndex, len(s.rows))
	}
	if s.overlay[rowIndex] == nil {
		s.overlay[rowIndex] = make(map[string]string)
	}
	s.overlay[rowIndex][field] = value
	return nil
}

// ClearCell removes one overlay entry, reverting the cell to its original
// parsed value.
func (s *Session) ClearCell(rowIndex int, field string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cells, ok := s.overlay[rowIndex]; ok {
		delete(cells, field)
		if len(cells) == 0 {
			delete(s.overlay, rowIndex)
		}
	}
}

// CurrentView materializes the merged view: for every preview row, the
// original values with overlay entries taking precedence. The result is a
// fresh copy on every call; it is never persisted as its own entity.
func (s *Session) CurrentView() []types.PreviewRow {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := make([]types.PreviewRow, len(s.rows))
	for i, row := range s.rows {
		merged := row.Clone()
		for field, value := range s.overlay[i] {
			merged[field] = value
		}
		view[i] = merged
	}
	return view
}

// CurrentRow materializes the merged view of a single row.
func (s *Session) CurrentRow(rowIndex int) (types.PreviewRow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rowIndex < 0 || rowIndex >= len(s.rows) {
		return nil, false
	}
	merged := s.rows[rowIndex].Clone()
	for field, value := range s.overlay[rowIndex] {
		merged[field] = value
	}
	return merged, true
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Headers returns the accepted header sequence.
func (s *Session) Headers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.headers...)
}

// RowCount returns the number of preview rows.
func (s *Session) RowCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// ValidationErrors returns the accumulated validation findings.
func (s *Session) ValidationErrors() []types.ValidationError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.ValidationError(nil), s.validationErrs...)
}

// Duplicates returns the current duplicate registry.
func (s *Session) Duplicates() []types.DuplicateRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.DuplicateRecord(nil), s.duplicates...)
}

// ErrorRows returns the set of distinct row indexes carrying at least one
// validation error.
func (s *Session) ErrorRows() map[int]bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make(map[int]bool, len(s.validationErrs))
	for _, ve := range s.validationErrs {
		rows[ve.RowIndex] = true
	}
	return rows
}

// DuplicateRows returns the set of distinct row indexes carrying at least
// one duplicate record.
func (s *Session) DuplicateRows() map[int]bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make(map[int]bool, len(s.duplicates))
	for _, dr := range s.duplicates {
		rows[dr.RowIndex] = true
	}
	return rows
}

// =============================================================================
// Bulk Importer - Commit Executor
// =============================================================================
//
// The commit executor persists a chosen subset of the current view, one
// persistence call per row, and accumulates per-row outcomes into an
// ImportResult.
//
// FAILURE POLICY:
//   A single row's persistence failure is never fatal to the run. The
//   failure is recorded as "row <displayIndex>: <cause>" and the executor
//   moves on. Only an empty chosen subset aborts, before any write.
//
// ORDERING:
//   Rows are processed strictly sequentially. This is an intentional
//   bottleneck: it keeps the emitted progress percentage monotonically
//   increasing and attributable to a specific row.
//
// =============================================================================

package commit

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/vendorvault/importer/internal/logging"
	"github.com/vendorvault/importer/internal/session"
	"github.com/vendorvault/importer/internal/types"
)

// ErrNoEligibleRows indicates the chosen row subset was empty: nothing to
// commit, state is not advanced.
var ErrNoEligibleRows = errors.New("no eligible rows to import")

// Store is the write side of the persistent record store.
type Store interface {
	Insert(ctx context.Context, collection string, doc map[string]interface{}) error
}

// Options configures a commit run.
type Options struct {
	// User is the acting user stamped onto every persisted document.
	User string

	// Now supplies the server-assigned timestamp. Nil means time.Now.
	Now func() time.Time

	// Progress, when non-nil, receives the rounded completion percentage
	// after every processed row.
	Progress func(percent int)

	// Logger receives per-row failure warnings. Nil means discard.
	Logger logging.Logger
}

// Execute persists the chosen rows and returns the run's ImportResult.
//
// selection is the explicit set of row indexes to commit. A nil selection
// means the default set: every current-view row not carrying a validation
// error or duplicate record. (An empty non-nil selection is an explicit
// choice of nothing and fails the same way an empty default set does.)
//
// On completion the session transitions to its terminal Committed state
// regardless of how many rows failed.
func Execute(ctx context.Context, sess *session.Session, selection []int, store Store, opts Options) (*types.ImportResult, error) {
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	view := sess.CurrentView()
	chosen := selection
	if chosen == nil {
		chosen = defaultSelection(sess, len(view))
	} else if err := validateSelection(chosen, len(view)); err != nil {
		return nil, err
	}
	if len(chosen) == 0 {
		return nil, ErrNoEligibleRows
	}

	collection := sess.Template().TargetCollection
	offset := sess.DataRowOffset()

	result := &types.ImportResult{
		Skipped: len(view) - len(chosen),
	}

	for processed, rowIndex := range chosen {
		doc := buildDocument(view[rowIndex], opts.User, now())

		if err := store.Insert(ctx, collection, doc); err != nil {
			result.Failed++
			msg := fmt.Sprintf("row %d: %v", rowIndex+offset, err)
			result.Errors = append(result.Errors, msg)
			log.Warn("import failed: %s", msg)
		} else {
			result.Success++
		}

		if opts.Progress != nil {
			opts.Progress(percent(processed+1, len(chosen)))
		}
	}

	sess.MarkCommitted()
	return result, nil
}

// validateSelection rejects explicit selections Execute cannot honor as a
// subset: out-of-range indexes, and repeated indexes, which would persist
// the same row twice and corrupt the skipped accounting.
func validateSelection(selection []int, total int) error {
	seen := make(map[int]bool, len(selection))
	for _, idx := range selection {
		if idx < 0 || idx >= total {
			return fmt.Errorf("selection index %d out of range (have %d rows)", idx, total)
		}
		if seen[idx] {
			return fmt.Errorf("selection index %d repeated", idx)
		}
		seen[idx] = true
	}
	return nil
}

// defaultSelection is every row not flagged by either registry, in row
// order.
func defaultSelection(sess *session.Session, total int) []int {
	errorRows := sess.ErrorRows()
	duplicateRows := sess.DuplicateRows()

	var chosen []int
	for i := 0; i < total; i++ {
		if errorRows[i] || duplicateRows[i] {
			continue
		}
		chosen = append(chosen, i)
	}
	return chosen
}

// buildDocument prepares the persistence payload: a copy of the current
// row with the empty-string key stripped and the server timestamp and
// acting-user attribution stamped on.
func buildDocument(row types.PreviewRow, user string, now time.Time) map[string]interface{} {
	doc := make(map[string]interface{}, len(row)+2)
	for field, value := range row {
		if field == "" {
			continue
		}
		doc[field] = value
	}
	doc["createdAt"] = now.UTC()
	doc["importedBy"] = user
	return doc
}

// percent rounds processed/total to a whole percentage.
func percent(processed, total int) int {
	return int(float64(processed)/float64(total)*100 + 0.5)
}

// SortSelection orders an explicit selection by row index so progress and
// error attribution follow file order.
func SortSelection(selection []int) {
	sort.Ints(selection)
}

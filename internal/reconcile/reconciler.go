// =============================================================================
// Bulk Importer - Duplicate Reconciler
// =============================================================================
//
// This module detects duplicate values for the template's required fields
// from two sources and merges the findings into one registry:
//
//   1. Intra-file: for every required field independently, a later row whose
//      non-empty value repeats an earlier row's value is flagged with
//      duplicate type "csv". This runs over the current view (original rows
//      merged with user edits), so edits affect this pass.
//   2. Store-existing: the distinct non-empty values per field are checked
//      against the persistent store with "value is one of these" queries in
//      batches of at most 30 values. Matches are flagged with duplicate
//      type "store".
//
// CONCURRENCY:
//   Store lookups fan out concurrently across fields; batches within one
//   field run sequentially, in batch order. A failed field is an isolated
//   failure domain: it contributes no findings but does not cancel the other
//   fields' lookups.
//
// DEGRADATION:
//   If the store is unreachable the store sub-pass is skipped with a
//   warning; intra-file findings are still returned. Degrade, don't fail.
//
// The returned registry fully replaces any prior one: reconciliation is an
// idempotent recompute, never an incremental merge.
//
// =============================================================================

package reconcile

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/vendorvault/importer/internal/logging"
	"github.com/vendorvault/importer/internal/template"
	"github.com/vendorvault/importer/internal/types"
)

// DefaultBatchSize is the maximum number of values per store query.
const DefaultBatchSize = 30

// Store is the read side of the persistent record store the reconciler
// consumes. ExistingValues returns the subset of values that already exist
// in the given collection and field.
type Store interface {
	ExistingValues(ctx context.Context, collection, field string, values []string) ([]string, error)
}

// Options configures a reconciliation pass.
type Options struct {
	// BatchSize caps the values per store query. Zero means
	// DefaultBatchSize.
	BatchSize int

	// Logger receives degradation warnings. Nil means discard.
	Logger logging.Logger
}

// Reconcile computes the full duplicate registry for the current view.
// A nil store behaves like an unreachable one: the store sub-pass is
// skipped and intra-file findings are still returned.
func Reconcile(ctx context.Context, rows []types.PreviewRow, tpl *template.Template, store Store, opts Options) []types.DuplicateRecord {
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	registry := fileDuplicates(rows, tpl.RequiredFields)

	if store == nil {
		log.Warn("record store unavailable, skipping store duplicate check for collection %q", tpl.TargetCollection)
		return registry
	}

	registry = append(registry, storeDuplicates(ctx, rows, tpl, store, batchSize, log)...)
	return registry
}

// =============================================================================
// INTRA-FILE SUB-PASS
// =============================================================================

// fileDuplicates flags, per required field, every later row whose non-empty
// value was already seen on an earlier row. This is advisory and deliberately
// independent of the mapper's blocking whole-tuple dedup gate.
func fileDuplicates(rows []types.PreviewRow, requiredFields []string) []types.DuplicateRecord {
	var records []types.DuplicateRecord

	for _, field := range requiredFields {
		firstSeen := make(map[string]int, len(rows))
		for i, row := range rows {
			value := strings.TrimSpace(row[field])
			if value == "" {
				continue
			}
			if _, seen := firstSeen[value]; seen {
				records = append(records, types.DuplicateRecord{
					RowIndex:        i,
					FieldValue:      value,
					DuplicateFields: []string{field},
					DuplicateType:   types.DuplicateCSV,
				})
				continue
			}
			firstSeen[value] = i
		}
	}

	return records
}

// =============================================================================
// STORE SUB-PASS
// =============================================================================

// storeDuplicates checks each required field's distinct values against the
// store. Fields fan out concurrently; each goroutine writes only its own
// result slot, so no further synchronization is needed on join.
func storeDuplicates(ctx context.Context, rows []types.PreviewRow, tpl *template.Template, store Store, batchSize int, log logging.Logger) []types.DuplicateRecord {
	perField := make([][]types.DuplicateRecord, len(tpl.RequiredFields))

	var g errgroup.Group
	for fi, field := range tpl.RequiredFields {
		g.Go(func() error {
			existing, err := existingValues(ctx, rows, tpl.TargetCollection, field, store, batchSize)
			if err != nil {
				// Isolated failure domain: this field contributes nothing,
				// the other lookups keep going.
				log.Warn("store duplicate check failed for field %q: %v", field, err)
				return nil
			}
			perField[fi] = flagExisting(rows, field, existing)
			return nil
		})
	}
	// Goroutines never return errors; Wait is a join.
	_ = g.Wait()

	var records []types.DuplicateRecord
	for _, fieldRecords := range perField {
		records = append(records, fieldRecords...)
	}
	return records
}

// existingValues collects the distinct non-empty values for one field and
// queries the store in sequential batches, unioning the returned values.
func existingValues(ctx context.Context, rows []types.PreviewRow, collection, field string, store Store, batchSize int) (map[string]bool, error) {
	seen := make(map[string]bool, len(rows))
	var distinct []string
	for _, row := range rows {
		value := strings.TrimSpace(row[field])
		if value == "" || seen[value] {
			continue
		}
		seen[value] = true
		distinct = append(distinct, value)
	}

	existing := make(map[string]bool)
	for start := 0; start < len(distinct); start += batchSize {
		end := start + batchSize
		if end > len(distinct) {
			end = len(distinct)
		}
		found, err := store.ExistingValues(ctx, collection, field, distinct[start:end])
		if err != nil {
			return nil, err
		}
		for _, v := range found {
			existing[v] = true
		}
	}

	return existing, nil
}

// flagExisting flags every row whose value for the field is in the
// existing-value set.
func flagExisting(rows []types.PreviewRow, field string, existing map[string]bool) []types.DuplicateRecord {
	var records []types.DuplicateRecord
	for i, row := range rows {
		value := strings.TrimSpace(row[field])
		if value == "" || !existing[value] {
			continue
		}
		records = append(records, types.DuplicateRecord{
			RowIndex:        i,
			FieldValue:      value,
			DuplicateFields: []string{field},
			DuplicateType:   types.DuplicateStore,
		})
	}
	return records
}

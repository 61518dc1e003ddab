package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendorvault/importer/internal/template"
	"github.com/vendorvault/importer/internal/types"
)

// fakeStore records every query and answers from a fixed set of existing
// values per field. Safe for the reconciler's concurrent per-field lookups.
type fakeStore struct {
	mu       sync.Mutex
	existing map[string][]string // field -> existing values
	failFor  map[string]bool     // field -> return an error
	calls    []storeCall
}

type storeCall struct {
	collection string
	field      string
	count      int
}

func (f *fakeStore) ExistingValues(ctx context.Context, collection, field string, values []string) ([]string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, storeCall{collection: collection, field: field, count: len(values)})
	f.mu.Unlock()

	if f.failFor[field] {
		return nil, errors.New("store offline")
	}

	known := make(map[string]bool)
	for _, v := range f.existing[field] {
		known[v] = true
	}
	var found []string
	for _, v := range values {
		if known[v] {
			found = append(found, v)
		}
	}
	return found, nil
}

func (f *fakeStore) callsFor(field string) []storeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []storeCall
	for _, c := range f.calls {
		if c.field == field {
			out = append(out, c)
		}
	}
	return out
}

func vendorTemplate() *template.Template {
	return &template.Template{
		Name:             "vendors",
		TargetCollection: "vendors",
		RequiredFields:   []string{"vendorId", "vendorName"},
	}
}

func TestReconcile_IntraFileDuplicatesPerField(t *testing.T) {
	rows := []types.PreviewRow{
		{"vendorId": "V1", "vendorName": "Acme"},
		{"vendorId": "V2", "vendorName": "Globex"},
		{"vendorId": "V1", "vendorName": "Initech"},
	}

	registry := Reconcile(context.Background(), rows, vendorTemplate(), nil, Options{})

	require.Len(t, registry, 1)
	rec := registry[0]
	assert.Equal(t, 2, rec.RowIndex)
	assert.Equal(t, "V1", rec.FieldValue)
	assert.Equal(t, []string{"vendorId"}, rec.DuplicateFields)
	assert.Equal(t, types.DuplicateCSV, rec.DuplicateType)
}

func TestReconcile_EmptyValuesAreNeverDuplicates(t *testing.T) {
	rows := []types.PreviewRow{
		{"vendorId": "", "vendorName": "Acme"},
		{"vendorId": "", "vendorName": "Globex"},
	}

	registry := Reconcile(context.Background(), rows, vendorTemplate(), nil, Options{})
	assert.Empty(t, registry)
}

func TestReconcile_StoreBatching(t *testing.T) {
	// 35 distinct values for one required field must produce exactly two
	// batches: 30 then 5.
	rows := make([]types.PreviewRow, 35)
	for i := range rows {
		rows[i] = types.PreviewRow{
			"vendorId":   fmt.Sprintf("V%02d", i),
			"vendorName": "same-name",
		}
	}
	fs := &fakeStore{}

	Reconcile(context.Background(), rows, vendorTemplate(), fs, Options{})

	idCalls := fs.callsFor("vendorId")
	require.Len(t, idCalls, 2)
	assert.Equal(t, 30, idCalls[0].count)
	assert.Equal(t, 5, idCalls[1].count)
	assert.Equal(t, "vendors", idCalls[0].collection)

	// 35 rows sharing one name collapse to a single distinct value.
	nameCalls := fs.callsFor("vendorName")
	require.Len(t, nameCalls, 1)
	assert.Equal(t, 1, nameCalls[0].count)
}

func TestReconcile_StoreDuplicatesFlagged(t *testing.T) {
	rows := []types.PreviewRow{
		{"vendorId": "V1", "vendorName": "Acme"},
		{"vendorId": "V2", "vendorName": "Globex"},
	}
	fs := &fakeStore{existing: map[string][]string{
		"vendorId": {"V2"},
	}}

	registry := Reconcile(context.Background(), rows, vendorTemplate(), fs, Options{})

	require.Len(t, registry, 1)
	rec := registry[0]
	assert.Equal(t, 1, rec.RowIndex)
	assert.Equal(t, "V2", rec.FieldValue)
	assert.Equal(t, types.DuplicateStore, rec.DuplicateType)
}

func TestReconcile_MergesBothSources(t *testing.T) {
	rows := []types.PreviewRow{
		{"vendorId": "V1", "vendorName": "Acme"},
		{"vendorId": "V1", "vendorName": "Globex"},
	}
	fs := &fakeStore{existing: map[string][]string{
		"vendorName": {"Globex"},
	}}

	registry := Reconcile(context.Background(), rows, vendorTemplate(), fs, Options{})

	var csvCount, storeCount int
	for _, rec := range registry {
		switch rec.DuplicateType {
		case types.DuplicateCSV:
			csvCount++
		case types.DuplicateStore:
			storeCount++
		}
	}
	assert.Equal(t, 1, csvCount, "intra-file V1 repeat")
	assert.Equal(t, 1, storeCount, "store-existing Globex")
}

func TestReconcile_NilStoreDegradesToFileOnly(t *testing.T) {
	rows := []types.PreviewRow{
		{"vendorId": "V1", "vendorName": "Acme"},
		{"vendorId": "V1", "vendorName": "Globex"},
	}

	registry := Reconcile(context.Background(), rows, vendorTemplate(), nil, Options{})

	require.Len(t, registry, 1)
	assert.Equal(t, types.DuplicateCSV, registry[0].DuplicateType)
}

func TestReconcile_FieldFailureIsIsolated(t *testing.T) {
	rows := []types.PreviewRow{
		{"vendorId": "V1", "vendorName": "Acme"},
	}
	fs := &fakeStore{
		existing: map[string][]string{"vendorName": {"Acme"}},
		failFor:  map[string]bool{"vendorId": true},
	}

	registry := Reconcile(context.Background(), rows, vendorTemplate(), fs, Options{})

	// vendorId's lookup failed; vendorName's findings still arrive.
	require.Len(t, registry, 1)
	assert.Equal(t, []string{"vendorName"}, registry[0].DuplicateFields)
	assert.Equal(t, types.DuplicateStore, registry[0].DuplicateType)
}

func TestReconcile_CustomBatchSize(t *testing.T) {
	rows := make([]types.PreviewRow, 5)
	for i := range rows {
		rows[i] = types.PreviewRow{"vendorId": fmt.Sprintf("V%d", i), "vendorName": fmt.Sprintf("N%d", i)}
	}
	fs := &fakeStore{}

	Reconcile(context.Background(), rows, vendorTemplate(), fs, Options{BatchSize: 2})

	idCalls := fs.callsFor("vendorId")
	require.Len(t, idCalls, 3)
	assert.Equal(t, []storeCall{
		{collection: "vendors", field: "vendorId", count: 2},
		{collection: "vendors", field: "vendorId", count: 2},
		{collection: "vendors", field: "vendorId", count: 1},
	}, idCalls)
}

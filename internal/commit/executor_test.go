package commit

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendorvault/importer/internal/session"
	"github.com/vendorvault/importer/internal/tabular"
	"github.com/vendorvault/importer/internal/template"
	"github.com/vendorvault/importer/internal/types"
)

// fakeStore records inserted documents and fails when the row's vendorId is
// listed in failOn.
type fakeStore struct {
	mu     sync.Mutex
	failOn map[string]bool
	docs   []insertedDoc
}

type insertedDoc struct {
	collection string
	doc        map[string]interface{}
}

func (f *fakeStore) Insert(_ context.Context, collection string, doc map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, _ := doc["vendorId"].(string); f.failOn[id] {
		return fmt.Errorf("write conflict on %s", id)
	}
	f.docs = append(f.docs, insertedDoc{collection: collection, doc: doc})
	return nil
}

// commitSession builds a reviewing session with 5 rows; row 1 carries a
// validation error and row 3 a duplicate record.
func commitSession(t *testing.T) *session.Session {
	t.Helper()

	tpl := &template.Template{
		Name:             "vendors",
		TargetCollection: "vendors",
		RequiredFields:   []string{"vendorId"},
	}
	rows := make([]types.PreviewRow, 5)
	for i := range rows {
		rows[i] = types.PreviewRow{
			"vendorId":   fmt.Sprintf("V%d", i),
			"vendorName": fmt.Sprintf("Vendor %d", i),
		}
	}

	sess := session.New(tpl)
	sess.LoadParse(&tabular.Result{
		Headers:       []string{"vendorId", "vendorName"},
		Rows:          rows,
		DataRowOffset: tabular.DefaultDataRowOffset,
	})
	sess.SetMapped([]types.ValidationError{
		{RowIndex: 1, Field: "vendorId", Message: "row 4: required field missing"},
	})
	token, ok := sess.BeginReconcile()
	require.True(t, ok)
	require.True(t, sess.CompleteReconcile(token, []types.DuplicateRecord{
		{RowIndex: 3, FieldValue: "V3", DuplicateFields: []string{"vendorId"}, DuplicateType: types.DuplicateStore},
	}))
	return sess
}

func TestExecute_DefaultSelectionSkipsFlaggedRows(t *testing.T) {
	sess := commitSession(t)
	store := &fakeStore{}

	result, err := Execute(context.Background(), sess, nil, store, Options{User: "alice"})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Skipped, "flagged rows are left behind, not failed")
	assert.Equal(t, 3, result.Success)
	assert.Equal(t, 0, result.Failed)
	assert.Empty(t, result.Errors)

	require.Len(t, store.docs, 3)
	assert.Equal(t, "V0", store.docs[0].doc["vendorId"])
	assert.Equal(t, "V2", store.docs[1].doc["vendorId"])
	assert.Equal(t, "V4", store.docs[2].doc["vendorId"])
	assert.Equal(t, "vendors", store.docs[0].collection)
	assert.Equal(t, session.StateCommitted, sess.State())
}

func TestExecute_PartialFailureContinues(t *testing.T) {
	sess := commitSession(t)
	store := &fakeStore{failOn: map[string]bool{"V2": true}}

	result, err := Execute(context.Background(), sess, nil, store, Options{User: "alice"})
	require.NoError(t, err, "row failures never abort the run")

	assert.Equal(t, 2, result.Success)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 2, result.Skipped)
	require.Len(t, result.Errors, 1)
	// Row index 2 displays as row 5 with the default offset.
	assert.Equal(t, "row 5: write conflict on V2", result.Errors[0])
	assert.Equal(t, session.StateCommitted, sess.State(), "failures still reach the terminal state")
}

func TestExecute_ExplicitSelection(t *testing.T) {
	sess := commitSession(t)
	store := &fakeStore{}

	// An explicit selection may include flagged rows.
	result, err := Execute(context.Background(), sess, []int{1, 3}, store, Options{User: "alice"})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Success)
	assert.Equal(t, 3, result.Skipped)
	require.Len(t, store.docs, 2)
	assert.Equal(t, "V1", store.docs[0].doc["vendorId"])
	assert.Equal(t, "V3", store.docs[1].doc["vendorId"])
}

func TestExecute_RejectsRepeatedSelection(t *testing.T) {
	sess := commitSession(t)
	store := &fakeStore{}

	result, err := Execute(context.Background(), sess, []int{0, 0}, store, Options{User: "alice"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "repeated")
	assert.Nil(t, result)
	assert.Empty(t, store.docs, "a repeated index must not double-persist the row")
	assert.NotEqual(t, session.StateCommitted, sess.State())
}

func TestExecute_RejectsOutOfRangeSelection(t *testing.T) {
	sess := commitSession(t)
	store := &fakeStore{}

	result, err := Execute(context.Background(), sess, []int{5}, store, Options{User: "alice"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
	assert.Nil(t, result)
	assert.Empty(t, store.docs)

	_, err = Execute(context.Background(), sess, []int{-1}, store, Options{User: "alice"})
	require.Error(t, err)
}

func TestExecute_EmptySelection(t *testing.T) {
	sess := commitSession(t)
	store := &fakeStore{}

	result, err := Execute(context.Background(), sess, []int{}, store, Options{User: "alice"})
	assert.ErrorIs(t, err, ErrNoEligibleRows)
	assert.Nil(t, result)
	assert.Empty(t, store.docs, "nothing is written before the abort")
	assert.NotEqual(t, session.StateCommitted, sess.State())
}

func TestExecute_NoEligibleRowsByDefault(t *testing.T) {
	tpl := &template.Template{
		Name:             "vendors",
		TargetCollection: "vendors",
		RequiredFields:   []string{"vendorId"},
	}
	sess := session.New(tpl)
	sess.LoadParse(&tabular.Result{
		Headers:       []string{"vendorId"},
		Rows:          []types.PreviewRow{{"vendorId": ""}},
		DataRowOffset: tabular.DefaultDataRowOffset,
	})
	sess.SetMapped([]types.ValidationError{
		{RowIndex: 0, Field: "vendorId", Message: "row 3: required field missing"},
	})

	_, err := Execute(context.Background(), sess, nil, &fakeStore{}, Options{User: "alice"})
	assert.ErrorIs(t, err, ErrNoEligibleRows)
}

func TestExecute_DocumentPayload(t *testing.T) {
	sess := commitSession(t)
	require.NoError(t, sess.SetCell(0, "vendorName", "Renamed Widgets"))

	fixed := time.Date(2024, 6, 1, 12, 30, 0, 0, time.FixedZone("EST", -5*3600))
	store := &fakeStore{}

	_, err := Execute(context.Background(), sess, []int{0}, store, Options{
		User: "bob",
		Now:  func() time.Time { return fixed },
	})
	require.NoError(t, err)

	require.Len(t, store.docs, 1)
	doc := store.docs[0].doc
	assert.Equal(t, "V0", doc["vendorId"])
	assert.Equal(t, "Renamed Widgets", doc["vendorName"], "overlay edits are what gets persisted")
	assert.Equal(t, "bob", doc["importedBy"])
	assert.Equal(t, fixed.UTC(), doc["createdAt"], "timestamp is normalized to UTC")
	_, hasEmptyKey := doc[""]
	assert.False(t, hasEmptyKey)
}

func TestExecute_ProgressMonotoneEndsAt100(t *testing.T) {
	sess := commitSession(t)
	store := &fakeStore{failOn: map[string]bool{"V2": true}}

	var seen []int
	_, err := Execute(context.Background(), sess, nil, store, Options{
		User:     "alice",
		Progress: func(p int) { seen = append(seen, p) },
	})
	require.NoError(t, err)

	require.Len(t, seen, 3, "one callback per processed row, failures included")
	for i := 1; i < len(seen); i++ {
		assert.GreaterOrEqual(t, seen[i], seen[i-1])
	}
	assert.Equal(t, 100, seen[len(seen)-1])
	assert.Equal(t, 33, seen[0], "33.3 percent rounds to 33")
}

func TestSortSelection(t *testing.T) {
	selection := []int{4, 0, 2}
	SortSelection(selection)
	assert.Equal(t, []int{0, 2, 4}, selection)
}

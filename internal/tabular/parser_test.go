package tabular

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_EmptyInput(t *testing.T) {
	_, err := Parse("", Options{})
	require.ErrorIs(t, err, ErrInsufficientData)
}

func TestParse_HeaderOnly(t *testing.T) {
	_, err := Parse("empId,name\n", Options{})
	require.ErrorIs(t, err, ErrInsufficientData)
}

func TestParse_HeaderAndDescriptionOnly(t *testing.T) {
	_, err := Parse("empId,name\nEmployee ID,Full name\n", Options{})
	require.ErrorIs(t, err, ErrInsufficientData)
}

func TestParse_NoUsableHeaders(t *testing.T) {
	text := " ,_1,_12\ndesc,desc,desc\na,b,c\n"
	_, err := Parse(text, Options{})
	require.ErrorIs(t, err, ErrNoHeaders)
}

func TestParse_DuplicateHeaders(t *testing.T) {
	text := "empId,name,empId\ndesc,desc,desc\n1,Ann,1\n"
	res, err := Parse(text, Options{})
	require.ErrorIs(t, err, ErrDuplicateHeader)
	assert.ErrorContains(t, err, "empId")
	assert.Nil(t, res, "a duplicate header must produce no preview rows")
}

func TestParse_DuplicateHeadersAreCaseSensitive(t *testing.T) {
	// "empId" and "EmpID" are distinct columns.
	text := "empId,EmpID\ndesc,desc\n1,2\n"
	res, err := Parse(text, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"empId", "EmpID"}, res.Headers)
}

func TestParse_DropsPlaceholderAndBlankColumns(t *testing.T) {
	text := "empId,,_3,name\nID,,,Name\n1,junk,junk,Ann\n"
	res, err := Parse(text, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"empId", "name"}, res.Headers)
	require.Len(t, res.Rows, 1)
	// Values stay aligned to their original column positions.
	assert.Equal(t, "1", res.Rows[0]["empId"])
	assert.Equal(t, "Ann", res.Rows[0]["name"])
}

func TestParse_PadsShortRowsToHeaderWidth(t *testing.T) {
	text := "empId,name,dept\ndesc,desc,desc\n1,Ann\n"
	res, err := Parse(text, Options{})
	require.NoError(t, err)

	require.Len(t, res.Rows, 1)
	assert.Equal(t, "", res.Rows[0]["dept"], "missing trailing cells become empty strings")
}

func TestParse_DropsAllBlankDataRows(t *testing.T) {
	text := "empId,name\ndesc,desc\n1,Ann\n,\n  ,  \n2,Bob\n"
	res, err := Parse(text, Options{})
	require.NoError(t, err)

	// Blank rows vanish without holding a row index.
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "1", res.Rows[0]["empId"])
	assert.Equal(t, "2", res.Rows[1]["empId"])
}

func TestParse_SkipsBlankLinesBeforeHeader(t *testing.T) {
	text := "\n\nempId,name\ndesc,desc\n1,Ann\n"
	res, err := Parse(text, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"empId", "name"}, res.Headers)
	assert.Len(t, res.Rows, 1)
}

func TestParse_DescriptionRowIsNotData(t *testing.T) {
	text := "empId,name\nEmployee ID,Full legal name\n1,Ann\n"
	res, err := Parse(text, Options{})
	require.NoError(t, err)

	require.Len(t, res.Rows, 1)
	assert.Equal(t, "1", res.Rows[0]["empId"], "row 1 must be skipped as the description row")
}

func TestParse_TrimsCellValues(t *testing.T) {
	text := "empId,name\ndesc,desc\n 1 ,\" Ann \"\n"
	res, err := Parse(text, Options{})
	require.NoError(t, err)
	assert.Equal(t, "1", res.Rows[0]["empId"])
	assert.Equal(t, "Ann", res.Rows[0]["name"])
}

func TestParse_DefaultDataRowOffset(t *testing.T) {
	res, err := Parse("empId\ndesc\n1\n", Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultDataRowOffset, res.DataRowOffset)

	res, err = Parse("empId\ndesc\n1\n", Options{DataRowOffset: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, res.DataRowOffset)
}

func TestParse_CustomDelimiter(t *testing.T) {
	text := "empId|name\ndesc|desc\n1|Ann\n"
	res, err := Parse(text, Options{Delimiter: '|'})
	require.NoError(t, err)
	assert.Equal(t, []string{"empId", "name"}, res.Headers)
	assert.Equal(t, "Ann", res.Rows[0]["name"])
}

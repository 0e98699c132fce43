package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seeql-labs/seeql/internal/executor"
)

func sampleResult() *executor.Result {
	return &executor.Result{
		Columns: []string{"id", "name", "marks"},
		Rows: []executor.Row{
			{"id": int64(1), "name": "Amit", "marks": int64(85)},
			{"id": int64(2), "name": "Neha", "marks": int64(92)},
			{"id": int64(3), "name": nil, "marks": nil},
		},
		RowCount: 3,
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleResult()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "id,name,marks", lines[0])
	assert.Equal(t, "1,Amit,85", lines[1])
	assert.Equal(t, "2,Neha,92", lines[2])
	// NULL renders as empty cells.
	assert.Equal(t, "3,,", lines[3])
}

func TestWriteCSV_QuotesCommas(t *testing.T) {
	res := &executor.Result{
		Columns:  []string{"note"},
		Rows:     []executor.Row{{"note": `hello, "world"`}},
		RowCount: 1,
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, res))
	assert.Equal(t, "note\n\"hello, \"\"world\"\"\"\n", buf.String())
}

// The round-trip property: parsing the JSON export yields the same
// rows, including nulls.
func TestWriteJSON_RoundTrip(t *testing.T) {
	res := sampleResult()

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, res))

	var parsed []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &parsed))

	require.Len(t, parsed, res.RowCount)
	for i, row := range parsed {
		for _, col := range res.Columns {
			want := res.Rows[i][col]
			got, present := row[col]
			require.True(t, present, "row %d column %s missing", i, col)

			// JSON numbers decode as float64.
			if n, ok := want.(int64); ok {
				assert.EqualValues(t, n, got, "row %d column %s", i, col)
			} else {
				assert.Equal(t, want, got, "row %d column %s", i, col)
			}
		}
	}

	// Nulls survive as explicit JSON null, not absent keys.
	assert.Nil(t, parsed[2]["name"])
}

func TestWriteJSON_EmptyResult(t *testing.T) {
	res := &executor.Result{Columns: []string{"a"}, Rows: []executor.Row{}}

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, res))
	assert.Equal(t, "[]", strings.TrimSpace(buf.String()))
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderTable(&buf, sampleResult()))

	out := buf.String()
	assert.Contains(t, out, "Amit")
	assert.Contains(t, out, "NULL")
	assert.Contains(t, out, "(3 rows)")
}

func TestRenderTable_ZeroRows(t *testing.T) {
	res := &executor.Result{Columns: []string{"a"}, Rows: []executor.Row{}}

	var buf bytes.Buffer
	require.NoError(t, RenderTable(&buf, res))
	assert.Equal(t, "(0 rows)\n", buf.String())
}

func TestRenderTable_Truncated(t *testing.T) {
	res := sampleResult()
	res.Truncated = true

	var buf bytes.Buffer
	require.NoError(t, RenderTable(&buf, res))
	assert.Contains(t, buf.String(), "(3 rows, truncated)")
}

func TestRenderMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderMarkdown(&buf, sampleResult()))

	out := buf.String()
	assert.Contains(t, out, "| Amit")
	assert.Contains(t, out, "---")
}

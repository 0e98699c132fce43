// Package export serializes query results for download and for CLI
// display.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/seeql-labs/seeql/internal/executor"
)

// WriteCSV writes the result as CSV with a header row. NULL renders
// as an empty cell.
func WriteCSV(w io.Writer, res *executor.Result) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(res.Columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, row := range res.Rows {
		record := make([]string, len(res.Columns))
		for i, col := range res.Columns {
			if v := row[col]; v != nil {
				record[i] = formatValue(v)
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the rows as a JSON array of objects. NULL is
// preserved as JSON null, so a parse of the output round-trips to the
// original rows.
func WriteJSON(w io.Writer, res *executor.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res.Rows)
}

// RenderTable renders the result as a bordered terminal table with a
// trailing row count, matching the CLI's default output.
func RenderTable(w io.Writer, res *executor.Result) error {
	if res.RowCount == 0 {
		_, err := fmt.Fprintln(w, "(0 rows)")
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(res.Columns))
	for i, col := range res.Columns {
		header[i] = col
	}
	t.AppendHeader(header)

	for _, row := range res.Rows {
		tr := make(table.Row, len(res.Columns))
		for i, col := range res.Columns {
			tr[i] = displayValue(row[col])
		}
		t.AppendRow(tr)
	}

	t.Render()
	suffix := ""
	if res.Truncated {
		suffix = ", truncated"
	}
	_, err := fmt.Fprintf(w, "(%d rows%s)\n", res.RowCount, suffix)
	return err
}

// RenderMarkdown renders the result as a markdown table.
func RenderMarkdown(w io.Writer, res *executor.Result) error {
	if res.RowCount == 0 {
		_, err := fmt.Fprintln(w, "(0 rows)")
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)

	header := make(table.Row, len(res.Columns))
	for i, col := range res.Columns {
		header[i] = col
	}
	t.AppendHeader(header)

	for _, row := range res.Rows {
		tr := make(table.Row, len(res.Columns))
		for i, col := range res.Columns {
			tr[i] = displayValue(row[col])
		}
		t.AppendRow(tr)
	}

	t.RenderMarkdown()
	return nil
}

// formatValue renders a value for CSV output.
func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// displayValue renders a value for table output, making NULL visible.
func displayValue(v any) string {
	if v == nil {
		return "NULL"
	}
	return formatValue(v)
}

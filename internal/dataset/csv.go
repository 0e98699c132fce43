package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// RegisterCSV parses a CSV with a header row and registers it as an
// uploaded dataset backed by a generated user_ table. Cell values are
// typed by parsing: integers, then floats, then text; empty cells
// become NULL.
func (r *Registry) RegisterCSV(ctx context.Context, name string, src io.Reader) (*Dataset, error) {
	reader := csv.NewReader(src)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = sanitizeColumn(h, i)
	}

	var rows [][]any
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row %d: %w", len(rows)+2, err)
		}

		row := make([]any, len(columns))
		for i := range columns {
			if i < len(record) {
				row[i] = parseCell(record[i])
			}
		}
		rows = append(rows, row)
	}

	ds := &Dataset{
		ID:       uuid.New().String(),
		Name:     name,
		Table:    GeneratedTableName(),
		Columns:  columns,
		RowCount: len(rows),
	}
	return r.register(ctx, ds, inferColumnTypes(columns, rows), rows)
}

// sanitizeColumn turns a CSV header cell into a safe identifier,
// falling back to a positional name for unusable headers.
func sanitizeColumn(h string, pos int) string {
	s := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		case r == ' ' || r == '-':
			return '_'
		default:
			return -1
		}
	}, strings.TrimSpace(h))
	if !validIdent.MatchString(s) {
		return fmt.Sprintf("column_%d", pos+1)
	}
	return strings.ToLower(s)
}

// parseCell types a CSV cell: integer, float, NULL for empty, else
// text as written.
func parseCell(cell string) any {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		return nil
	}
	if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return f
	}
	return cell
}

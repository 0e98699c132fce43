package executor

// Row maps column names to scalar values. NULL is represented as nil.
type Row map[string]any

// Result is one query's output. Columns preserves the engine's column
// order; Rows preserves the engine's row order, never re-sorted.
type Result struct {
	Columns   []string `json:"columns"`
	Rows      []Row    `json:"rows"`
	RowCount  int      `json:"row_count"`
	Truncated bool     `json:"truncated"`
	ElapsedMS int64    `json:"elapsed_ms"`
}

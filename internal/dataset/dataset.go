// Package dataset manages the named tables available for querying:
// the built-ins seeded at startup and any uploaded CSVs. The registry
// is process-scoped and append-only; a dataset, once registered,
// never changes and is never removed while the process lives.
package dataset

// Dataset describes one queryable table. Immutable after
// registration.
type Dataset struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// Table is the underlying table name to use in SQL.
	Table string `json:"table"`

	// Columns lists column names in table order.
	Columns []string `json:"columns"`

	RowCount int `json:"row_count"`

	// BuiltIn distinguishes shipped datasets from uploads.
	BuiltIn bool `json:"built_in"`

	ExampleQueries []string `json:"example_queries,omitempty"`
	LearningGoals  []string `json:"learning_goals,omitempty"`
}

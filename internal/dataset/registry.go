package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Registry holds every registered dataset and the database they live
// in. Reads take the read lock; registration takes the write lock and
// only ever appends, so queries running against existing datasets are
// never invalidated by an upload.
type Registry struct {
	mu       sync.RWMutex
	db       *sql.DB
	datasets []*Dataset
	byName   map[string]*Dataset
	logger   *slog.Logger
}

// NewRegistry creates an empty registry over db.
func NewRegistry(db *sql.DB, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		db:     db,
		byName: make(map[string]*Dataset),
		logger: logger,
	}
}

// validIdent matches safe SQL identifiers. Table and column names are
// interpolated into DDL, so anything else is rejected.
var validIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Register creates a table with the given columns, inserts rows, and
// registers the dataset. Column types are inferred from the row
// values. Rows must have one value per column.
func (r *Registry) Register(ctx context.Context, name string, columns []string, rows [][]any) (*Dataset, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("dataset %q has no columns", name)
	}

	table := tableNameFor(name)
	colTypes := inferColumnTypes(columns, rows)

	ds := &Dataset{
		ID:       uuid.New().String(),
		Name:     name,
		Table:    table,
		Columns:  append([]string(nil), columns...),
		RowCount: len(rows),
	}
	return r.register(ctx, ds, colTypes, rows)
}

// register creates the backing table, loads rows, and appends the
// dataset. The write lock is held for the whole load: the duplicate
// check and the table creation must be one atomic step, or two
// concurrent registrations of the same name would leave the loser's
// table orphaned in the engine.
func (r *Registry) register(ctx context.Context, ds *Dataset, colTypes []string, rows [][]any) (*Dataset, error) {
	for _, c := range ds.Columns {
		if !validIdent.MatchString(c) {
			return nil, fmt.Errorf("invalid column name %q", c)
		}
	}
	if !validIdent.MatchString(ds.Table) {
		return nil, fmt.Errorf("invalid table name %q", ds.Table)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[ds.Name]; exists {
		return nil, fmt.Errorf("dataset %q already registered", ds.Name)
	}

	defs := make([]string, len(ds.Columns))
	for i, c := range ds.Columns {
		defs[i] = fmt.Sprintf("%s %s", c, colTypes[i])
	}
	ddl := fmt.Sprintf("CREATE TABLE %s (%s)", ds.Table, strings.Join(defs, ", "))

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("failed to create table %s: %w", ds.Table, err)
	}

	if len(rows) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ds.Columns)), ", ")
		insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			ds.Table, strings.Join(ds.Columns, ", "), placeholders)

		stmt, err := tx.PrepareContext(ctx, insert)
		if err != nil {
			return nil, fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for i, row := range rows {
			if len(row) != len(ds.Columns) {
				return nil, fmt.Errorf("row %d has %d values, want %d", i, len(row), len(ds.Columns))
			}
			if _, err := stmt.ExecContext(ctx, row...); err != nil {
				return nil, fmt.Errorf("failed to insert row %d: %w", i, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit dataset %s: %w", ds.Name, err)
	}

	r.datasets = append(r.datasets, ds)
	r.byName[ds.Name] = ds

	r.logger.Info("dataset registered",
		"name", ds.Name,
		"table", ds.Table,
		"columns", len(ds.Columns),
		"rows", ds.RowCount,
	)
	return ds, nil
}

// List returns all datasets in registration order.
func (r *Registry) List() []*Dataset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Dataset(nil), r.datasets...)
}

// Get returns the dataset with the given name.
func (r *Registry) Get(name string) (*Dataset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ds, ok := r.byName[name]
	return ds, ok
}

// Count returns the number of registered datasets.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.datasets)
}

// tableNameFor derives a safe table name from a dataset name: the
// sanitized name when possible, otherwise a generated user_ table
// like the upload path uses.
func tableNameFor(name string) string {
	s := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, strings.TrimSpace(name))
	if validIdent.MatchString(s) {
		return strings.ToLower(s)
	}
	return GeneratedTableName()
}

// GeneratedTableName returns a fresh user_xxxxxxxx table name.
func GeneratedTableName() string {
	return "user_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}

// inferColumnTypes picks INTEGER, REAL or TEXT per column by scanning
// the row values. A column that is all integers is INTEGER; integers
// mixed with floats is REAL; anything else is TEXT. Nil values are
// ignored for inference.
func inferColumnTypes(columns []string, rows [][]any) []string {
	types := make([]string, len(columns))
	for i := range columns {
		hasFloat, hasOther, hasValue := false, false, false
		for _, row := range rows {
			if i >= len(row) || row[i] == nil {
				continue
			}
			hasValue = true
			switch row[i].(type) {
			case int, int32, int64:
			case float32, float64:
				hasFloat = true
			default:
				hasOther = true
			}
		}
		switch {
		case !hasValue || hasOther:
			types[i] = "TEXT"
		case hasFloat:
			types[i] = "REAL"
		default:
			types[i] = "INTEGER"
		}
	}
	return types
}

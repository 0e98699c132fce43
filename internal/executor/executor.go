// Package executor runs user SQL against the embedded SQLite engine.
// It owns the database handle the dataset registry populates and does
// no interpretation of queries beyond the statement guard and the
// result cap: errors come back as the engine reported them, for the
// translator to explain.
package executor

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // sqlite driver (pure Go)
)

const (
	// DefaultRowLimit caps the rows returned per query.
	DefaultRowLimit = 1000

	// DefaultTimeout bounds query execution.
	DefaultTimeout = 10 * time.Second
)

// Options tune the engine's resource caps. Zero values take defaults.
type Options struct {
	RowLimit int
	Timeout  time.Duration
	Logger   *slog.Logger
}

// Engine wraps the embedded database.
type Engine struct {
	db       *sql.DB
	rowLimit int
	timeout  time.Duration
	logger   *slog.Logger
}

// Open opens the embedded database. Use ":memory:" for an in-memory
// engine, which is the normal mode for a playground process.
func Open(path string, opts Options) (*Engine, error) {
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// The in-memory database lives in a single connection; a second
	// connection would see an empty schema.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	e := &Engine{
		db:       db,
		rowLimit: opts.RowLimit,
		timeout:  opts.Timeout,
		logger:   opts.Logger,
	}
	if e.rowLimit <= 0 {
		e.rowLimit = DefaultRowLimit
	}
	if e.timeout <= 0 {
		e.timeout = DefaultTimeout
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e, nil
}

// NewWithDB wraps an existing handle. Used by tests with sqlmock.
func NewWithDB(db *sql.DB, opts Options) *Engine {
	e := &Engine{
		db:       db,
		rowLimit: opts.RowLimit,
		timeout:  opts.Timeout,
		logger:   opts.Logger,
	}
	if e.rowLimit <= 0 {
		e.rowLimit = DefaultRowLimit
	}
	if e.timeout <= 0 {
		e.timeout = DefaultTimeout
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// DB exposes the underlying handle for the dataset registry.
func (e *Engine) DB() *sql.DB {
	return e.db
}

// Close closes the database.
func (e *Engine) Close() error {
	if e.db != nil {
		return e.db.Close()
	}
	return nil
}

// Execute runs the query and collects up to the row limit. The guard
// is checked first; guard violations are *BlockedError, engine
// failures are returned untranslated. A query that succeeds with zero
// rows returns a Result with RowCount 0, which is a valid state
// distinct from an error.
func (e *Engine) Execute(ctx context.Context, query string) (*Result, error) {
	if err := CheckGuard(query); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &Result{Columns: cols, Rows: []Row{}}
	for rows.Next() {
		if len(result.Rows) >= e.rowLimit {
			result.Truncated = true
			break
		}

		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(Row, len(cols))
		for i, col := range cols {
			row[col] = normalizeValue(values[i])
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result.RowCount = len(result.Rows)
	result.ElapsedMS = time.Since(start).Milliseconds()

	e.logger.Debug("query executed",
		"rows", result.RowCount,
		"truncated", result.Truncated,
		"elapsed_ms", result.ElapsedMS,
	)
	return result, nil
}

// normalizeValue converts driver values to JSON-friendly Go types.
// Byte slices become strings; NULL stays nil.
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

package dataset

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// builtin describes one shipped dataset.
type builtin struct {
	name           string
	description    string
	columns        []string
	rows           [][]any
	exampleQueries []string
	learningGoals  []string
}

var builtins = []builtin{
	{
		name:        "students",
		description: "A small class of students and their exam marks.",
		columns:     []string{"id", "name", "marks"},
		rows: [][]any{
			{1, "Amit", 85},
			{2, "Neha", 92},
			{3, "Rahul", 70},
			{4, "Priya", 88},
			{5, "Vikram", 65},
		},
		exampleQueries: []string{
			"SELECT * FROM students",
			"SELECT name, marks FROM students WHERE marks > 80",
			"SELECT name FROM students ORDER BY marks DESC LIMIT 3",
		},
		learningGoals: []string{
			"Select specific columns",
			"Filter rows with WHERE",
			"Sort results with ORDER BY",
		},
	},
	{
		name:        "employees",
		description: "Employees of a small company with departments and salaries.",
		columns:     []string{"id", "name", "department", "salary"},
		rows: [][]any{
			{1, "Ravi", "IT", 60000},
			{2, "Anita", "HR", 50000},
			{3, "Suresh", "IT", 72000},
			{4, "Kavita", "Finance", 55000},
		},
		exampleQueries: []string{
			"SELECT * FROM employees",
			"SELECT department, AVG(salary) FROM employees GROUP BY department",
			"SELECT name FROM employees WHERE department = 'IT'",
		},
		learningGoals: []string{
			"Group rows with GROUP BY",
			"Aggregate with AVG and COUNT",
			"Filter text values",
		},
	},
}

// SeedBuiltins registers the shipped datasets. Called once at process
// start, before any uploads.
func (r *Registry) SeedBuiltins(ctx context.Context) error {
	for _, b := range builtins {
		ds := &Dataset{
			ID:             uuid.New().String(),
			Name:           b.name,
			Description:    b.description,
			Table:          b.name,
			Columns:        append([]string(nil), b.columns...),
			RowCount:       len(b.rows),
			BuiltIn:        true,
			ExampleQueries: b.exampleQueries,
			LearningGoals:  b.learningGoals,
		}
		if _, err := r.register(ctx, ds, inferColumnTypes(b.columns, b.rows), b.rows); err != nil {
			return fmt.Errorf("failed to seed builtin %s: %w", b.name, err)
		}
	}
	return nil
}

package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seeql-labs/seeql/internal/executor"
	"github.com/seeql-labs/seeql/internal/explain"
	"github.com/seeql-labs/seeql/internal/export"
	"github.com/seeql-labs/seeql/internal/translate"
)

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Format  string
	Input   string
	Explain bool
}

// newQueryCommand creates the query command.
func newQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query [SQL]",
		Short: "Run SQL against the practice datasets",
		Long: `Run a SQL query against the built-in practice datasets (plus any
CSVs from the datasets directory) and print the result.

When invoked without arguments on a terminal, enters interactive REPL
mode.`,
		Example: `  # Execute SQL directly
  seeql query "SELECT * FROM students WHERE marks > 80"

  # Output as JSON
  seeql query "SELECT * FROM employees" --format json

  # Include the step-by-step explanation
  seeql query "SELECT name FROM students ORDER BY marks DESC" --explain

  # Interactive mode
  seeql query`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "table", "Output format: table, json, csv, md")
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read SQL from file")
	cmd.Flags().BoolVarP(&opts.Explain, "explain", "e", false, "Print the step-by-step explanation before the result")

	return cmd
}

func runQuery(cmd *cobra.Command, args []string, opts *QueryOptions) error {
	ctx := cmd.Context()

	eng, registry, err := newEngine(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	if cfg.DatasetsDir != "" {
		if err := registry.RegisterDir(ctx, cfg.DatasetsDir); err != nil {
			return fmt.Errorf("failed to load datasets dir: %w", err)
		}
	}

	// Determine SQL source.
	var sqlQuery string
	switch {
	case len(args) > 0:
		sqlQuery = strings.Join(args, " ")
	case opts.Input != "":
		content, err := os.ReadFile(opts.Input)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		sqlQuery = string(content)
	case !isTerminal(os.Stdin):
		content, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		sqlQuery = string(content)
	default:
		return runREPL(cmd, eng, opts)
	}

	return executeAndRender(cmd, eng, sqlQuery, opts)
}

// executeAndRender runs one query and renders the result, the
// translated explanation on error, and optionally the explain steps.
func executeAndRender(cmd *cobra.Command, eng *executor.Engine, sqlQuery string, opts *QueryOptions) error {
	out := cmd.OutOrStdout()

	if opts.Explain {
		for i, step := range explain.Steps(sqlQuery) {
			fmt.Fprintf(out, "%d. %s\n", i+1, step)
		}
		fmt.Fprintln(out)
	}

	result, err := eng.Execute(cmd.Context(), sqlQuery)
	if err != nil {
		printExplanation(out, err)
		return nil
	}

	return renderResult(out, result, opts.Format)
}

// printExplanation prints a translated error the way the API would
// return it.
func printExplanation(w io.Writer, err error) {
	exp := translate.Translate(err.Error())

	fmt.Fprintln(w, "The query did not run.")
	fmt.Fprintln(w)
	printSection(w, "Meaning", exp.Meaning)
	printSection(w, "Reason", exp.Reason)
	printSection(w, "How to fix", exp.Fix)
}

func printSection(w io.Writer, title string, lines []string) {
	if len(lines) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", title)
	for _, l := range lines {
		fmt.Fprintf(w, "  - %s\n", l)
	}
}

// renderResult writes the result in the requested format.
func renderResult(w io.Writer, result *executor.Result, format string) error {
	switch format {
	case "json":
		return export.WriteJSON(w, result)
	case "csv":
		return export.WriteCSV(w, result)
	case "md", "markdown":
		return export.RenderMarkdown(w, result)
	default:
		return export.RenderTable(w, result)
	}
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

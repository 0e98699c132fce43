package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// newExplainCommand creates the explain command.
func newExplainCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "explain <SQL>",
		Short: "Explain what a SQL query does, step by step",
		Long: `Explain a SQL query as numbered plain-English steps, in the order
the database logically executes them (FROM, then WHERE, then SELECT,
and so on). The query is not run.`,
		Example: `  seeql explain "SELECT * FROM students WHERE marks > 80"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sqlQuery := strings.Join(args, " ")

			steps, method := newExplainer().Explain(cmd.Context(), sqlQuery)
			for i, step := range steps {
				fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, step)
			}
			if cfg.Verbose {
				fmt.Fprintf(cmd.ErrOrStderr(), "(method: %s)\n", method)
			}
			return nil
		},
	}
}

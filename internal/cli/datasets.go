package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// newDatasetsCommand creates the datasets command.
func newDatasetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "datasets",
		Short: "List the available practice datasets",
		RunE: func(cmd *cobra.Command, _ []string) error {
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

			out := cmd.OutOrStdout()
			for _, ds := range registry.List() {
				kind := "uploaded"
				if ds.BuiltIn {
					kind = "built-in"
				}
				fmt.Fprintf(out, "%s (%s, table %s, %d rows)\n", ds.Name, kind, ds.Table, ds.RowCount)
				fmt.Fprintf(out, "  columns: %s\n", strings.Join(ds.Columns, ", "))
				if ds.Description != "" {
					fmt.Fprintf(out, "  %s\n", ds.Description)
				}
				for _, q := range ds.ExampleQueries {
					fmt.Fprintf(out, "  try: %s\n", q)
				}
			}
			return nil
		},
	}
}

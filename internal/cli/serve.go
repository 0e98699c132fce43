package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/seeql-labs/seeql/internal/server"
)

// newServeCommand creates the serve command.
func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the SeeQL HTTP API",
		Long: `Start the SeeQL HTTP API server.

The server seeds the built-in datasets, registers any CSV files found
in the datasets directory (and watches it for new ones), and serves
the query, explain, upload and export endpoints.`,
		Example: `  # Serve on the default port
  seeql serve

  # Serve on port 9000 with a datasets directory
  seeql serve --port 9000 --datasets-dir ./datasets`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			eng, registry, err := newEngine(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = eng.Close() }()

			srv := server.New(server.Config{
				Engine:        eng,
				Registry:      registry,
				Explainer:     newExplainer(),
				Augmenter:     newAugmenter(),
				Port:          cfg.Port,
				SessionSecret: cfg.SessionSecret,
				DatasetsDir:   cfg.DatasetsDir,
			})

			if err := srv.Serve(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}
}

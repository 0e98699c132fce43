// Package cli provides the seeql command-line interface.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/seeql-labs/seeql/internal/augment"
	"github.com/seeql-labs/seeql/internal/config"
	"github.com/seeql-labs/seeql/internal/dataset"
	"github.com/seeql-labs/seeql/internal/executor"
	"github.com/seeql-labs/seeql/internal/explain"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

var (
	cfgFile string
	cfg     *config.Config
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "seeql",
		Short: "SeeQL - a SQL playground for beginners",
		Long: `SeeQL lets beginners run SQL against small built-in or uploaded
datasets and see results, plain-English explanations of what the query
does, and friendly explanations of errors.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			var err error
			cfg, err = config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			level := slog.LevelInfo
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: level,
			})))

			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
A SQL playground for beginners
`)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./seeql.yaml)")
	rootCmd.PersistentFlags().String("database", "", "SQLite path (default: in-memory)")
	rootCmd.PersistentFlags().String("datasets-dir", "", "Directory of CSV files to register as datasets")
	rootCmd.PersistentFlags().Int("row-limit", 0, "Maximum rows returned per query")
	rootCmd.PersistentFlags().IntP("port", "p", 0, "HTTP listen port")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newQueryCommand())
	rootCmd.AddCommand(newExplainCommand())
	rootCmd.AddCommand(newDatasetsCommand())
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newEngine opens the database per config and seeds the built-in
// datasets plus any CSVs in the datasets directory.
func newEngine(ctx context.Context) (*executor.Engine, *dataset.Registry, error) {
	eng, err := executor.Open(cfg.Database, executor.Options{
		RowLimit: cfg.RowLimit,
		Timeout:  cfg.QueryTimeout(),
		Logger:   slog.Default(),
	})
	if err != nil {
		return nil, nil, err
	}

	registry := dataset.NewRegistry(eng.DB(), slog.Default())
	if err := registry.SeedBuiltins(ctx); err != nil {
		_ = eng.Close()
		return nil, nil, err
	}
	return eng, registry, nil
}

// newAugmenter returns the configured remote augmenter, or the no-op
// one when no remote service is configured.
func newAugmenter() augment.Augmenter {
	if !cfg.AugmentEnabled() {
		return augment.Noop{}
	}
	return augment.NewClient(augment.ClientConfig{
		BaseURL: cfg.AugmentBaseURL,
		Model:   cfg.AugmentModel,
		APIKey:  cfg.AugmentAPIKey(),
		Logger:  slog.Default(),
	})
}

// newExplainer builds the explainer over the configured augmenter.
func newExplainer() *explain.Explainer {
	return explain.NewExplainer(newAugmenter(), 0, slog.Default())
}

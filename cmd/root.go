// Package cmd implements the command-line interface for VenueScout: the
// HTTP server, the crawl worker, the background scheduler, the embedding
// producer and the migration runner.
package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/venuescout/internal/config"
	"github.com/jonesrussell/venuescout/internal/database"
	"github.com/jonesrussell/venuescout/internal/logger"
)

const version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "venuescout",
	Short: "Geographic venue discovery with on-demand enrichment",
	Long: `VenueScout answers "what venues are near me" with dated, source-cited
facts scraped from the venues' own websites.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("venuescout version %s\n", version)
		},
	})

	pf := rootCmd.PersistentFlags()
	pf.String("database-url", "", "Postgres connection URL")
	pf.String("app-env", config.EnvLocal, "environment: local, staging or prod")
	pf.String("log-level", "info", "log level: debug, info, warn or error")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(schedulerCmd)
	rootCmd.AddCommand(embedderCmd)
	rootCmd.AddCommand(migrateCmd)
}

// bootstrap loads config, builds the logger and connects to Postgres. The
// command's flags override environment variables. The returned context
// ends on SIGINT or SIGTERM.
func bootstrap(cmd *cobra.Command) (context.Context, context.CancelFunc, *config.Config, logger.Interface, *sqlx.DB, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(&logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.Development(),
	})
	if err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}

	db, err := database.NewConnection(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sigCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)

	return sigCtx, stop, cfg, log, db, nil
}

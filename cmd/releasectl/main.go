// cmd/releasectl/main.go
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/codr1/releaseboard/internal/config"
	"github.com/codr1/releaseboard/internal/logging"
)

type globalOptions struct {
	configPath string
	logLevel   string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "releasectl",
		Short: "Operate the release board from the command line",
		Long: `releasectl manages the release board database, the saved dashboard theme
and on-demand build-status reports.

Examples:
  releasectl migrate up --db build/db/releaseboard.db
  releasectl theme show
  releasectl theme apply night.json
  releasectl build-status 3`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return logging.Setup(opts.logLevel, "", true)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "config/app.yaml", "Path to the YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newMigrateCommand(opts),
		newThemeCommand(opts),
		newBuildStatusCommand(opts),
	)
	return rootCmd
}

func loadConfig(opts *globalOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", opts.configPath, err)
	}
	return cfg, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	return log.Logger.WithContext(cmd.Context())
}

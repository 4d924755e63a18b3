package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codr1/releaseboard/internal/db"
)

func newMigrateCommand(opts *globalOptions) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:       "migrate <up|down|version>",
		Short:     "Run database migrations",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				cfg, err := loadConfig(opts)
				if err != nil {
					return err
				}
				dbPath = cfg.Database.Filename
			}

			result, err := db.Migrate(dbPath, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "Path to the SQLite database (defaults to the configured file)")
	return cmd
}

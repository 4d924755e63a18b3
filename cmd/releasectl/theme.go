package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codr1/releaseboard/internal/app"
	"github.com/codr1/releaseboard/internal/db"
	"github.com/codr1/releaseboard/internal/theme"
)

func newThemeCommand(opts *globalOptions) *cobra.Command {
	var slot string

	cmd := &cobra.Command{
		Use:   "theme",
		Short: "Inspect or change the saved dashboard theme",
	}
	cmd.PersistentFlags().StringVar(&slot, "slot", "", "Theme slot (defaults to the configured slot)")

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the saved theme merged over the defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withTheme(cmd, opts, slot, func(t *app.Theme, _ string) error {
				if css, _ := cmd.Flags().GetBool("css"); css {
					fmt.Fprintln(cmd.OutOrStdout(), t.Manager.Surface().CSS())
					return nil
				}
				return printJSON(cmd.OutOrStdout(), t.Manager.Snapshot())
			})
		},
	}
	show.Flags().Bool("css", false, "Print the :root stylesheet instead of JSON")

	apply := &cobra.Command{
		Use:   "apply <file|->",
		Short: "Apply a JSON theme patch and save it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			return withTheme(cmd, opts, slot, func(t *app.Theme, slotKey string) error {
				patch, dropped, err := t.Registry.ParseFromFreeText(raw)
				if err != nil {
					return err
				}
				if dropped != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "ignored unknown keys: %s\n", strings.Join(dropped.Dropped, ", "))
				}
				for _, note := range theme.Advisories(patch) {
					fmt.Fprintf(cmd.ErrOrStderr(), "advisory: %s\n", note)
				}
				applied := t.Manager.Apply(patch)
				if err := t.Manager.Save(commandContext(cmd), slotKey); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "applied %d variables to slot %q\n", applied, slotKey)
				return nil
			})
		},
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Restore the default theme and save it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withTheme(cmd, opts, slot, func(t *app.Theme, slotKey string) error {
				t.Manager.Reset()
				if err := t.Manager.Save(commandContext(cmd), slotKey); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "slot %q reset to defaults\n", slotKey)
				return nil
			})
		},
	}

	cmd.AddCommand(show, apply, reset)
	return cmd
}

// withTheme opens the database, loads the requested slot and runs fn.
func withTheme(cmd *cobra.Command, opts *globalOptions, slot string, fn func(t *app.Theme, slot string) error) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if slot != "" {
		cfg.Theme.Slot = slot
	}

	database, err := db.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	t, err := app.NewTheme(commandContext(cmd), cfg, database.Queries)
	if err != nil {
		return err
	}
	return fn(t, cfg.Theme.Slot)
}

func readInput(cmd *cobra.Command, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read theme patch: %w", err)
	}
	return string(data), nil
}

func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

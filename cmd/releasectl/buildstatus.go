package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/codr1/releaseboard/internal/app"
	"github.com/codr1/releaseboard/internal/db"
	"github.com/codr1/releaseboard/internal/release"
)

func newBuildStatusCommand(opts *globalOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "build-status <version-id>",
		Short: "Reconcile and print the build status of a version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			versionID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || versionID <= 0 {
				return fmt.Errorf("version id must be a positive integer, got %q", args[0])
			}

			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			database, err := db.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer database.Close()

			ctx := commandContext(cmd)
			svc, err := app.NewReleaseService(ctx, cfg, database.Queries)
			if err != nil {
				return err
			}
			report, err := svc.BuildStatus(ctx, versionID)
			if err != nil {
				return err
			}

			if asJSON {
				return printJSON(cmd.OutOrStdout(), report)
			}
			return printReport(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}

func printReport(w io.Writer, report release.Report) error {
	fmt.Fprintf(w, "%s %s (branch %s)\n\n", report.Project.Name, report.Version.Name, report.Version.ReleaseBranch)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ISSUE\tSTATUS\tBUILD\tSUMMARY")
	for _, status := range report.Issues {
		build := string(status.BuildStatus)
		if status.StatusOverridden {
			build += " (manual)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", status.Issue.Key, status.Issue.StatusName, build, status.Issue.Summary)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	statuses := make([]string, 0, len(report.Summary))
	for status := range report.Summary {
		statuses = append(statuses, string(status))
	}
	sort.Strings(statuses)
	fmt.Fprintln(w)
	for _, status := range statuses {
		fmt.Fprintf(w, "%s: %d\n", status, report.Summary[release.BuildStatus(status)])
	}
	return nil
}

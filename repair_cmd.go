package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/gcadmin/extaudit/internal/audit"
	"github.com/gcadmin/extaudit/internal/export"
	"github.com/gcadmin/extaudit/internal/history"
)

func newRepairCmd() *cobra.Command {
	var (
		apply           bool
		includeInactive bool
		maxUpdates      int
		sleep           time.Duration
		exportDir       string
		noHistory       bool
	)

	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Patch missing extension assignments onto users",
		Long: `Re-run the audit and patch each missing assignment onto the owning user's
phone address via a read-modify-write cycle.

Without --apply the run is a dry run: intended changes are reported but no
writes are issued.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := buildLogger()
			ctx := shutdownContext(cmd.Context(), logger)

			client, err := buildClient(logger)
			if err != nil {
				return err
			}

			ac, summary, err := buildContext(ctx, client, logger, includeInactive, 0)
			if err != nil {
				return err
			}

			opts := audit.RepairOptions{
				DryRun:     !apply,
				MaxUpdates: maxUpdates,
				Delay:      sleep,
			}
			if opts.MaxUpdates == 0 {
				opts.MaxUpdates = resolvedCfg.Repair.MaxUpdates
			}

			if opts.Delay == 0 {
				opts.Delay = resolvedCfg.Repair.SleepDuration()
			}

			progress := make(chan audit.Progress, progressBuffer)
			done := watchProgress(progress)

			repairer := audit.NewRepairer(client, logger, opts, progress)
			result, runErr := repairer.Run(ctx, ac)

			close(progress)
			<-done

			printPatchResult(result)

			if exportDir != "" {
				if err := exportPatchResult(exportDir, result); err != nil {
					return err
				}
			}

			if !noHistory {
				if err := recordRepairRun(ctx, logger, summary, ac, result); err != nil {
					logger.Warn("recording run history failed", slog.String("error", err.Error()))
				}
			}

			// A canceled batch still reports the rows processed so far.
			return runErr
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "issue real writes (default is a dry run)")
	cmd.Flags().BoolVar(&includeInactive, "include-inactive", false, "include inactive users")
	cmd.Flags().IntVar(&maxUpdates, "max-updates", 0, "stop updating after this many patches (0 = config default)")
	cmd.Flags().DurationVar(&sleep, "sleep", 0, "delay after each applied patch (0 = config default)")
	cmd.Flags().StringVar(&exportDir, "export", "", "write patch result tables as CSV files to this directory")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "do not record this run in the history database")

	return cmd
}

func printPatchResult(r *audit.PatchResult) {
	mode := "applied"
	if r.DryRun {
		mode = "dry run"
	}

	fmt.Printf("\nRepair result (%s): %d missing, %d updated, %d skipped, %d failed\n",
		mode, r.MissingFound, r.Updated, r.Skipped, r.Failed)

	printReport("Updated", updatedTable(r.UpdatedRows))
	printReport("Skipped", skippedTable(r.SkippedRows))
	printReport("Failed", failedTable(r.FailedRows))
}

func exportPatchResult(dir string, r *audit.PatchResult) error {
	tables := []struct {
		prefix string
		table  export.Table
	}{
		{"PatchUpdated", updatedTable(r.UpdatedRows)},
		{"PatchSkipped", skippedTable(r.SkippedRows)},
		{"PatchFailed", failedTable(r.FailedRows)},
	}

	for _, t := range tables {
		path, err := export.WriteCSV(dir, t.prefix, t.table)
		if err != nil {
			return err
		}

		statusf("Exported %s\n", path)
	}

	return nil
}

func recordRepairRun(ctx context.Context, logger *slog.Logger, summary *audit.Summary, ac *audit.Context, result *audit.PatchResult) error {
	rec := history.RunRecord{
		StartedAt:            summary.BuiltAt,
		BaseURL:              summary.BaseURL,
		IncludeInactive:      summary.IncludeInactive,
		Mode:                 string(summary.Mode),
		UsersTotal:           summary.UsersTotal,
		UsersWithExtension:   summary.UsersWithProfile,
		DistinctNumbers:      summary.DistinctNumbers,
		ExtensionsLoaded:     summary.ExtensionsLoaded,
		DuplicateAssignments: len(ac.DuplicateAssignments()),
		DuplicateRecords:     len(ac.DuplicateRecords()),
		Discrepancies:        len(ac.Discrepancies()),
		MissingAssignments:   result.MissingFound,
	}

	rows := make([]history.PatchRow, 0, result.Updated+result.Skipped+result.Failed)

	for _, r := range result.UpdatedRows {
		rows = append(rows, history.PatchRow{
			UserID: r.UserID, User: r.User, Extension: r.Extension,
			Outcome: r.Status, Version: r.Version,
		})
	}

	for _, r := range result.SkippedRows {
		rows = append(rows, history.PatchRow{
			UserID: r.UserID, User: r.User, Extension: r.Extension,
			Outcome: r.Reason,
		})
	}

	for _, r := range result.FailedRows {
		rows = append(rows, history.PatchRow{
			UserID: r.UserID, User: r.User, Extension: r.Extension,
			Outcome: "Failed", Detail: r.Error,
		})
	}

	_, err := recordRun(ctx, logger, rec, rows)

	return err
}

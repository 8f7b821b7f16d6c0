package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gcadmin/extaudit/internal/audit"
	"github.com/gcadmin/extaudit/internal/export"
	"github.com/gcadmin/extaudit/internal/genesys"
	"github.com/gcadmin/extaudit/internal/history"
)

// progressBuffer sizes the progress channel; events beyond it are dropped
// rather than blocking the pipeline.
const progressBuffer = 64

func newAuditCmd() *cobra.Command {
	var (
		includeInactive bool
		maxFullPages    int
		exportDir       string
		noHistory       bool
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Audit profile extensions against the extension registry",
		Long: `Fetch all users and extension records, classify mismatches, and print the
four report tables: duplicate user assignments, duplicate extension records,
ownership discrepancies, and missing assignments.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAudit(cmd.Context(), includeInactive, maxFullPages, exportDir, noHistory)
		},
	}

	cmd.Flags().BoolVar(&includeInactive, "include-inactive", false, "include inactive users")
	cmd.Flags().IntVar(&maxFullPages, "max-full-pages", 0, "extension page count above which targeted lookups are used (0 = config default)")
	cmd.Flags().StringVar(&exportDir, "export", "", "write report tables as CSV files to this directory")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "do not record this run in the history database")

	return cmd
}

func runAudit(parent context.Context, includeInactive bool, maxFullPages int, exportDir string, noHistory bool) error {
	logger := buildLogger()
	ctx := shutdownContext(parent, logger)

	client, err := buildClient(logger)
	if err != nil {
		return err
	}

	ac, summary, err := buildContext(ctx, client, logger, includeInactive, maxFullPages)
	if err != nil {
		return err
	}

	dupAssignments := ac.DuplicateAssignments()
	dupRecords := ac.DuplicateRecords()
	discrepancies := ac.Discrepancies()
	missing := ac.MissingAssignments()

	printSummary(summary)
	printReport("Duplicate user assignments", duplicateAssignmentTable(dupAssignments))
	printReport("Duplicate extension records", duplicateRecordTable(dupRecords))
	printReport("Discrepancies", discrepancyTable(discrepancies))
	printReport("Missing assignments", missingAssignmentTable(missing))

	if exportDir != "" {
		tables := []struct {
			prefix string
			table  export.Table
		}{
			{"DuplicateUserAssignments", duplicateAssignmentTable(dupAssignments)},
			{"DuplicateExtensionRecords", duplicateRecordTable(dupRecords)},
			{"Discrepancies", discrepancyTable(discrepancies)},
			{"MissingAssignments", missingAssignmentTable(missing)},
		}

		for _, t := range tables {
			path, err := export.WriteCSV(exportDir, t.prefix, t.table)
			if err != nil {
				return err
			}

			statusf("Exported %s\n", path)
		}
	}

	if !noHistory {
		rec := history.RunRecord{
			StartedAt:            summary.BuiltAt,
			BaseURL:              summary.BaseURL,
			IncludeInactive:      summary.IncludeInactive,
			Mode:                 string(summary.Mode),
			UsersTotal:           summary.UsersTotal,
			UsersWithExtension:   summary.UsersWithProfile,
			DistinctNumbers:      summary.DistinctNumbers,
			ExtensionsLoaded:     summary.ExtensionsLoaded,
			DuplicateAssignments: len(dupAssignments),
			DuplicateRecords:     len(dupRecords),
			Discrepancies:        len(discrepancies),
			MissingAssignments:   len(missing),
		}

		if _, err := recordRun(ctx, logger, rec, nil); err != nil {
			// History is best-effort; the audit itself succeeded.
			logger.Warn("recording run history failed", slog.String("error", err.Error()))
		}
	}

	return nil
}

// buildContext runs the fetch phase with progress rendering. Shared by the
// audit and repair commands.
func buildContext(ctx context.Context, client *genesys.Client, logger *slog.Logger, includeInactive bool, maxFullPages int) (*audit.Context, *audit.Summary, error) {
	opts := audit.BuilderOptions{
		UsersPageSize:      resolvedCfg.Audit.UsersPageSize,
		ExtensionsPageSize: resolvedCfg.Audit.ExtensionsPageSize,
		MaxFullPages:       resolvedCfg.Audit.MaxFullExtensionPages,
		LookupDelay:        resolvedCfg.Audit.LookupDelayDuration(),
		IncludeInactive:    includeInactive || resolvedCfg.API.IncludeInactive,
	}
	if maxFullPages > 0 {
		opts.MaxFullPages = maxFullPages
	}

	progress := make(chan audit.Progress, progressBuffer)
	done := watchProgress(progress)

	builder := audit.NewBuilder(client, logger, opts, progress)

	ac, summary, err := builder.Build(ctx)

	close(progress)
	<-done

	if err != nil {
		return nil, nil, err
	}

	return ac, summary, nil
}

// recordRun persists a run summary (and optional patch rows) to the history
// database.
func recordRun(ctx context.Context, logger *slog.Logger, rec history.RunRecord, patchRows []history.PatchRow) (string, error) {
	store, err := history.Open(resolvedCfg.History.Path, logger)
	if err != nil {
		return "", err
	}
	defer store.Close()

	runID, err := store.RecordRun(ctx, rec)
	if err != nil {
		return "", err
	}

	if err := store.RecordPatchRows(ctx, runID, patchRows); err != nil {
		return "", err
	}

	return runID, nil
}

func printSummary(s *audit.Summary) {
	fmt.Printf("Audit context built at %s\n", formatTime(s.BuiltAt))
	fmt.Printf("  endpoint:             %s\n", s.BaseURL)
	fmt.Printf("  include inactive:     %v\n", s.IncludeInactive)
	fmt.Printf("  users:                %d\n", s.UsersTotal)
	fmt.Printf("  with profile ext:     %d\n", s.UsersWithProfile)
	fmt.Printf("  distinct numbers:     %d\n", s.DistinctNumbers)
	fmt.Printf("  extension records:    %d\n", s.ExtensionsLoaded)
	fmt.Printf("  fetch mode:           %s\n", s.Mode)
}

func printReport(title string, table export.Table) {
	fmt.Printf("\n%s (%d)\n", title, len(table.Rows))
	if len(table.Rows) == 0 {
		return
	}

	printTable(os.Stdout, table.Headers, table.Rows)
}

package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gcadmin/extaudit/internal/history"
)

func newRunsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List past audit runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := buildLogger()

			store, err := history.Open(resolvedCfg.History.Path, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if len(runs) == 0 {
				fmt.Println("No recorded runs.")

				return nil
			}

			headers := []string{"Started", "Mode", "Users", "Claims", "Records", "DupUsers", "DupRecords", "Discrepancies", "Missing", "RunId"}

			rows := make([][]string, 0, len(runs))
			for _, r := range runs {
				rows = append(rows, []string{
					formatTime(r.StartedAt),
					r.Mode,
					strconv.Itoa(r.UsersTotal),
					strconv.Itoa(r.UsersWithExtension),
					strconv.Itoa(r.ExtensionsLoaded),
					strconv.Itoa(r.DuplicateAssignments),
					strconv.Itoa(r.DuplicateRecords),
					strconv.Itoa(r.Discrepancies),
					strconv.Itoa(r.MissingAssignments),
					r.ID,
				})
			}

			printTable(os.Stdout, headers, rows)

			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list")

	return cmd
}
